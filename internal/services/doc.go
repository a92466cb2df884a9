// Package services implements [Service] for the Last.fm web API.
//
// # Requests
//
// Every call is a GET against the API root with method, api_key and format=json query parameters.
// Calls wait on a [rate.Limiter] before they are sent; the default is five requests per second.
//
// Numbers arrive as strings and single-item lists arrive as objects. The decoding types in
// lastfm.go absorb both before values are mapped onto the models package.
//
// # Authentication
//
// Reading public listening data needs only the API key. [LastFMService] also implements
// [Authenticator]: the user is sent to [LastFMService.AuthURL], Last.fm redirects back with a
// token, and [LastFMService.Session] exchanges it for a session key signed with the shared secret.
//
// # Error Handling
//
// Last.fm reports failures as {"error": code, "message": text}, sometimes with status 200:
//   - code 6 (invalid parameters, used for unknown users): [shared.ErrUserNotFound]
//   - codes 4, 9, 10, 14, 26: [shared.ErrAuthFailed]
//   - codes 11, 16, 29: [shared.ErrServiceUnavailable]
//   - anything else, and non-2xx statuses: [shared.ErrAPIRequest]
package services
