// Package server serves the browser dashboard.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first). [Logging] records
// method, path, status and duration for every request and [Recover] turns panics into 500s.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Dashboard
//
// [Dashboard] keeps one session per browser, keyed by the client-id cookie. Each session owns a
// dashboard.Controller, a dashboard.Loader and a dashboard.Dropdowns, all rendering into an
// sseView. The view turns every state change into a datastar patch and queues it for the
// session's /events stream:
//
//	GET  /            full page
//	GET  /events      datastar event stream
//	POST /tabs        {tab}
//	POST /dropdowns   {dropdown} or {outside: true}
//	POST /dashboard   {username, period, theme}
//	GET  /export      ?format=csv|json|yaml|txt|scrobbles
//	GET  /healthz
//
// Sessions idle for longer than the session TTL are torn down.
//
// # Auth Callback Handler
//
// [AuthHandler] receives the Last.fm web authentication callback, exchanges its token for a session
// key and sends the result through a channel. It only processes one callback.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
