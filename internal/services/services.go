// package services defines interface Service for interacting with the Last.fm API
package services

import (
	"context"

	"github.com/desertthunder/scrobblex/internal/models"
)

// Service is the read-only listening-data source a dashboard is built from.
type Service interface {
	// UserInfo returns the profile of user.
	// Unknown users return an error wrapping [shared.ErrUserNotFound].
	UserInfo(ctx context.Context, user string) (*models.UserInfo, error)

	// TopArtists returns up to limit artists ranked by playcount over period.
	TopArtists(ctx context.Context, user string, period models.Period, limit int) ([]models.Artist, error)

	// TopTracks returns up to limit tracks ranked by playcount over period.
	TopTracks(ctx context.Context, user string, period models.Period, limit int) ([]models.Track, error)

	// TopAlbums returns up to limit albums ranked by playcount over period.
	TopAlbums(ctx context.Context, user string, period models.Period, limit int) ([]models.Album, error)

	// RecentTracks returns one page of scrobbles, newest first.
	RecentTracks(ctx context.Context, user string, q models.RecentQuery) (*models.RecentPage, error)

	// TrackInfo returns album metadata of a track.
	TrackInfo(ctx context.Context, artist, track string) (*models.TrackInfo, error)

	// Name returns the name of the service
	Name() string
}

// Authenticator is implemented by services that support the web authentication flow.
type Authenticator interface {
	// AuthURL returns the page a user visits to grant access. callback receives ?token=.
	AuthURL(callback string) string

	// Session exchanges a granted token for a session key.
	Session(ctx context.Context, token string) (*models.Session, error)
}
