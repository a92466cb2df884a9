package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/repositories"
	"github.com/desertthunder/scrobblex/internal/server"
	"github.com/desertthunder/scrobblex/internal/shared"
)

// AuthTimeout bounds how long [Runner.Auth] waits for the Last.fm callback.
const AuthTimeout = 2 * time.Minute

// Auth connects a Last.fm account: it opens the Last.fm grant page in a browser, waits for the
// callback on the local server and stores the session key on the user's profile.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	if r.auth == nil {
		return fmt.Errorf("%w: set credentials.lastfm.api_key and shared_secret in %s", shared.ErrMissingCredentials, r.configName())
	}

	db, err := r.database()
	if err != nil {
		return err
	}
	profiles := repositories.NewProfileRepository(db)

	session, err := r.doAuth(ctx, r.saveSession(ctx, profiles))
	if err != nil {
		return err
	}

	r.writePlainln("✓ Connected to Last.fm as %s", session.Name)
	r.writePlain("✓ Session key saved to %s\n\n", r.config.Database.Path)
	r.writePlain("You can now use: scrobblex serve\n")
	return nil
}

// saveSession returns the callback that stores a granted session key on its profile.
func (r *Runner) saveSession(ctx context.Context, profiles *repositories.ProfileRepository) func(*models.Session) error {
	return func(s *models.Session) error {
		p, err := r.profile(ctx, profiles, s.Name)
		if err != nil {
			return err
		}
		p.SetSessionKey(s.Key)
		return profiles.Update(p)
	}
}

// profile returns the stored profile of user, creating it from user.getInfo when missing.
func (r *Runner) profile(ctx context.Context, profiles *repositories.ProfileRepository, user string) (*models.Profile, error) {
	p, err := profiles.GetByUsername(user)
	if err == nil {
		return p, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	if err := r.requireLastFM(); err != nil {
		return nil, err
	}
	info, err := r.lastfm.UserInfo(ctx, user)
	if err != nil {
		return nil, err
	}
	return profiles.Sync(*info)
}

// doAuth runs the Last.fm web authentication flow with a local callback server.
func (r *Runner) doAuth(ctx context.Context, save func(*models.Session) error) (*models.Session, error) {
	authHandler := server.NewAuthHandler(r.auth, save)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger))
	router.Handler(authHandler)

	serverAddr := r.config.Server.Addr()
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := r.auth.AuthURL(fmt.Sprintf("http://%s/callback", serverAddr))

	r.writePlain("→ Opening browser for Last.fm authorization...\n")
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%v timeout)...\n", AuthTimeout)

	timeout := time.NewTimer(AuthTimeout)
	defer timeout.Stop()

	var result server.AuthResult
	select {
	case result = <-authHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, AuthTimeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", shared.ErrTimeout, ctx.Err())
	}

	if err := result.Error(); err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	if result.Session == nil {
		return nil, fmt.Errorf("%w: no session received", shared.ErrAuthFailed)
	}
	return result.Session, nil
}
