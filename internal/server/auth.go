package server

import (
	"fmt"
	"html"
	"net/http"
	"sync"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/services"
	"github.com/desertthunder/scrobblex/internal/shared"
)

// AuthResult contains the result of a Last.fm web authentication flow.
type AuthResult struct {
	Session *models.Session
	err     error
}

func (a *AuthResult) Error() error {
	return a.err
}

// AuthHandler handles the Last.fm callback that carries a granted token.
// Implements the Handler interface for registration with a Router.
type AuthHandler struct {
	auth        services.Authenticator
	save        func(*models.Session) error
	resultChan  chan AuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewAuthHandler creates a handler exchanging tokens through auth. save, when set, persists the
// session key before the result is sent.
func NewAuthHandler(auth services.Authenticator, save func(*models.Session) error) *AuthHandler {
	return &AuthHandler{
		auth:       auth,
		save:       save,
		resultChan: make(chan AuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP exchanges the ?token= of the callback for a session key and sends the result through
// the result channel. Only the first callback is processed.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	token := r.URL.Query().Get("token")
	if token == "" {
		h.Send(AuthResult{err: fmt.Errorf("%w: callback carried no token", shared.ErrAuthFailed)})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	session, err := h.auth.Session(r.Context(), token)
	if err != nil {
		h.Send(AuthResult{err: fmt.Errorf("session exchange failed: %w", err)})
		http.Error(w, "Session exchange failed", http.StatusBadGateway)
		return
	}

	if h.save != nil {
		if err := h.save(session); err != nil {
			h.Send(AuthResult{err: fmt.Errorf("failed to save session: %w", err)})
			http.Error(w, "Failed to save session", http.StatusInternalServerError)
			return
		}
	}

	h.Send(AuthResult{Session: session})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Connected to Last.fm</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #111827; }
        .container { text-align: center; background: #1f2937; color: #f9fafb; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.4); }
        h1 { color: #d51007; margin: 0 0 1rem 0; }
        p { color: #9ca3af; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Connected as %s</h1>
        <p>You can close this window and return to scrobblex.</p>
    </div>
</body>
</html>
`, html.EscapeString(session.Name))
}

// Send sends the auth result through the channel (only once).
func (h *AuthHandler) Send(result AuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving the flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *AuthHandler) Result() <-chan AuthResult {
	return h.resultChan
}
