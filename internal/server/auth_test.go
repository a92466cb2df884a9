package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
)

type fakeAuthenticator struct {
	session *models.Session
	err     error
	tokens  []string
}

func (f *fakeAuthenticator) AuthURL(callback string) string {
	return "https://www.last.fm/api/auth/?api_key=key&cb=" + callback
}

func (f *fakeAuthenticator) Session(ctx context.Context, token string) (*models.Session, error) {
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func callback(h *AuthHandler, query string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback"+query, nil))
	return w
}

func TestAuthHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		auth := &fakeAuthenticator{session: &models.Session{Name: "<alice>", Key: "sk"}}
		var saved *models.Session
		h := NewAuthHandler(auth, func(s *models.Session) error {
			saved = s
			return nil
		})

		w := callback(h, "?token=abc")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "Connected as &lt;alice&gt;") {
			t.Errorf("expected the escaped user name in the page, got %s", w.Body.String())
		}
		if saved == nil || saved.Key != "sk" {
			t.Errorf("expected the session to be saved, got %+v", saved)
		}
		if len(auth.tokens) != 1 || auth.tokens[0] != "abc" {
			t.Errorf("unexpected tokens: %v", auth.tokens)
		}

		result := <-h.Result()
		if result.Error() != nil || result.Session.Name != "<alice>" {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		h := NewAuthHandler(&fakeAuthenticator{}, nil)

		w := callback(h, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
		result := <-h.Result()
		if !errors.Is(result.Error(), shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", result.Error())
		}
	})

	t.Run("exchange failure", func(t *testing.T) {
		h := NewAuthHandler(&fakeAuthenticator{err: shared.ErrInvalidCredentials}, nil)

		w := callback(h, "?token=abc")
		if w.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", w.Code)
		}
		result := <-h.Result()
		if !errors.Is(result.Error(), shared.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", result.Error())
		}
	})

	t.Run("save failure", func(t *testing.T) {
		auth := &fakeAuthenticator{session: &models.Session{Name: "alice", Key: "sk"}}
		h := NewAuthHandler(auth, func(*models.Session) error { return shared.ErrNotFound })

		w := callback(h, "?token=abc")
		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", w.Code)
		}
		if result := <-h.Result(); !errors.Is(result.Error(), shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", result.Error())
		}
	})

	t.Run("single use", func(t *testing.T) {
		auth := &fakeAuthenticator{session: &models.Session{Name: "alice", Key: "sk"}}
		h := NewAuthHandler(auth, nil)

		callback(h, "?token=first")
		w := callback(h, "?token=second")

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for the second callback, got %d", w.Code)
		}
		if len(auth.tokens) != 1 {
			t.Errorf("expected one exchange, got %v", auth.tokens)
		}
		if _, ok := <-h.Result(); !ok {
			t.Error("expected one result")
		}
		if _, ok := <-h.Result(); ok {
			t.Error("expected the result channel to be closed")
		}
	})

	t.Run("routes", func(t *testing.T) {
		h := NewAuthHandler(&fakeAuthenticator{}, nil)
		if routes := h.Routes(); len(routes) != 1 || routes[0] != "/callback" {
			t.Errorf("unexpected routes: %v", routes)
		}
	})
}
