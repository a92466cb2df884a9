package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/repositories"
	"github.com/desertthunder/scrobblex/internal/shared"
	tu "github.com/desertthunder/scrobblex/internal/testing"
)

func newMockService() *tu.MockService {
	return &tu.MockService{
		User: &models.UserInfo{Name: "alice", Playcount: 1234},
		Tracks: []models.Track{
			{Rank: 1, Name: "Song A", Artist: "Band", Playcount: 12},
			{Rank: 2, Name: "Song B", Artist: "Other", Playcount: 7},
		},
		Artists: []models.Artist{{Rank: 1, Name: "Band", Playcount: 12}},
		Recent: []models.Scrobble{
			{Track: "Song A", Artist: "Band", PlayedAt: time.Date(2024, time.March, 13, 10, 0, 0, 0, time.UTC)},
			{Track: "Song B", Artist: "Other", PlayedAt: time.Date(2024, time.March, 12, 9, 0, 0, 0, time.UTC)},
		},
	}
}

// run executes args against the registered commands of r.
func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{Name: "scrobblex", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"scrobblex"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			svc := newMockService()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				LastFM:     svc,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.lastfm != svc {
				t.Error("expected lastfm to be set")
			}
			if runner.engine == nil {
				t.Error("expected engine to be created")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.openBrowser == nil {
				t.Error("expected openBrowser to be set")
			}
		})

		t.Run("configName falls back to config.toml", func(t *testing.T) {
			if name := NewRunner(RunnerOpts{}).configName(); name != "config.toml" {
				t.Errorf("expected config.toml, got %s", name)
			}
			if name := NewRunner(RunnerOpts{ConfigPath: "/etc/scrobblex.toml"}).configName(); name != "/etc/scrobblex.toml" {
				t.Errorf("expected custom path, got %s", name)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
		want := []string{"setup", "auth", "serve", "tui", "stats", "export"}

		commands := runner.register()
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, name := range want {
			if commands[i].Name != name {
				t.Errorf("command %d: expected %s, got %s", i, name, commands[i].Name)
			}
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: tu.NewLimitedWriter(1, &bytes.Buffer{})})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("formats arguments", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("%s has %d scrobbles", "alice", 3); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "alice has 3 scrobbles" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("writePlainln pads with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			runner.writePlainln("done")
			if output.String() != "\ndone\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writePlain("x"); err == nil {
				t.Error("expected error from failing writer")
			}
			if err := runner.writePlainln("x"); err == nil {
				t.Error("expected error from failing writer")
			}
		})
	})

	t.Run("requireLastFM", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, ConfigPath: "custom.toml"})

		err := runner.requireLastFM()
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Fatalf("expected ErrMissingCredentials, got %v", err)
		}
		if !strings.Contains(err.Error(), "custom.toml") {
			t.Errorf("expected config path in error, got %v", err)
		}
	})

	t.Run("close without database", func(t *testing.T) {
		if err := NewRunner(RunnerOpts{}).Close(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestStats(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, LastFM: newMockService()})

		if err := run(t, runner, "stats", "--user", "alice", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		result := output.String()
		if !strings.Contains(result, `"tracks"`) || !strings.Contains(result, "Song A") {
			t.Errorf("expected track dataset in output, got %s", result)
		}
	})

	t.Run("text", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, LastFM: newMockService()})

		if err := run(t, runner, "stats", "-u", "alice", "-p", "7day"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		result := output.String()
		for _, want := range []string{"alice • Last 7 Days", "Scrobbles: 1234", "Song A"} {
			if !strings.Contains(result, want) {
				t.Errorf("expected %q in output, got %s", want, result)
			}
		}
	})

	t.Run("unknown period", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, LastFM: newMockService()})

		err := run(t, runner, "stats", "--user", "alice", "--period", "7days")
		if !errors.Is(err, shared.ErrInvalidPeriod) {
			t.Errorf("expected ErrInvalidPeriod, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, LastFM: newMockService()})

		err := run(t, runner, "stats", "--user", "bob")
		if !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

		err := run(t, runner, "stats", "--user", "alice")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestExport(t *testing.T) {
	newRunner := func(t *testing.T, output *bytes.Buffer) *Runner {
		t.Helper()
		db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		r := NewRunner(RunnerOpts{Output: output, LastFM: newMockService(), DB: db})
		t.Cleanup(func() { r.Close() })
		return r
	}

	t.Run("scrobbles", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := newRunner(t, output)
		dir := t.TempDir()

		if err := run(t, runner, "export", "--user", "alice", "--format", "scrobbles", "--output", dir); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		path := filepath.Join(dir, "alice_scrobbles.csv")
		tu.AssertFileExists(t, path)
		content := tu.MustReadFile(t, path)
		if !strings.Contains(content, "Song A") || !strings.Contains(content, "Song B") {
			t.Errorf("expected both scrobbles in export, got %s", content)
		}
		if !strings.Contains(output.String(), path) {
			t.Errorf("expected path in output, got %s", output.String())
		}

		jobs, err := repositories.NewExportJobRepository(runner.db).List(map[string]any{"status": models.ExportCompleted})
		if err != nil {
			t.Fatalf("failed to list export jobs: %v", err)
		}
		if len(jobs) != 1 {
			t.Fatalf("expected 1 completed job, got %d", len(jobs))
		}
		if jobs[0].OutputPath() != path || jobs[0].WrittenItems() != 2 {
			t.Errorf("unexpected job %s with %d items", jobs[0].OutputPath(), jobs[0].WrittenItems())
		}
	})

	t.Run("dashboard JSON", func(t *testing.T) {
		runner := newRunner(t, &bytes.Buffer{})
		dir := t.TempDir()

		if err := run(t, runner, "export", "-u", "alice", "-f", "json", "-o", dir); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		matches, err := filepath.Glob(filepath.Join(dir, "alice_data_*.json"))
		if err != nil || len(matches) != 1 {
			t.Fatalf("expected one JSON export, got %v (%v)", matches, err)
		}
		if content := tu.MustReadFile(t, matches[0]); !strings.Contains(content, "Song A") {
			t.Errorf("expected top tracks in export, got %s", content)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		runner := newRunner(t, &bytes.Buffer{})

		err := run(t, runner, "export", "--user", "alice", "--format", "xlsx")
		if !errors.Is(err, shared.ErrUnknownFormat) {
			t.Errorf("expected ErrUnknownFormat, got %v", err)
		}
	})

	t.Run("no scrobbles records failure", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := newRunner(t, output)
		runner.lastfm.(*tu.MockService).Recent = nil

		err := run(t, runner, "export", "--user", "alice", "--format", "scrobbles", "--output", t.TempDir())
		if !errors.Is(err, shared.ErrNoScrobbles) {
			t.Fatalf("expected ErrNoScrobbles, got %v", err)
		}

		jobs, err := repositories.NewExportJobRepository(runner.db).List(map[string]any{"status": models.ExportFailed})
		if err != nil {
			t.Fatalf("failed to list export jobs: %v", err)
		}
		if len(jobs) != 1 || jobs[0].ErrorMessage() == "" {
			t.Errorf("expected 1 failed job with a message, got %d", len(jobs))
		}
	})
}

type fakeAuthenticator struct {
	session *models.Session
	err     error
}

// AuthURL points straight at the callback with a granted token.
func (a *fakeAuthenticator) AuthURL(callback string) string {
	return callback + "?token=granted"
}

func (a *fakeAuthenticator) Session(ctx context.Context, token string) (*models.Session, error) {
	if token != "granted" {
		return nil, errors.New("bad token")
	}
	return a.session, a.err
}

// freePort returns a port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// visit retries url until the callback server answers.
func visit(url string) error {
	go func() {
		for range 50 {
			resp, err := http.Get(url)
			if err == nil {
				resp.Body.Close()
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
	}()
	return nil
}

func TestDoAuth(t *testing.T) {
	newAuthRunner := func(t *testing.T, auth *fakeAuthenticator) *Runner {
		t.Helper()
		config := shared.DefaultConfig()
		config.Server.Host = "127.0.0.1"
		config.Server.Port = freePort(t)
		return NewRunner(RunnerOpts{
			Config:      config,
			Output:      &bytes.Buffer{},
			Auth:        auth,
			OpenBrowser: visit,
		})
	}

	t.Run("saves session", func(t *testing.T) {
		runner := newAuthRunner(t, &fakeAuthenticator{session: &models.Session{Name: "alice", Key: "sk"}})

		var saved *models.Session
		session, err := runner.doAuth(context.Background(), func(s *models.Session) error {
			saved = s
			return nil
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if session.Key != "sk" || saved == nil || saved.Name != "alice" {
			t.Errorf("unexpected session %+v, saved %+v", session, saved)
		}
	})

	t.Run("exchange failure", func(t *testing.T) {
		runner := newAuthRunner(t, &fakeAuthenticator{err: shared.ErrAuthFailed})

		_, err := runner.doAuth(context.Background(), nil)
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		runner := newAuthRunner(t, &fakeAuthenticator{})
		runner.openBrowser = func(string) error { return errors.New("no browser") }

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := runner.doAuth(ctx, nil)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("auth without credentials", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

		err := run(t, runner, "auth")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}
