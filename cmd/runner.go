package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scrobblex/internal/services"
	"github.com/desertthunder/scrobblex/internal/shared"
	"github.com/desertthunder/scrobblex/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	lastfm      services.Service
	auth        services.Authenticator
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	engine      *tasks.DashboardEngine
	db          *sql.DB
	openBrowser func(url string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	LastFM      services.Service
	Auth        services.Authenticator
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	DB          *sql.DB // opened lazily from the config when nil
	OpenBrowser func(url string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	r := &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		lastfm:      opts.LastFM,
		auth:        opts.Auth,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		db:          opts.DB,
		openBrowser: opts.OpenBrowser,
	}
	r.engine = r.newEngine()
	return r
}

func (r *Runner) newEngine() *tasks.DashboardEngine {
	return tasks.NewDashboardEngine(r.lastfm, tasks.EngineOpts{
		TopLimit:     r.config.Dashboard.TopLimit,
		RecentLimit:  r.config.Tasks.RecentLimit,
		HeatmapLimit: r.config.Tasks.HeatmapLimit,
		PageSize:     r.config.Credentials.LastFM.PageSize,
		Workers:      r.config.Tasks.Workers,
		Logger:       r.logger,
	})
}

// SetLogger replaces the logger of the runner and its engine.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	r.engine = r.newEngine()
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, serveCommand, tuiCommand, statsCommand, exportCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// database opens the configured database on first use and applies pending migrations.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	r.db = db
	return db, nil
}

// Close releases the database, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// requireLastFM reports a missing api_key before a command reaches the network.
func (r *Runner) requireLastFM() error {
	if r.lastfm == nil {
		return fmt.Errorf("%w: set credentials.lastfm.api_key in %s", shared.ErrMissingCredentials, r.configName())
	}
	return nil
}

func (r *Runner) configName() string {
	if r.configPath == "" {
		return "config.toml"
	}
	return r.configPath
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// drainProgress consumes progress updates until the channel is closed, printing them when verbose.
// The returned channel is closed once every update has been consumed.
func (r *Runner) drainProgress(progress <-chan tasks.ProgressUpdate, verbose bool) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
			if verbose && update.Message != "" {
				r.writePlain("→ %s\n", update.Message)
			}
		}
	}()
	return done
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
