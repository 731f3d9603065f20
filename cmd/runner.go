package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/repositories"
	"github.com/desertthunder/musive/internal/services"
	"github.com/desertthunder/musive/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	openBrowser func(url string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string // Path Config was loaded from
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
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

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		openBrowser: opts.OpenBrowser,
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, userCommand, spotifyCommand, libraryCommand, playlistsCommand, playCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:     "musive",
		Usage:    "Music streaming server, library tools and terminal player",
		Version:  "0.3.0",
		Writer:   r.output,
		Commands: r.register(),
	}
}

// loadConfig returns the configuration named by the command's config flag.
//
// The runner's own config is reused when the flag points at the file it was loaded from.
// A missing file yields the defaults.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	path := cmd.String("config")
	if r.config != nil && (path == "" || path == r.configPath) {
		return r.config, nil
	}

	if _, err := os.Stat(path); err != nil {
		r.logger.Info("config file not found, using defaults", "path", path)
		r.config, r.configPath = shared.DefaultConfig(), path
		return r.config, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	r.config, r.configPath = config, path
	return config, nil
}

// openDatabase loads the config and opens its migrated database.
func (r *Runner) openDatabase(cmd *cli.Command) (*shared.Config, *sql.DB, error) {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return config, db, nil
}

// userByEmail resolves the --email flag to a stored user.
func (r *Runner) userByEmail(db *sql.DB, cmd *cli.Command) (*models.User, error) {
	email := cmd.String("email")
	if email == "" {
		return nil, fmt.Errorf("%w: --email flag is required", shared.ErrMissingArgument)
	}
	return repositories.NewUserRepository(db).GetByEmail(email)
}

// spotifyService builds the application-level Spotify client, or nil when none is configured.
func (r *Runner) spotifyService(config *shared.Config) (*services.SpotifyService, error) {
	if !config.HasSpotify() {
		return nil, nil
	}

	srv, err := services.NewSpotifyService(config.Credentials.Spotify.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}
	return srv, nil
}

func retryPolicy(config *shared.Config) services.RetryPolicy {
	return services.RetryPolicy{
		MaxAttempts: config.Upstream.MaxAttempts,
		BaseDelay:   config.Upstream.BaseDelay.Duration,
	}
}

// trackSource wires a [services.TrackSource] over the database's credential and catalog stores.
func (r *Runner) trackSource(config *shared.Config, db *sql.DB) (*services.TrackSource, error) {
	srv, err := r.spotifyService(config)
	if err != nil {
		return nil, err
	}

	return services.NewTrackSource(srv, repositories.NewCredentialRepository(db), services.TrackSourceConfig{
		Retry:         retryPolicy(config),
		RefreshBuffer: config.Upstream.RefreshBuffer.Duration,
		SearchLimit:   config.Catalog.SearchLimit,
		Songs:         repositories.NewSongRepository(db),
		Artists:       repositories.NewArtistRepository(db),
		Logger:        r.logger,
	}), nil
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
