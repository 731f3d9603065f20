package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/musive/internal/player"
	"github.com/desertthunder/musive/internal/services"
	"github.com/desertthunder/musive/internal/shared"
	"github.com/desertthunder/musive/internal/ui"
	"github.com/desertthunder/musive/internal/web"
	"github.com/urfave/cli/v3"
)

// Play launches the terminal player against a running musive server as the given user.
//
// Preview clips play through player.preview_command. Premium accounts with a Connect
// device also get full tracks.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	config, db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := r.userByEmail(db, cmd)
	if err != nil {
		return err
	}

	token, err := web.IssueToken([]byte(config.Session.Secret), user.ID, config.Session.TTL.Duration)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	source, err := r.trackSource(config, db)
	if err != nil {
		return err
	}

	client := services.NewAPIService(config.Server.BaseURL, token, r.httpClient)
	model := ui.NewModel(ctx, client, r.playerFactory(ctx, config, source, user.ID))

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// playerFactory builds the engines once and returns a factory attaching a driver to each controller.
func (r *Runner) playerFactory(ctx context.Context, config *shared.Config, source *services.TrackSource, userID string) ui.PlayerFactory {
	interval := config.Player.PollInterval.Duration
	opts := player.DriverOptions{
		Preview: player.NewPreviewEngine(player.NewProcessElement(config.Player.PreviewCommand), interval),
		Logger:  r.logger,
	}

	if source.Premium(ctx, userID) {
		opts.Entitled = true
		if premium, err := r.premiumEngine(ctx, config, source, userID); err != nil {
			r.logger.Warn("premium playback unavailable", "error", err)
		} else {
			opts.Premium = premium
			opts.SessionReady = true
		}
	}

	r.logger.Info("player ready", "entitled", opts.Entitled, "session", opts.SessionReady)
	return func(ctx context.Context, ctrl *player.Controller) ui.Player {
		return player.NewDriver(ctx, ctrl, opts)
	}
}

func (r *Runner) premiumEngine(ctx context.Context, config *shared.Config, source *services.TrackSource, userID string) (*player.PremiumEngine, error) {
	client, err := source.Client(ctx, userID)
	if err != nil {
		return nil, err
	}

	engine := player.NewPremiumEngine(client.HTTPClient(), player.PremiumOptions{
		BaseURL:      client.BaseURL(),
		DeviceName:   config.Player.DeviceName,
		PollInterval: config.Player.PollInterval.Duration,
		Logger:       r.logger,
	})
	if err := engine.Ready(ctx); err != nil {
		return nil, err
	}
	return engine, nil
}
