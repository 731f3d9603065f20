package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/musive/internal/server"
	"github.com/desertthunder/musive/internal/shared"
	"github.com/desertthunder/musive/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until the context is cancelled.
//
// With catalog.source = "spotify" songs and artists come from each caller's Spotify
// account through a [services.TrackSource]; otherwise the local catalog serves them.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := web.Options{
		SearchLimit: config.Catalog.SearchLimit,
		Secret:      []byte(config.Session.Secret),
		Logger:      r.logger,
	}

	if config.Catalog.Source == shared.CatalogSpotify {
		source, err := r.trackSource(config, db)
		if err != nil {
			return err
		}
		if !config.HasSpotify() {
			r.logger.Warn("spotify credentials not configured, serving fallback songs")
		}
		opts.Catalog = source
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = config.Server.Addr()
	}

	r.logger.Info("starting server", "addr", addr, "catalog", config.Catalog.Source, "database", config.Database.Path)
	if err := server.Serve(ctx, addr, web.New(db, opts).Handler(), r.logger); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	return nil
}
