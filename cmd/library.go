package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/musive/internal/repositories"
	"github.com/desertthunder/musive/internal/tasks"
	"github.com/urfave/cli/v3"
)

// LibraryImport copies the user's saved Spotify tracks into the local catalog.
func (r *Runner) LibraryImport(ctx context.Context, cmd *cli.Command) error {
	config, db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := r.userByEmail(db, cmd)
	if err != nil {
		return err
	}

	source, err := r.trackSource(config, db)
	if err != nil {
		return err
	}

	engine := tasks.NewLibraryEngine(
		source,
		repositories.NewSongRepository(db),
		repositories.NewFavoriteRepository(db),
		retryPolicy(config),
	)
	opts := tasks.ImportOpts{
		PageSize:  cmd.Int("page-size"),
		MaxSongs:  cmd.Int("max"),
		RateLimit: cmd.Float("rate"),
		Favorite:  cmd.Bool("favorite"),
	}

	r.logger.Info("importing library", "user", user.ID, "max", opts.MaxSongs, "favorite", opts.Favorite)
	r.writePlain("Importing Spotify library for %s...\n\n", user.Email)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchLibrary:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.CacheSongs:
				r.writePlain("   %s\n", update.Message)
			case tasks.FavoriteSongs:
				r.writePlain("   ♥ %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Import(ctx, progressCh, user.ID, opts)
	close(progressCh)
	<-done

	if result != nil {
		r.writePlain("\n")
		r.writePlainHeader("Import Complete")
		r.writePlain("Pages fetched: %d\n", result.Pages)
		r.writePlain("Imported: %d of %d\n", result.Imported, result.Total)
		if result.Skipped > 0 {
			r.writePlain("Skipped (no track ID): %d\n", result.Skipped)
		}
		if opts.Favorite {
			r.writePlain("Favorited: %d\n", result.Favorited)
		}
	}

	if err != nil {
		return fmt.Errorf("library import stopped: %w", err)
	}
	return nil
}
