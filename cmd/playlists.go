package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/musive/internal/repositories"
	"github.com/desertthunder/musive/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistsList prints the user's playlists with their song counts.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	_, db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := r.userByEmail(db, cmd)
	if err != nil {
		return err
	}

	playlists, err := repositories.NewPlaylistRepository(db).ListByUser(user.ID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Songs: %d\n\n", len(p.Songs))
	}
	return nil
}

// PlaylistsExport writes the selected playlists, or all of them, to files plus a manifest.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	_, db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := r.userByEmail(db, cmd)
	if err != nil {
		return err
	}

	exporter := tasks.NewPlaylistExporter(repositories.NewPlaylistRepository(db))
	opts := tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		WithCover:  cmd.Bool("cover"),
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchPlaylists:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ExportPlaylist:
				r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
			}
		}
	}()

	result, err := exporter.BulkExport(ctx, progressCh, user.ID, cmd.StringSlice("id"), opts)
	close(progressCh)
	<-done

	if result == nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Exported: %d/%d\n", result.SuccessfulExports, result.TotalPlaylists)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}

	if result.FailedExports > 0 {
		r.writePlain("\nFailed to export %d playlists:\n", result.FailedExports)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s: %s\n", displayName(res.PlaylistName, res.PlaylistID), res.Error)
			}
		}
	}

	if err != nil {
		return fmt.Errorf("export interrupted: %w", err)
	}
	return nil
}

func displayName(name, id string) string {
	if name == "" {
		return id
	}
	return name
}
