package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/musive/internal/formatter"
	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/shared"
	"golang.org/x/time/rate"
)

// PlaylistLoader reads owned playlists. Implemented by repositories.PlaylistRepository.
type PlaylistLoader interface {
	GetOwned(id, userID string) (*models.Playlist, error)
	ListByUser(userID string) ([]*models.Playlist, error)
}

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string  // Export format: json, csv, markdown, txt
	OutputDir  string  // Base output directory (default: musive_export_{epoch})
	NumWorkers int     // Concurrent workers (default: 5, max: 10)
	RateLimit  float64 // Playlists started per second (default: 5)
	WithCover  bool    // Download cover art for markdown exports
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []formatter.ExportResult // In request order
}

type exportJob struct {
	index    int
	playlist *models.Playlist
}

type exportOutcome struct {
	index  int
	result formatter.ExportResult
}

// PlaylistExporter writes a user's playlists to disk.
type PlaylistExporter struct {
	playlists PlaylistLoader
}

func NewPlaylistExporter(playlists PlaylistLoader) *PlaylistExporter {
	return &PlaylistExporter{playlists: playlists}
}

// BulkExport exports the given playlists of userID concurrently, or all of them when ids is empty.
//
// A playlist that cannot be loaded or written is recorded as failed without stopping the others.
// Cover downloads hit the network, so jobs are started through a rate limiter.
func (e *PlaylistExporter) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	userID string,
	ids []string,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if e.playlists == nil {
		return nil, fmt.Errorf("%w: playlist store not initialized", shared.ErrServiceUnavailable)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user", shared.ErrMissingArgument)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("musive_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}

	preloaded := map[string]*models.Playlist{}
	if len(ids) == 0 {
		all, err := e.playlists.ListByUser(userID)
		if err != nil {
			return nil, fmt.Errorf("failed to list playlists: %w", err)
		}
		for _, p := range all {
			ids = append(ids, p.ID)
			preloaded[p.ID] = p
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	total := len(ids)
	result := &BulkExportResult{
		TotalPlaylists:  total,
		OutputDirectory: opts.OutputDir,
		Results:         make([]formatter.ExportResult, total),
	}
	sendProgress(prog, fetchPlaylistsUpdate(total))

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan exportJob, total)
	outcomes := make(chan exportOutcome, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, outcomes, opts)
	}

	go func() {
		defer close(jobs)
		for i, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			playlist, ok := preloaded[id]
			if !ok {
				var err error
				if playlist, err = e.playlists.GetOwned(id, userID); err != nil {
					outcomes <- exportOutcome{index: i, result: formatter.ExportResult{
						PlaylistID:   id,
						PlaylistName: fmt.Sprintf("Unknown (%s)", id),
						Error:        fmt.Sprintf("failed to load playlist: %v", err),
					}}
					continue
				}
			}

			sendProgress(prog, exportingPlaylistUpdate(i+1, total, playlist.Name))
			jobs <- exportJob{index: i, playlist: playlist}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	completed := 0
	seen := make([]bool, total)
	for out := range outcomes {
		completed++
		seen[out.index] = true
		result.Results[out.index] = out.result

		res := out.result
		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, total, res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, total, res.PlaylistName, res.Error))
		}
	}

	for i, ok := range seen {
		if !ok {
			result.FailedExports++
			result.Results[i] = formatter.ExportResult{PlaylistID: ids[i], PlaylistName: ids[i], Error: "export cancelled"}
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	manifest := &formatter.Manifest{
		Format:          opts.Format,
		OutputDirectory: opts.OutputDir,
		Total:           total,
		Successful:      result.SuccessfulExports,
		Failed:          result.FailedExports,
		Results:         result.Results,
	}
	if err := formatter.WriteManifest(manifest, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// exportWorker exports playlists from the jobs channel until it closes.
func (e *PlaylistExporter) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	outcomes chan<- exportOutcome,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		res := formatter.ExportResult{PlaylistID: job.playlist.ID, PlaylistName: job.playlist.Name}
		if err := ctx.Err(); err != nil {
			res.Error = err.Error()
			outcomes <- exportOutcome{index: job.index, result: res}
			continue
		}

		files, err := formatter.Export(job.playlist, opts.Format, opts.OutputDir, opts.WithCover)
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Success = true
			res.Files = files
		}
		outcomes <- exportOutcome{index: job.index, result: res}
	}
}
