package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/musive/internal/formatter"
	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/shared"
)

// memoryPlaylists is a PlaylistLoader over a fixed set owned by one user.
type memoryPlaylists struct {
	owner     string
	playlists []*models.Playlist
	listErr   error
}

func (m *memoryPlaylists) GetOwned(id, userID string) (*models.Playlist, error) {
	if userID != m.owner {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	for _, p := range m.playlists {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
}

func (m *memoryPlaylists) ListByUser(userID string) ([]*models.Playlist, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if userID != m.owner {
		return []*models.Playlist{}, nil
	}
	return m.playlists, nil
}

func newMemoryPlaylists(owner string, n int) *memoryPlaylists {
	m := &memoryPlaylists{owner: owner}
	for i := range n {
		p := models.NewPlaylist(owner, fmt.Sprintf("Playlist %d", i+1), "test")
		p.ID = fmt.Sprintf("playlist%d", i+1)
		p.Songs = []models.Song{
			models.NewSong(fmt.Sprintf("song%d-1", i+1), "Song 1", 180, "", "", models.ArtistRef{ID: "a1", Name: "Artist 1"}, ""),
			models.NewSong(fmt.Sprintf("song%d-2", i+1), "Song 2", 200, "https://p.example/2.mp3", "", models.ArtistRef{ID: "a2", Name: "Artist 2"}, ""),
		}
		m.playlists = append(m.playlists, p)
	}
	return m
}

func readManifest(t *testing.T, path string) formatter.Manifest {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	var m formatter.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("failed to parse manifest: %v", err)
	}
	return m
}

func TestBulkExport(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		count     int
		wantFiles int
	}{
		{name: "json", format: formatter.FormatJSON, count: 1, wantFiles: 1},
		{name: "csv", format: formatter.FormatCSV, count: 3, wantFiles: 2},
		{name: "text", format: formatter.FormatText, count: 2, wantFiles: 1},
		{name: "markdown", format: formatter.FormatMarkdown, count: 1, wantFiles: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			loader := newMemoryPlaylists("owner", tt.count)

			result, err := NewPlaylistExporter(loader).BulkExport(context.Background(), nil, "owner", nil, BulkExportOpts{
				Format: tt.format, OutputDir: dir, RateLimit: 1000,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.TotalPlaylists != tt.count || result.SuccessfulExports != tt.count || result.FailedExports != 0 {
				t.Errorf("expected %d successful, got %+v", tt.count, result)
			}
			for i, res := range result.Results {
				if want := fmt.Sprintf("playlist%d", i+1); res.PlaylistID != want {
					t.Errorf("result %d: expected %s, got %s", i, want, res.PlaylistID)
				}
				if len(res.Files) != tt.wantFiles {
					t.Errorf("%s: expected %d files, got %d", res.PlaylistID, tt.wantFiles, len(res.Files))
				}
				for _, f := range res.Files {
					if _, err := os.Stat(f); err != nil {
						t.Errorf("expected file %s: %v", f, err)
					}
				}
			}

			manifest := readManifest(t, result.ManifestPath)
			if manifest.Format != tt.format || manifest.Successful != tt.count {
				t.Errorf("unexpected manifest: %+v", manifest)
			}
		})
	}
}

func TestBulkExport_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	loader := newMemoryPlaylists("owner", 2)

	prog := make(chan ProgressUpdate, 50)
	result, err := NewPlaylistExporter(loader).BulkExport(context.Background(), prog, "owner",
		[]string{"playlist1", "missing", "playlist2"},
		BulkExportOpts{Format: formatter.FormatJSON, OutputDir: dir, NumWorkers: 2, RateLimit: 1000},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.SuccessfulExports != 2 || result.FailedExports != 1 {
		t.Errorf("expected 2 ok and 1 failed, got %d and %d", result.SuccessfulExports, result.FailedExports)
	}

	failed := result.Results[1]
	if failed.Success || failed.PlaylistID != "missing" || !strings.Contains(failed.Error, "not found") {
		t.Errorf("unexpected failed result: %+v", failed)
	}

	manifest := readManifest(t, filepath.Join(dir, "export_manifest.json"))
	if manifest.Total != 3 || manifest.Failed != 1 || len(manifest.Results) != 3 {
		t.Errorf("unexpected manifest: %+v", manifest)
	}

	close(prog)
	var sawFailure bool
	for u := range prog {
		if u.Phase == ExportPlaylist && strings.Contains(u.Message, "✗") {
			sawFailure = true
		}
	}
	if !sawFailure {
		t.Error("expected a failure progress update")
	}
}

func TestBulkExport_Ownership(t *testing.T) {
	dir := t.TempDir()
	loader := newMemoryPlaylists("owner", 1)

	result, err := NewPlaylistExporter(loader).BulkExport(context.Background(), nil, "intruder",
		[]string{"playlist1"}, BulkExportOpts{OutputDir: dir, RateLimit: 1000},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SuccessfulExports != 0 || result.FailedExports != 1 {
		t.Errorf("expected the foreign playlist to fail, got %+v", result)
	}
	if _, err := os.Stat(filepath.Join(dir, "playlist1.json")); !os.IsNotExist(err) {
		t.Error("foreign playlist must not be written")
	}
}

func TestBulkExport_InvalidFormat(t *testing.T) {
	loader := newMemoryPlaylists("owner", 1)

	result, err := NewPlaylistExporter(loader).BulkExport(context.Background(), nil, "owner", nil,
		BulkExportOpts{Format: "xml", OutputDir: t.TempDir(), RateLimit: 1000},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FailedExports != 1 || !strings.Contains(result.Results[0].Error, "unknown format") {
		t.Errorf("expected unknown format failure, got %+v", result.Results)
	}
}

func TestBulkExport_Errors(t *testing.T) {
	t.Run("Nil Loader", func(t *testing.T) {
		_, err := NewPlaylistExporter(nil).BulkExport(context.Background(), nil, "owner", nil, BulkExportOpts{})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Missing User", func(t *testing.T) {
		_, err := NewPlaylistExporter(newMemoryPlaylists("owner", 1)).BulkExport(context.Background(), nil, "", nil, BulkExportOpts{})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("List Failure", func(t *testing.T) {
		loader := &memoryPlaylists{owner: "owner", listErr: errors.New("db down")}
		_, err := NewPlaylistExporter(loader).BulkExport(context.Background(), nil, "owner", nil, BulkExportOpts{OutputDir: t.TempDir()})
		if err == nil || !strings.Contains(err.Error(), "db down") {
			t.Errorf("expected list error, got %v", err)
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		dir := t.TempDir()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := NewPlaylistExporter(newMemoryPlaylists("owner", 3)).BulkExport(ctx, nil, "owner", nil,
			BulkExportOpts{OutputDir: dir, RateLimit: 1000},
		)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result.SuccessfulExports != 0 || result.FailedExports != 3 {
			t.Errorf("expected every export cancelled, got %+v", result)
		}
		if _, err := os.Stat(result.ManifestPath); err != nil {
			t.Errorf("manifest should still be written: %v", err)
		}
	})

	t.Run("Default Output Directory", func(t *testing.T) {
		t.Chdir(t.TempDir())

		result, err := NewPlaylistExporter(newMemoryPlaylists("owner", 1)).BulkExport(context.Background(), nil, "owner", nil,
			BulkExportOpts{RateLimit: 1000},
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(result.OutputDirectory, "musive_export_") {
			t.Errorf("unexpected default directory %q", result.OutputDirectory)
		}
	})
}
