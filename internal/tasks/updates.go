package tasks

import (
	"fmt"

	"github.com/desertthunder/musive/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, zero when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchLibrary Phase = iota
	CacheSongs
	FavoriteSongs
	FetchPlaylists
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case FetchLibrary:
		return "fetch_library"
	case CacheSongs:
		return "cache_songs"
	case FavoriteSongs:
		return "favorite_songs"
	case FetchPlaylists:
		return "fetch_playlists"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchPageUpdate(page, offset, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLibrary,
		Step:    offset,
		Total:   total,
		Message: fmt.Sprintf("Fetching saved tracks (page %d)...", page),
	}
}

func cachedSongsUpdate(step, total int, songs []models.Song) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CacheSongs,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Cached %d songs", step, total, len(songs)),
		Data:    songs,
	}
}

func favoritedUpdate(step, total int, song models.Song) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FavoriteSongs,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ♥ %s - %s", step, total, song.Artist.Name, song.Title),
	}
}

func fetchPlaylistsUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Loading %d playlists...", total),
	}
}

func exportingPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, name, err),
	}
}
