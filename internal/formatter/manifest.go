package formatter

import (
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/musive/internal/shared"
)

// ExportResult records the outcome of exporting one playlist.
type ExportResult struct {
	PlaylistID   string   `json:"playlist_id"`
	PlaylistName string   `json:"playlist_name"`
	Success      bool     `json:"success"`
	Files        []string `json:"files,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// Manifest summarizes a bulk export.
type Manifest struct {
	Format          string         `json:"format"`
	OutputDirectory string         `json:"output_directory"`
	ExportedAt      time.Time      `json:"exported_at"`
	Total           int            `json:"total"`
	Successful      int            `json:"successful"`
	Failed          int            `json:"failed"`
	Results         []ExportResult `json:"results"`
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(m *Manifest, path string) error {
	if m.ExportedAt.IsZero() {
		m.ExportedAt = time.Now().UTC()
	}
	if m.Results == nil {
		m.Results = []ExportResult{}
	}

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
