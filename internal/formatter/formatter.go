// package formatter exports playlists to CSV, Markdown, plain text and JSON files
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/shared"
)

// Supported export formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists the accepted values for a format flag.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// ExportToCSV converts a playlist to CSV with columns: Position, ID, Title, Artist, Duration, Preview, SpotifyURI
func ExportToCSV(playlist *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Title", "Artist", "Duration", "Preview", "SpotifyURI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, song := range playlist.Songs {
		record := []string{
			strconv.Itoa(i + 1),
			song.ID,
			song.Title,
			song.Artist.Name,
			strconv.Itoa(song.Duration),
			strconv.FormatBool(song.HasPreview),
			song.SpotifyURI,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a playlist to Markdown with an optional cover image
func ExportToMarkdown(playlist *models.Playlist, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", playlist.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if playlist.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", playlist.Description)
	}

	fmt.Fprintf(&buf, "**Songs**: %d\n", len(playlist.Songs))
	fmt.Fprintf(&buf, "**Length**: %s\n\n", shared.FormatDuration(int(playlist.TotalDuration().Seconds())))

	buf.WriteString("## Songs\n\n")
	for i, song := range playlist.Songs {
		marker := ""
		if !song.Playable() {
			marker = " (unavailable)"
		}
		fmt.Fprintf(&buf, "%d. %s - %s [%s]%s\n", i+1, song.Artist.Name, song.Title, shared.FormatDuration(song.Duration), marker)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a playlist to plain text
func ExportToText(playlist *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", playlist.Name)
	if playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", playlist.Description)
	}
	fmt.Fprintf(&buf, "Songs: %d\n\n", len(playlist.Songs))

	for i, song := range playlist.Songs {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, song.Artist.Name, song.Title)
	}

	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrMissingArgument)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// Metadata is the playlist summary written next to CSV exports.
type Metadata struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	SongCount   int       `json:"song_count"`
	Duration    int       `json:"duration"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without songs)
func ToMetadataJSON(playlist *models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(Metadata{
		ID:          playlist.ID,
		Name:        playlist.Name,
		Description: playlist.Description,
		SongCount:   len(playlist.Songs),
		Duration:    int(playlist.TotalDuration().Seconds()),
		CreatedAt:   playlist.CreatedAt,
		UpdatedAt:   playlist.UpdatedAt,
	}, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	SongsFile    string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV with an accompanying metadata JSON file.
//
// Creates {base}_songs.csv and {base}_metadata.json; base defaults to the playlist ID.
func WriteCSVExport(playlist *models.Playlist, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = playlist.ID
	}

	csvData, err := ExportToCSV(playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	songsFile := baseFilepath + "_songs.csv"
	if err := os.WriteFile(songsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{SongsFile: songsFile, MetadataFile: metadataFile}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a playlist to {dir}/README.md, with {dir}/cover.jpg when imageURL downloads.
//
// A failed cover download is reported as a warning on stderr, not an error.
func WriteMarkdownExport(playlist *models.Playlist, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = playlist.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	var coverImageFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(playlist, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

// WriteTextExport exports a playlist to plain text, defaulting to {playlist.ID}_songs.txt.
func WriteTextExport(playlist *models.Playlist, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_songs.txt", playlist.ID)
	}

	textData, err := ExportToText(playlist)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}
	return path, nil
}

// WriteJSONExport writes the playlist with its songs as indented JSON, defaulting to {playlist.ID}.json.
func WriteJSONExport(playlist *models.Playlist, path string) (string, error) {
	if path == "" {
		path = playlist.ID + ".json"
	}

	data, err := shared.MarshalJSON(playlist, true)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}
	return path, nil
}

// CoverURL returns the artwork of the first song that has one.
func CoverURL(playlist *models.Playlist) string {
	for _, s := range playlist.Songs {
		if s.ImageURL != "" {
			return s.ImageURL
		}
	}
	return ""
}

// Export writes playlist into dir in format and returns the files created.
//
// Cover images are only fetched for Markdown when withCover is set.
func Export(playlist *models.Playlist, format, dir string, withCover bool) ([]string, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		res, err := WriteCSVExport(playlist, filepath.Join(dir, playlist.ID))
		if err != nil {
			return nil, fmt.Errorf("CSV export failed: %w", err)
		}
		return []string{res.SongsFile, res.MetadataFile}, nil
	case FormatMarkdown, "md":
		var cover string
		if withCover {
			cover = CoverURL(playlist)
		}
		res, err := WriteMarkdownExport(playlist, filepath.Join(dir, playlist.ID), cover)
		if err != nil {
			return nil, fmt.Errorf("markdown export failed: %w", err)
		}
		return res.Files, nil
	case FormatText, "text":
		path, err := WriteTextExport(playlist, filepath.Join(dir, playlist.ID+"_songs.txt"))
		if err != nil {
			return nil, fmt.Errorf("text export failed: %w", err)
		}
		return []string{path}, nil
	case FormatJSON, "":
		path, err := WriteJSONExport(playlist, filepath.Join(dir, playlist.ID+".json"))
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}
