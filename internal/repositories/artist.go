package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/shared"
)

// ArtistRepository persists the local artist catalog.
type ArtistRepository struct {
	db *sql.DB
}

func NewArtistRepository(db *sql.DB) *ArtistRepository {
	return &ArtistRepository{db: db}
}

// Upsert inserts the artist or refreshes its metadata.
func (r *ArtistRepository) Upsert(artist models.Artist) error {
	if err := artist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	_, err := r.db.Exec(`
		INSERT INTO artists (id, name, image_url, genres, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			image_url = excluded.image_url,
			genres = excluded.genres,
			updated_at = excluded.updated_at`,
		artist.ID, artist.Name, artist.ImageURL, strings.Join(artist.Genres, ","), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert artist: %w", err)
	}
	return nil
}

// Get retrieves one artist by ID.
func (r *ArtistRepository) Get(id string) (*models.Artist, error) {
	row := r.db.QueryRow("SELECT id, name, image_url, genres FROM artists WHERE id = ?", id)
	artist, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artist %w: %s", shared.ErrNotFound, id)
	}
	return artist, err
}

// List returns artists whose name contains search, case-insensitively, ordered by name.
func (r *ArtistRepository) List(search string) ([]models.Artist, error) {
	rows, err := r.db.Query("SELECT id, name, image_url, genres FROM artists ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	artists := []models.Artist{}
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		if shared.MatchesSearch(search, artist.Name) {
			artists = append(artists, *artist)
		}
	}
	return artists, rows.Err()
}

func scanArtist(row scanner) (*models.Artist, error) {
	var (
		artist models.Artist
		genres string
	)
	if err := row.Scan(&artist.ID, &artist.Name, &artist.ImageURL, &genres); err != nil {
		return nil, err
	}
	if genres != "" {
		artist.Genres = strings.Split(genres, ",")
	}
	return &artist, nil
}
