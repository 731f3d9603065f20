package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/shared"
)

// unknownArtistID keys songs cached without an upstream artist.
const unknownArtistID = "unknown-artist"

const songSelect = `
	SELECT s.id, s.title, s.duration, s.audio_url, s.image_url, s.spotify_uri, a.id, a.name
	FROM songs s
	JOIN artists a ON a.id = s.artist_id`

// SongRepository persists the local song catalog.
type SongRepository struct {
	db *sql.DB
}

func NewSongRepository(db *sql.DB) *SongRepository {
	return &SongRepository{db: db}
}

// Upsert stores song and its embedded artist in one transaction.
func (r *SongRepository) Upsert(song models.Song) error {
	return r.UpsertMany([]models.Song{song})
}

// UpsertMany stores every song and its artist in one transaction.
func (r *SongRepository) UpsertMany(songs []models.Song) error {
	for _, s := range songs {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, s := range songs {
		artistID, artistName := s.Artist.ID, s.Artist.Name
		if artistID == "" {
			artistID, artistName = unknownArtistID, models.UnknownArtist
		}

		if _, err := tx.Exec(`
			INSERT INTO artists (id, name, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
			artistID, artistName, now,
		); err != nil {
			return fmt.Errorf("failed to upsert artist %s: %w", artistID, err)
		}

		if _, err := tx.Exec(`
			INSERT INTO songs (id, title, duration, audio_url, image_url, artist_id, spotify_uri, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				duration = excluded.duration,
				audio_url = excluded.audio_url,
				image_url = excluded.image_url,
				artist_id = excluded.artist_id,
				spotify_uri = excluded.spotify_uri,
				updated_at = excluded.updated_at`,
			s.ID, s.Title, s.Duration, s.AudioURL, s.ImageURL, artistID, s.SpotifyURI, now,
		); err != nil {
			return fmt.Errorf("failed to upsert song %s: %w", s.ID, err)
		}
	}

	return tx.Commit()
}

// CacheSongs stores upstream results so favorites and playlists can reference them.
func (r *SongRepository) CacheSongs(songs []models.Song) error {
	if len(songs) == 0 {
		return nil
	}
	return r.UpsertMany(songs)
}

// Get retrieves one song by ID.
func (r *SongRepository) Get(id string) (*models.Song, error) {
	song, err := scanSong(r.db.QueryRow(songSelect+" WHERE s.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSongNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query song: %w", err)
	}
	return song, nil
}

// List returns songs whose title or artist name contains search, case-insensitively.
//
// sqlite's lower() folds ASCII only, so matching runs in Go.
// A limit of zero or less returns every match.
func (r *SongRepository) List(search string, limit int) ([]models.Song, error) {
	rows, err := r.db.Query(songSelect + " ORDER BY s.title ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	songs := []models.Song{}
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		if !shared.MatchesSearch(search, song.Title, song.Artist.Name) {
			continue
		}
		songs = append(songs, *song)
		if limit > 0 && len(songs) == limit {
			break
		}
	}
	return songs, rows.Err()
}

// Count returns the number of cached songs.
func (r *SongRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM songs").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count songs: %w", err)
	}
	return n, nil
}

// scanSong reads the columns of songSelect, optionally preceded by extra destinations.
func scanSong(row scanner, extra ...any) (*models.Song, error) {
	var (
		s      models.Song
		artist models.ArtistRef
	)
	dest := append(extra, &s.ID, &s.Title, &s.Duration, &s.AudioURL, &s.ImageURL, &s.SpotifyURI, &artist.ID, &artist.Name)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	song := models.NewSong(s.ID, s.Title, s.Duration, s.AudioURL, s.ImageURL, artist, s.SpotifyURI)
	return &song, nil
}
