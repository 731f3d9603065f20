package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/shared"
)

const playlistColumns = "id, user_id, sequence, name, description, created_at, updated_at"

// PlaylistRepository persists owner-scoped playlists and their ordered songs.
//
// Every read and write takes the caller's user ID. A playlist owned by someone else
// is reported as [shared.ErrPlaylistNotFound], exactly like a missing one.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new [PlaylistRepository] with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts playlist with a generated ID and sequence.
func (r *PlaylistRepository) Create(playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	playlist.ID = shared.GenerateID()
	playlist.Sequence = sequence
	if playlist.Songs == nil {
		playlist.Songs = []models.Song{}
	}

	_, err = r.db.Exec(
		"INSERT INTO playlists (id, user_id, sequence, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		playlist.ID, playlist.UserID, playlist.Sequence, playlist.Name, playlist.Description, playlist.CreatedAt, playlist.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", shared.ErrUserNotFound, playlist.UserID)
		}
		return fmt.Errorf("failed to insert playlist: %w", err)
	}
	return nil
}

// GetOwned retrieves playlist id with its songs when userID owns it.
func (r *PlaylistRepository) GetOwned(id, userID string) (*models.Playlist, error) {
	row := r.db.QueryRow(
		"SELECT "+playlistColumns+" FROM playlists WHERE id = ? AND user_id = ? AND deleted_at IS NULL",
		id, userID,
	)
	playlist, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist: %w", err)
	}

	songs, err := r.songsFor("ps.playlist_id = ?", id)
	if err != nil {
		return nil, err
	}
	playlist.Songs = songs[id]
	if playlist.Songs == nil {
		playlist.Songs = []models.Song{}
	}
	return playlist, nil
}

// ListByUser returns userID's playlists, newest first, each with its songs.
func (r *PlaylistRepository) ListByUser(userID string) ([]*models.Playlist, error) {
	rows, err := r.db.Query(
		"SELECT "+playlistColumns+" FROM playlists WHERE user_id = ? AND deleted_at IS NULL ORDER BY sequence DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []*models.Playlist{}
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	songs, err := r.songsFor("p.user_id = ? AND p.deleted_at IS NULL", userID)
	if err != nil {
		return nil, err
	}
	for _, p := range playlists {
		if s, ok := songs[p.ID]; ok {
			p.Songs = s
		} else {
			p.Songs = []models.Song{}
		}
	}
	return playlists, nil
}

// Delete soft-deletes playlist id if userID owns it.
func (r *PlaylistRepository) Delete(id, userID string) error {
	now := time.Now().UTC()
	result, err := r.db.Exec(
		"UPDATE playlists SET deleted_at = ?, updated_at = ? WHERE id = ? AND user_id = ? AND deleted_at IS NULL",
		now, now, id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return expectRow(result, shared.ErrPlaylistNotFound, id)
}

// AddSong appends songID to the end of playlist id. Adding a song already present returns the existing entry.
func (r *PlaylistRepository) AddSong(id, userID, songID string) (*models.PlaylistSong, error) {
	entry := &models.PlaylistSong{ID: shared.GenerateID(), PlaylistID: id, SongID: songID, CreatedAt: time.Now().UTC()}
	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := r.checkOwner(id, userID); err != nil {
		return nil, err
	}

	_, err := r.db.Exec(`
		INSERT INTO playlist_songs (id, playlist_id, song_id, position, created_at)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM playlist_songs WHERE playlist_id = ?), ?)
		ON CONFLICT(playlist_id, song_id) DO NOTHING`,
		entry.ID, id, songID, id, entry.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: %s", shared.ErrSongNotFound, songID)
		}
		return nil, fmt.Errorf("failed to add song to playlist: %w", err)
	}

	err = r.db.QueryRow(
		"SELECT id, playlist_id, song_id, position, created_at FROM playlist_songs WHERE playlist_id = ? AND song_id = ?",
		id, songID,
	).Scan(&entry.ID, &entry.PlaylistID, &entry.SongID, &entry.Position, &entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist entry: %w", err)
	}

	r.touch(id)
	return entry, nil
}

// RemoveSong removes songID from playlist id. Removing a song that is not present succeeds.
func (r *PlaylistRepository) RemoveSong(id, userID, songID string) error {
	if err := r.checkOwner(id, userID); err != nil {
		return err
	}

	if _, err := r.db.Exec("DELETE FROM playlist_songs WHERE playlist_id = ? AND song_id = ?", id, songID); err != nil {
		return fmt.Errorf("failed to remove song from playlist: %w", err)
	}

	r.touch(id)
	return nil
}

func (r *PlaylistRepository) checkOwner(id, userID string) error {
	var owned bool
	err := r.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM playlists WHERE id = ? AND user_id = ? AND deleted_at IS NULL)",
		id, userID,
	).Scan(&owned)
	if err != nil {
		return fmt.Errorf("failed to check playlist owner: %w", err)
	}
	if !owned {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return nil
}

// touch bumps updated_at. Failures are ignored because the membership write already succeeded.
func (r *PlaylistRepository) touch(id string) {
	_, _ = r.db.Exec("UPDATE playlists SET updated_at = ? WHERE id = ?", time.Now().UTC(), id)
}

// songsFor loads member songs of playlists matching where, grouped by playlist ID in position order.
func (r *PlaylistRepository) songsFor(where string, args ...any) (map[string][]models.Song, error) {
	query := `
		SELECT ps.playlist_id, s.id, s.title, s.duration, s.audio_url, s.image_url, s.spotify_uri, a.id, a.name
		FROM playlist_songs ps
		JOIN playlists p ON p.id = ps.playlist_id
		JOIN songs s ON s.id = ps.song_id
		JOIN artists a ON a.id = s.artist_id
		WHERE ` + where + `
		ORDER BY ps.playlist_id, ps.position ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist songs: %w", err)
	}
	defer rows.Close()

	bySongs := make(map[string][]models.Song)
	for rows.Next() {
		var playlistID string
		song, err := scanSong(rows, &playlistID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist song: %w", err)
		}
		bySongs[playlistID] = append(bySongs[playlistID], *song)
	}
	return bySongs, rows.Err()
}

func scanPlaylist(row scanner) (*models.Playlist, error) {
	var p models.Playlist
	if err := row.Scan(&p.ID, &p.UserID, &p.Sequence, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
