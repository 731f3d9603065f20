package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/shared"
)

// FavoriteRepository persists (user, song) favorites.
type FavoriteRepository struct {
	db *sql.DB
}

func NewFavoriteRepository(db *sql.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Add favorites songID for userID and returns the stored record.
//
// Adding an existing favorite returns the original record unchanged.
func (r *FavoriteRepository) Add(userID, songID string) (*models.Favorite, error) {
	fav := &models.Favorite{ID: shared.GenerateID(), UserID: userID, SongID: songID, CreatedAt: time.Now().UTC()}
	if err := fav.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	_, err := r.db.Exec(
		"INSERT INTO favorites (id, user_id, song_id, created_at) VALUES (?, ?, ?, ?) ON CONFLICT(user_id, song_id) DO NOTHING",
		fav.ID, userID, songID, fav.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: %s", shared.ErrSongNotFound, songID)
		}
		return nil, fmt.Errorf("failed to insert favorite: %w", err)
	}

	favs, err := r.list("f.user_id = ? AND f.song_id = ?", userID, songID)
	if err != nil {
		return nil, err
	}
	if len(favs) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrSongNotFound, songID)
	}
	return &favs[0], nil
}

// Remove deletes the favorite if present.
func (r *FavoriteRepository) Remove(userID, songID string) error {
	if _, err := r.db.Exec("DELETE FROM favorites WHERE user_id = ? AND song_id = ?", userID, songID); err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}
	return nil
}

// List returns userID's favorites, newest first, each with its song.
func (r *FavoriteRepository) List(userID string) ([]models.Favorite, error) {
	return r.list("f.user_id = ?", userID)
}

// SongIDs returns the set of song IDs userID has favorited.
func (r *FavoriteRepository) SongIDs(userID string) (map[string]bool, error) {
	rows, err := r.db.Query("SELECT song_id FROM favorites WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (r *FavoriteRepository) list(where string, args ...any) ([]models.Favorite, error) {
	query := `
		SELECT f.id, f.user_id, f.created_at, s.id, s.title, s.duration, s.audio_url, s.image_url, s.spotify_uri, a.id, a.name
		FROM favorites f
		JOIN songs s ON s.id = f.song_id
		JOIN artists a ON a.id = s.artist_id
		WHERE ` + where + `
		ORDER BY f.created_at DESC, f.rowid DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	favs := []models.Favorite{}
	for rows.Next() {
		var fav models.Favorite
		song, err := scanSong(rows, &fav.ID, &fav.UserID, &fav.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		fav.Song = *song
		fav.SongID = song.ID
		favs = append(favs, fav)
	}
	return favs, rows.Err()
}
