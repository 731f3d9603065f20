package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/musive/internal/shared"
)

// Playlist is an ordered song collection owned by exactly one user.
type Playlist struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Sequence    int        `json:"-"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Songs       []Song     `json:"songs"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"-"`
}

// NewPlaylist creates an empty playlist for userID.
func NewPlaylist(userID, name, description string) *Playlist {
	now := time.Now().UTC()
	return &Playlist{
		UserID:      userID,
		Name:        strings.TrimSpace(name),
		Description: description,
		Songs:       []Song{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (p *Playlist) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: playlist owner is required", shared.ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrValidation)
	}
	return nil
}

// TotalDuration sums the member song durations.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, s := range p.Songs {
		total += s.Length()
	}
	return total
}

// PlaylistSong links a song into a playlist at a position.
type PlaylistSong struct {
	ID         string    `json:"id"`
	PlaylistID string    `json:"playlist_id"`
	SongID     string    `json:"song_id"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}

func (ps *PlaylistSong) Validate() error {
	if ps.PlaylistID == "" || ps.SongID == "" {
		return fmt.Errorf("%w: playlist id and song id are required", shared.ErrValidation)
	}
	return nil
}

// Favorite joins a user and a song. At most one exists per (user, song).
type Favorite struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	SongID    string    `json:"song_id"`
	Song      Song      `json:"songs"`
	CreatedAt time.Time `json:"created_at"`
}

func (f *Favorite) Validate() error {
	if f.UserID == "" || f.SongID == "" {
		return fmt.Errorf("%w: user id and song id are required", shared.ErrValidation)
	}
	return nil
}
