// Interfaces implemented by the store and consumed by [TrackSource].
package services

import (
	"github.com/desertthunder/musive/internal/models"
)

// CredentialStore loads and persists per-user Spotify credentials.
type CredentialStore interface {
	Get(userID string) (*models.SpotifyCredential, error)
	Save(c *models.SpotifyCredential) error
}

// SongCacher stores songs returned to callers so later writes can reference them.
type SongCacher interface {
	CacheSongs(songs []models.Song) error
}

// ArtistCacher stores artists returned to callers.
type ArtistCacher interface {
	Upsert(artist models.Artist) error
}
