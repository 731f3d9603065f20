package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/shared"
)

// CredentialRepository stores one Spotify credential per user.
type CredentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get returns userID's credential or an error wrapping [shared.ErrNotFound].
func (r *CredentialRepository) Get(userID string) (*models.SpotifyCredential, error) {
	var c models.SpotifyCredential
	err := r.db.QueryRow(
		"SELECT user_id, access_token, refresh_token, token_type, expires_at, updated_at FROM spotify_credentials WHERE user_id = ?",
		userID,
	).Scan(&c.UserID, &c.AccessToken, &c.RefreshToken, &c.TokenType, &c.ExpiresAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("credential %w: %s", shared.ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}
	return &c, nil
}

// Save inserts or replaces userID's credential. An empty refresh token keeps the stored one.
func (r *CredentialRepository) Save(c *models.SpotifyCredential) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if c.TokenType == "" {
		c.TokenType = "Bearer"
	}
	c.UpdatedAt = time.Now().UTC()

	_, err := r.db.Exec(`
		INSERT INTO spotify_credentials (user_id, access_token, refresh_token, token_type, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token = '' THEN spotify_credentials.refresh_token ELSE excluded.refresh_token END,
			token_type = excluded.token_type,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		c.UserID, c.AccessToken, c.RefreshToken, c.TokenType, c.ExpiresAt.UTC(), c.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", shared.ErrUserNotFound, c.UserID)
		}
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Delete removes userID's credential.
func (r *CredentialRepository) Delete(userID string) error {
	if _, err := r.db.Exec("DELETE FROM spotify_credentials WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
