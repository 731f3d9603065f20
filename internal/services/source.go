package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/shared"
	"golang.org/x/oauth2"
)

// TrackSourceConfig tunes a [TrackSource].
type TrackSourceConfig struct {
	Retry         RetryPolicy
	RefreshBuffer time.Duration
	SearchLimit   int
	Songs         SongCacher   // optional
	Artists       ArtistCacher // optional
	Logger        *log.Logger
	Now           func() time.Time
}

// TrackSource resolves a caller's songs and artists from Spotify, degrading to fixed fallback data.
//
// Its methods never return an error: missing credentials, failed refreshes, exhausted
// retries and empty results all produce the fallback list filtered by the search string.
type TrackSource struct {
	spotify *SpotifyService
	creds   CredentialStore
	cfg     TrackSourceConfig
	logger  *log.Logger
}

// NewTrackSource creates a TrackSource. spotify may be nil when no application credentials are configured.
func NewTrackSource(spotify *SpotifyService, creds CredentialStore, cfg TrackSourceConfig) *TrackSource {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.RefreshBuffer == 0 {
		cfg.RefreshBuffer = 5 * time.Minute
	}
	if cfg.SearchLimit == 0 {
		cfg.SearchLimit = 20
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &TrackSource{
		spotify: spotify,
		creds:   creds,
		cfg:     cfg,
		logger:  shared.WithLogger(logger, "component", "tracksource"),
	}
}

// Songs returns the caller's saved tracks, or search results when search is non-empty.
//
// Exactly one upstream query is issued (plus retries on rate limiting).
func (s *TrackSource) Songs(ctx context.Context, userID, search string) []models.Song {
	songs := s.upstreamSongs(ctx, userID, search)
	if len(songs) == 0 {
		songs = FallbackSongs(search)
	}

	if s.cfg.Songs != nil && len(songs) > 0 {
		if err := s.cfg.Songs.CacheSongs(songs); err != nil {
			s.logger.Warn("failed to cache songs", "count", len(songs), "error", err)
		}
	}
	return songs
}

func (s *TrackSource) upstreamSongs(ctx context.Context, userID, search string) []models.Song {
	client, err := s.Client(ctx, userID)
	if err != nil {
		s.logger.Debug("using fallback songs", "user", userID, "reason", err)
		return nil
	}

	query := strings.TrimSpace(search)
	tracks, err := WithRetry(ctx, s.cfg.Retry, func(ctx context.Context) ([]SpotifyTrack, error) {
		if query != "" {
			return client.SearchTracks(ctx, query, s.cfg.SearchLimit)
		}

		page, err := client.SavedTracks(ctx, s.cfg.SearchLimit, 0)
		if err != nil {
			return nil, err
		}
		tracks := make([]SpotifyTrack, 0, len(page.Items))
		for _, item := range page.Items {
			tracks = append(tracks, item.Track)
		}
		return tracks, nil
	})
	if err != nil {
		s.logger.Warn("spotify songs request failed, using fallback", "user", userID, "search", query, "error", err)
		return nil
	}

	songs := make([]models.Song, 0, len(tracks))
	for _, t := range tracks {
		if t.ID == "" {
			continue
		}
		songs = append(songs, ToSong(t))
	}
	return songs
}

// Artists returns artists matching search, or the caller's top artists when search is empty.
func (s *TrackSource) Artists(ctx context.Context, userID, search string) []models.Artist {
	artists := s.upstreamArtists(ctx, userID, search)
	if len(artists) == 0 {
		return FallbackArtists(search)
	}

	if s.cfg.Artists != nil {
		for _, a := range artists {
			if err := s.cfg.Artists.Upsert(a); err != nil {
				s.logger.Warn("failed to cache artist", "artist", a.ID, "error", err)
				break
			}
		}
	}
	return artists
}

func (s *TrackSource) upstreamArtists(ctx context.Context, userID, search string) []models.Artist {
	client, err := s.Client(ctx, userID)
	if err != nil {
		s.logger.Debug("using fallback artists", "user", userID, "reason", err)
		return nil
	}

	query := strings.TrimSpace(search)
	upstream, err := WithRetry(ctx, s.cfg.Retry, func(ctx context.Context) ([]SpotifyArtist, error) {
		if query != "" {
			return client.SearchArtists(ctx, query, s.cfg.SearchLimit)
		}
		return client.TopArtists(ctx, s.cfg.SearchLimit)
	})
	if err != nil {
		s.logger.Warn("spotify artists request failed, using fallback", "user", userID, "search", query, "error", err)
		return nil
	}

	artists := make([]models.Artist, 0, len(upstream))
	for _, a := range upstream {
		if a.ID == "" {
			continue
		}
		artists = append(artists, ToArtist(a))
	}
	return artists
}

// Client returns a Spotify client authenticated as userID, refreshing the stored token
// when it is expired or within the refresh buffer of expiry.
func (s *TrackSource) Client(ctx context.Context, userID string) (*SpotifyService, error) {
	if s.spotify == nil {
		return nil, fmt.Errorf("%w: spotify application credentials", shared.ErrMissingCredentials)
	}
	if userID == "" || s.creds == nil {
		return nil, shared.ErrNotAuthenticated
	}

	cred, err := s.creds.Get(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMissingCredentials, err)
	}

	if cred.ExpiresWithin(s.cfg.Now(), s.cfg.RefreshBuffer) {
		token, err := s.spotify.Refresh(ctx, cred.RefreshToken)
		if err != nil {
			return nil, err
		}

		cred.AccessToken = token.AccessToken
		cred.RefreshToken = token.RefreshToken
		cred.TokenType = token.TokenType
		cred.ExpiresAt = token.Expiry
		if err := s.creds.Save(cred); err != nil {
			s.logger.Warn("failed to persist refreshed token", "user", userID, "error", err)
		}
		s.logger.Debug("refreshed spotify token", "user", userID, "expires", cred.ExpiresAt)
	}

	return s.spotify.ForToken(ctx, CredentialToken(cred)), nil
}

// Premium reports whether userID's Spotify account has the premium entitlement.
func (s *TrackSource) Premium(ctx context.Context, userID string) bool {
	client, err := s.Client(ctx, userID)
	if err != nil {
		return false
	}

	profile, err := WithRetry(ctx, s.cfg.Retry, client.UserProfile)
	if err != nil {
		s.logger.Warn("failed to read spotify profile", "user", userID, "error", err)
		return false
	}
	return profile.Premium()
}

// CredentialToken converts a stored credential to an [oauth2.Token].
func CredentialToken(c *models.SpotifyCredential) *oauth2.Token {
	return &oauth2.Token{AccessToken: c.AccessToken, RefreshToken: c.RefreshToken, TokenType: c.TokenType, Expiry: c.ExpiresAt}
}

// CredentialFromToken builds the stored form of token for userID.
func CredentialFromToken(userID string, token *oauth2.Token) *models.SpotifyCredential {
	return &models.SpotifyCredential{
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
	}
}
