// Spotify Web API client used by the track source adapter and the CLI auth flow.
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// ProductPremium is the account product that unlocks full-track playback.
	ProductPremium = "premium"
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []SpotifyImage `json:"images"`
}

// Premium reports whether the account carries the premium entitlement.
func (u *SpotifyUser) Premium() bool {
	return u != nil && u.Product == ProductPremium
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	PreviewURL string          `json:"preview_url"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Genres     []string       `json:"genres"`
	Images     []SpotifyImage `json:"images"`
	Popularity int            `json:"popularity"`
	URI        string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items  []SpotifySavedTrack `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Next   *string             `json:"next"`
}

type trackPage struct {
	Items []SpotifyTrack `json:"items"`
	Total int            `json:"total"`
}

type artistPage struct {
	Items []SpotifyArtist `json:"items"`
	Total int           `json:"total"`
}

// SpotifySearchResult holds the sections of a search response that were requested.
type SpotifySearchResult struct {
	Tracks  *trackPage  `json:"tracks"`
	Artists *artistPage `json:"artists"`
}

// SpotifyService talks to the Spotify Web API on behalf of one token.
//
// The zero-token service can only build auth URLs and exchange codes; [SpotifyService.ForToken] binds a token.
type SpotifyService struct {
	config     *oauth2.Config
	token      *oauth2.Token
	httpClient *http.Client
	baseURL    string
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-read-email",
			"user-library-read",
			"user-top-read",
			"user-read-playback-state",
			"user-modify-playback-state",
			"streaming",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// SetBaseURL points API calls at another host, used with httptest servers.
func (s *SpotifyService) SetBaseURL(u string) {
	s.baseURL = strings.TrimSuffix(u, "/")
}

// SetTokenURL points token exchange and refresh at another host.
func (s *SpotifyService) SetTokenURL(u string) {
	s.config.Endpoint.TokenURL = u
}

// BaseURL returns the API root used for requests.
func (s *SpotifyService) BaseURL() string {
	return s.baseURL
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Refresh exchanges refreshToken for a new access token.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	token, err := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}

// ForToken returns a copy of the service that authenticates as token.
func (s *SpotifyService) ForToken(ctx context.Context, token *oauth2.Token) *SpotifyService {
	bound := *s
	bound.token = token
	bound.httpClient = s.config.Client(ctx, token)
	return &bound
}

// HTTPClient returns the token-bound client, or nil before [SpotifyService.ForToken].
func (s *SpotifyService) HTTPClient() *http.Client {
	if s.token == nil {
		return nil
	}
	return s.httpClient
}

// doRequest performs an authenticated GET request to the Spotify API.
//
// A 429 response wraps [shared.ErrRateLimited] so callers can retry; a 401 wraps [shared.ErrTokenExpired].
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.token == nil {
		return shared.ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: retry after %q", shared.ErrRateLimited, resp.Header.Get("Retry-After"))
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: spotify returned 401", shared.ErrTokenExpired)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: spotify status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}
	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SavedTracks retrieves the user's saved tracks with pagination.
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error) {
	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", clampLimit(limit), offset)

	var response SpotifyPaginatedTracks
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// SearchTracks runs a track search for query.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) ([]SpotifyTrack, error) {
	result, err := s.search(ctx, query, "track", limit)
	if err != nil {
		return nil, err
	}
	if result.Tracks == nil {
		return nil, nil
	}
	return result.Tracks.Items, nil
}

// SearchArtists runs an artist search for query.
func (s *SpotifyService) SearchArtists(ctx context.Context, query string, limit int) ([]SpotifyArtist, error) {
	result, err := s.search(ctx, query, "artist", limit)
	if err != nil {
		return nil, err
	}
	if result.Artists == nil {
		return nil, nil
	}
	return result.Artists.Items, nil
}

// TopArtists retrieves the user's most listened artists.
func (s *SpotifyService) TopArtists(ctx context.Context, limit int) ([]SpotifyArtist, error) {
	var page artistPage
	if err := s.doRequest(ctx, fmt.Sprintf("/me/top/artists?limit=%d", clampLimit(limit)), &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*SpotifyTrack, error) {
	var track SpotifyTrack
	if err := s.doRequest(ctx, "/tracks/"+url.PathEscape(trackID), &track); err != nil {
		return nil, err
	}
	return &track, nil
}

func (s *SpotifyService) search(ctx context.Context, query, kind string, limit int) (*SpotifySearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", kind)
	params.Set("limit", strconv.Itoa(clampLimit(limit)))

	var result SpotifySearchResult
	if err := s.doRequest(ctx, "/search?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 20
	case limit > 50:
		return 50
	default:
		return limit
	}
}

// ToSong maps an upstream track to the canonical [models.Song].
//
// Duration is truncated to whole seconds and the first album image and first artist are used.
func ToSong(t SpotifyTrack) models.Song {
	var artist models.ArtistRef
	if len(t.Artists) > 0 {
		artist = models.ArtistRef{ID: t.Artists[0].ID, Name: t.Artists[0].Name}
	}

	var image string
	if len(t.Album.Images) > 0 {
		image = t.Album.Images[0].URL
	}

	return models.NewSong(t.ID, t.Name, max(t.DurationMS, 0)/1000, t.PreviewURL, image, artist, t.URI)
}

// ToArtist maps an upstream artist to [models.Artist].
func ToArtist(a SpotifyArtist) models.Artist {
	artist := models.Artist{ID: a.ID, Name: a.Name, Genres: a.Genres, Popularity: a.Popularity}
	if len(a.Images) > 0 {
		artist.ImageURL = a.Images[0].URL
	}
	if artist.Genres == nil {
		artist.Genres = []string{}
	}
	return artist
}
