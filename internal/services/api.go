// HTTP client for the musive collection API, used by the terminal front end.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/shared"
)

// APIService makes requests to a musive server as one session.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// NewAPIService creates a client for the musive server at baseURL authenticating with a session token.
func NewAPIService(baseURL, token string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{baseURL: baseURL, httpClient: client, token: token}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Err maps a non-2xx response to the error taxonomy.
func (r *APIResponse) Err() error {
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return nil
	}

	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(r.Body, &body)
	if body.Error == "" {
		body.Error = http.StatusText(r.StatusCode)
	}

	switch r.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrUnauthorized, body.Error)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrNotFound, body.Error)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", shared.ErrValidation, body.Error)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, r.StatusCode, body.Error)
	}
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodPost, path, data)
}

// Delete performs a DELETE request, with a JSON body when data is non-nil.
func (a *APIService) Delete(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodDelete, path, data)
}

func (a *APIService) do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: respBody}, nil
}

// call sends payload as JSON and decodes a successful response into result.
func (a *APIService) call(ctx context.Context, method, path string, payload, result any) error {
	var data []byte
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	resp, err := a.do(ctx, method, path, data)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}
	return nil
}

type songRequest struct {
	SongID string `json:"songId"`
}

// Songs lists songs, filtered by search when non-empty.
func (a *APIService) Songs(ctx context.Context, search string) ([]models.Song, error) {
	path := "/songs"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}

	var songs []models.Song
	return songs, a.call(ctx, http.MethodGet, path, nil, &songs)
}

// Artists lists artists, filtered by search when non-empty.
func (a *APIService) Artists(ctx context.Context, search string) ([]models.Artist, error) {
	path := "/artists"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}

	var artists []models.Artist
	return artists, a.call(ctx, http.MethodGet, path, nil, &artists)
}

// Favorites lists the session user's favorites.
func (a *APIService) Favorites(ctx context.Context) ([]models.Favorite, error) {
	var favs []models.Favorite
	return favs, a.call(ctx, http.MethodGet, "/favorites", nil, &favs)
}

// FavoriteIDs returns the song IDs the session user has favorited.
func (a *APIService) FavoriteIDs(ctx context.Context) (map[string]bool, error) {
	favs, err := a.Favorites(ctx)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]bool, len(favs))
	for _, f := range favs {
		ids[f.SongID] = true
	}
	return ids, nil
}

// AddFavorite favorites songID.
func (a *APIService) AddFavorite(ctx context.Context, songID string) error {
	return a.call(ctx, http.MethodPost, "/favorites", songRequest{SongID: songID}, nil)
}

// RemoveFavorite unfavorites songID.
func (a *APIService) RemoveFavorite(ctx context.Context, songID string) error {
	return a.call(ctx, http.MethodDelete, "/favorites", songRequest{SongID: songID}, nil)
}

// Playlists lists the session user's playlists with their songs.
func (a *APIService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	return playlists, a.call(ctx, http.MethodGet, "/playlists", nil, &playlists)
}

// CreatePlaylist creates a playlist owned by the session user.
func (a *APIService) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	payload := map[string]string{"name": name, "description": description}

	var playlist models.Playlist
	if err := a.call(ctx, http.MethodPost, "/playlists", payload, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// DeletePlaylist deletes playlist id.
func (a *APIService) DeletePlaylist(ctx context.Context, id string) error {
	return a.call(ctx, http.MethodDelete, "/playlists/"+url.PathEscape(id), nil, nil)
}

// AddPlaylistSong appends songID to playlist id.
func (a *APIService) AddPlaylistSong(ctx context.Context, id, songID string) (*models.PlaylistSong, error) {
	var entry models.PlaylistSong
	if err := a.call(ctx, http.MethodPost, "/playlists/"+url.PathEscape(id)+"/songs", songRequest{SongID: songID}, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// RemovePlaylistSong removes songID from playlist id.
func (a *APIService) RemovePlaylistSong(ctx context.Context, id, songID string) error {
	return a.call(ctx, http.MethodDelete, "/playlists/"+url.PathEscape(id)+"/songs", songRequest{SongID: songID}, nil)
}
