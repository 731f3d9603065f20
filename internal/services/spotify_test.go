package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/musive/internal/shared"
	tu "github.com/desertthunder/musive/internal/testing"
	"golang.org/x/oauth2"
)

func newTestSpotify(t *testing.T, handler http.HandlerFunc) (*SpotifyService, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(map[string]string{"client_id": "id", "client_secret": "secret"})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	srv.SetBaseURL(server.URL)
	srv.SetTokenURL(server.URL + "/api/token")
	return srv, server
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://127.0.0.1:9999/callback",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.config.RedirectURL != "http://127.0.0.1:9999/callback" {
				t.Errorf("unexpected redirect URI %s", srv.config.RedirectURL)
			}
			if srv.HTTPClient() != nil {
				t.Error("unbound service should not expose a client")
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			for _, creds := range []map[string]string{
				{"client_secret": "s"},
				{"client_id": "i"},
			} {
				if _, err := NewSpotifyService(creds); !errors.Is(err, shared.ErrMissingCredentials) {
					t.Errorf("expected ErrMissingCredentials for %v, got %v", creds, err)
				}
			}
		})
	})

	t.Run("GetAuthURL", func(t *testing.T) {
		srv, _ := NewSpotifyService(map[string]string{"client_id": "test_client_id", "client_secret": "s"})

		authURL := srv.GetAuthURL("test_state")
		for _, want := range []string{"accounts.spotify.com", "test_client_id", "test_state", "user-modify-playback-state"} {
			if !strings.Contains(authURL, want) {
				t.Errorf("auth URL should contain %q: %s", want, authURL)
			}
		}
	})

	t.Run("Requires Token", func(t *testing.T) {
		srv, _ := NewSpotifyService(map[string]string{"client_id": "i", "client_secret": "s"})
		if _, err := srv.UserProfile(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("SearchTracks", func(t *testing.T) {
		srv, _ := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/search" {
				t.Errorf("expected /search, got %s", r.URL.Path)
			}
			q := r.URL.Query()
			if q.Get("type") != "track" || q.Get("q") != "weeknd" || q.Get("limit") != "20" {
				t.Errorf("unexpected query %v", q)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("expected bearer token, got %q", got)
			}
			tu.WriteJSON(t, w, http.StatusOK, map[string]any{
				"tracks": map[string]any{"items": []map[string]any{{
					"id": "t1", "name": "Blinding Lights", "duration_ms": 200999,
					"preview_url": "https://p.scdn.co/x", "uri": "spotify:track:t1",
					"artists": []map[string]any{{"id": "a1", "name": "The Weeknd"}},
					"album":   map[string]any{"images": []map[string]any{{"url": "https://i/1"}, {"url": "https://i/2"}}},
				}}},
			})
		})

		tracks, err := srv.ForToken(context.Background(), &oauth2.Token{AccessToken: "tok"}).SearchTracks(context.Background(), "weeknd", 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 1 {
			t.Fatalf("expected 1 track, got %d", len(tracks))
		}

		song := ToSong(tracks[0])
		if song.Duration != 200 {
			t.Errorf("expected truncated duration 200, got %d", song.Duration)
		}
		if !song.HasPreview || song.AudioURL != "https://p.scdn.co/x" {
			t.Errorf("expected preview, got %+v", song)
		}
		if song.ImageURL != "https://i/1" || song.Artist.Name != "The Weeknd" || song.ArtistID != "a1" {
			t.Errorf("unexpected mapping %+v", song)
		}
		if song.SpotifyURI != "spotify:track:t1" {
			t.Errorf("expected uri, got %s", song.SpotifyURI)
		}
	})

	t.Run("Status Mapping", func(t *testing.T) {
		tests := []struct {
			status int
			want   error
		}{
			{status: http.StatusTooManyRequests, want: shared.ErrRateLimited},
			{status: http.StatusUnauthorized, want: shared.ErrTokenExpired},
			{status: http.StatusInternalServerError, want: shared.ErrAPIRequest},
		}

		for _, tt := range tests {
			t.Run(http.StatusText(tt.status), func(t *testing.T) {
				srv, _ := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
				})

				_, err := srv.ForToken(context.Background(), &oauth2.Token{AccessToken: "tok"}).SavedTracks(context.Background(), 20, 0)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		srv, _ := NewSpotifyService(map[string]string{"client_id": "i", "client_secret": "s"})
		bound := srv.ForToken(context.Background(), &oauth2.Token{AccessToken: "tok"})
		bound.httpClient = &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}

		if _, err := bound.TopArtists(context.Background(), 10); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		srv, _ := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/token" {
				t.Errorf("expected token endpoint, got %s", r.URL.Path)
			}
			if err := r.ParseForm(); err != nil {
				t.Errorf("failed to parse form: %v", err)
			}
			if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "r1" {
				t.Errorf("unexpected form %v", r.Form)
			}
			tu.WriteJSON(t, w, http.StatusOK, map[string]any{"access_token": "fresh", "token_type": "Bearer", "expires_in": 3600})
		})

		token, err := srv.Refresh(context.Background(), "r1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.AccessToken != "fresh" {
			t.Errorf("expected fresh token, got %s", token.AccessToken)
		}
		if token.RefreshToken != "r1" {
			t.Errorf("expected refresh token to carry over, got %q", token.RefreshToken)
		}

		if _, err := srv.Refresh(context.Background(), ""); !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}
	})

	t.Run("ToArtist", func(t *testing.T) {
		a := ToArtist(SpotifyArtist{ID: "a1", Name: "Dua Lipa", Popularity: 90, Images: []SpotifyImage{{URL: "https://i/a"}}})
		if a.ImageURL != "https://i/a" || a.Popularity != 90 || a.Genres == nil {
			t.Errorf("unexpected artist %+v", a)
		}
	})

	t.Run("ToSong Without Artist Or Preview", func(t *testing.T) {
		s := ToSong(SpotifyTrack{ID: "t", Name: "Untitled", DurationMS: 999})
		if s.Artist.Name != "Unknown Artist" || s.Duration != 0 || s.HasPreview || s.AudioURL != "" {
			t.Errorf("unexpected song %+v", s)
		}
	})
}
