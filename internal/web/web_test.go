package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/repositories"
	"github.com/desertthunder/musive/internal/services"
	"github.com/desertthunder/musive/internal/shared"
)

var testSecret = []byte("test-secret")

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

type testApp struct {
	db      *sql.DB
	handler http.Handler
}

func newTestApp(t *testing.T, catalog Catalog) *testApp {
	t.Helper()

	db := setupTestDB(t)
	app := New(db, Options{Catalog: catalog, Secret: testSecret, Logger: log.New(&bytes.Buffer{})})
	return &testApp{db: db, handler: app.Handler()}
}

func (ta *testApp) user(t *testing.T, email string) (*models.User, string) {
	t.Helper()

	user := models.NewUser(email, "Listener")
	if err := repositories.NewUserRepository(ta.db).Create(user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	token, err := IssueToken(testSecret, user.ID, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return user, token
}

func (ta *testApp) seed(t *testing.T) []models.Song {
	t.Helper()

	songs := services.FallbackSongs("")
	if err := repositories.NewSongRepository(ta.db).CacheSongs(songs); err != nil {
		t.Fatalf("failed to seed songs: %v", err)
	}
	return songs
}

func (ta *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

type songBodyReq struct {
	SongID string `json:"songId"`
}

type catalogFunc func(ctx context.Context, userID, search string) []models.Song

func (f catalogFunc) Songs(ctx context.Context, userID, search string) []models.Song {
	return f(ctx, userID, search)
}

func (f catalogFunc) Artists(ctx context.Context, userID, search string) []models.Artist {
	return services.FallbackArtists(search)
}

func TestHealth(t *testing.T) {
	ta := newTestApp(t, nil)
	rec := ta.do(t, http.MethodGet, "/health", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody[map[string]string](t, rec); body["status"] != "ok" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestSongs(t *testing.T) {
	t.Run("Database Catalog", func(t *testing.T) {
		ta := newTestApp(t, nil)
		ta.seed(t)

		songs := decodeBody[[]models.Song](t, ta.do(t, http.MethodGet, "/songs", "", nil))
		if len(songs) != 5 {
			t.Fatalf("expected 5 songs, got %d", len(songs))
		}

		songs = decodeBody[[]models.Song](t, ta.do(t, http.MethodGet, "/songs?search=LIPA", "", nil))
		if len(songs) != 1 || songs[0].Title != "Levitating" {
			t.Errorf("expected Levitating, got %+v", songs)
		}
	})

	t.Run("Empty Result Encodes As Array", func(t *testing.T) {
		ta := newTestApp(t, nil)
		rec := ta.do(t, http.MethodGet, "/songs?search=nothing", "", nil)
		if strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Errorf("expected [], got %s", rec.Body.String())
		}
	})

	t.Run("Track Source Without Credentials Falls Back", func(t *testing.T) {
		db := setupTestDB(t)
		source := services.NewTrackSource(nil, repositories.NewCredentialRepository(db), services.TrackSourceConfig{
			Songs:  repositories.NewSongRepository(db),
			Logger: log.New(&bytes.Buffer{}),
		})
		app := New(db, Options{Catalog: source, Secret: testSecret, Logger: log.New(&bytes.Buffer{})})
		ta := &testApp{db: db, handler: app.Handler()}

		rec := ta.do(t, http.MethodGet, "/songs?search=weeknd", "", nil)
		songs := decodeBody[[]models.Song](t, rec)
		if len(songs) != 1 || songs[0].Title != "Blinding Lights" || songs[0].Duration != 201 {
			t.Fatalf("expected Blinding Lights fallback, got %+v", songs)
		}

		if count, err := repositories.NewSongRepository(db).Count(); err != nil || count != 1 {
			t.Errorf("expected fallback song to be cached, got %d (%v)", count, err)
		}
	})

	t.Run("Session Is Passed To Catalog", func(t *testing.T) {
		var seen string
		ta := newTestApp(t, catalogFunc(func(_ context.Context, userID, _ string) []models.Song {
			seen = userID
			return nil
		}))
		user, token := ta.user(t, "songs@example.com")

		rec := ta.do(t, http.MethodGet, "/songs", token, nil)
		if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Errorf("expected 200 [], got %d %s", rec.Code, rec.Body.String())
		}
		if seen != user.ID {
			t.Errorf("expected catalog to see user %s, got %q", user.ID, seen)
		}

		ta.do(t, http.MethodGet, "/songs", "garbage", nil)
		if seen != "" {
			t.Errorf("expected anonymous request with invalid token, got %q", seen)
		}
	})
}

func TestArtists(t *testing.T) {
	t.Run("Catalog", func(t *testing.T) {
		ta := newTestApp(t, catalogFunc(nil))
		artists := decodeBody[[]models.Artist](t, ta.do(t, http.MethodGet, "/artists?search=sheeran", "", nil))
		if len(artists) != 1 || artists[0].Name != "Ed Sheeran" {
			t.Errorf("expected Ed Sheeran, got %+v", artists)
		}
	})

	t.Run("Database", func(t *testing.T) {
		ta := newTestApp(t, nil)
		ta.seed(t)
		artists := decodeBody[[]models.Artist](t, ta.do(t, http.MethodGet, "/artists", "", nil))
		if len(artists) != 5 {
			t.Errorf("expected 5 cached artists, got %d", len(artists))
		}
	})
}

func TestFavorites(t *testing.T) {
	t.Run("Requires Session", func(t *testing.T) {
		ta := newTestApp(t, nil)
		for _, tc := range []struct{ method, token string }{
			{http.MethodGet, ""},
			{http.MethodPost, ""},
			{http.MethodDelete, ""},
			{http.MethodGet, "not-a-jwt"},
		} {
			rec := ta.do(t, tc.method, "/favorites", tc.token, songBodyReq{SongID: "demo-1"})
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("%s /favorites: expected 401, got %d", tc.method, rec.Code)
			}
		}
	})

	t.Run("Add Is Idempotent", func(t *testing.T) {
		ta := newTestApp(t, nil)
		songs := ta.seed(t)
		_, token := ta.user(t, "fav@example.com")

		first := ta.do(t, http.MethodPost, "/favorites", token, songBodyReq{SongID: songs[0].ID})
		if first.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d %s", first.Code, first.Body.String())
		}
		second := ta.do(t, http.MethodPost, "/favorites", token, songBodyReq{SongID: songs[0].ID})
		if second.Code != http.StatusCreated {
			t.Fatalf("expected 201 on repeat, got %d", second.Code)
		}

		a, b := decodeBody[models.Favorite](t, first), decodeBody[models.Favorite](t, second)
		if a.ID != b.ID {
			t.Errorf("expected the same favorite, got %s and %s", a.ID, b.ID)
		}

		favs := decodeBody[[]models.Favorite](t, ta.do(t, http.MethodGet, "/favorites", token, nil))
		if len(favs) != 1 || favs[0].Song.Title != songs[0].Title {
			t.Errorf("expected one favorite with nested song, got %+v", favs)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		ta := newTestApp(t, nil)
		songs := ta.seed(t)
		_, token := ta.user(t, "rm@example.com")

		ta.do(t, http.MethodPost, "/favorites", token, songBodyReq{SongID: songs[1].ID})

		for range 2 {
			rec := ta.do(t, http.MethodDelete, "/favorites", token, songBodyReq{SongID: songs[1].ID})
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if body := decodeBody[map[string]bool](t, rec); !body["success"] {
				t.Errorf("expected success, got %v", body)
			}
		}

		rec := ta.do(t, http.MethodGet, "/favorites", token, nil)
		if strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Errorf("expected no favorites, got %s", rec.Body.String())
		}
	})

	t.Run("Bad Requests", func(t *testing.T) {
		ta := newTestApp(t, nil)
		ta.seed(t)
		_, token := ta.user(t, "bad@example.com")

		if rec := ta.do(t, http.MethodPost, "/favorites", token, songBodyReq{}); rec.Code != http.StatusBadRequest {
			t.Errorf("missing songId: expected 400, got %d", rec.Code)
		}
		if rec := ta.do(t, http.MethodPost, "/favorites", token, songBodyReq{SongID: "missing"}); rec.Code != http.StatusNotFound {
			t.Errorf("unknown song: expected 404, got %d", rec.Code)
		}

		req := httptest.NewRequest(http.MethodPost, "/favorites", strings.NewReader("{"))
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		rec := httptest.NewRecorder()
		ta.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("malformed body via cookie session: expected 400, got %d", rec.Code)
		}
	})
}

func TestPlaylists(t *testing.T) {
	t.Run("Create List And Add Songs", func(t *testing.T) {
		ta := newTestApp(t, nil)
		songs := ta.seed(t)
		user, token := ta.user(t, "owner@example.com")

		rec := ta.do(t, http.MethodPost, "/playlists", token, map[string]string{"name": "Road Trip", "description": "long drives"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
		}
		playlist := decodeBody[models.Playlist](t, rec)
		if playlist.UserID != user.ID || playlist.Name != "Road Trip" {
			t.Errorf("unexpected playlist %+v", playlist)
		}

		for i, song := range songs[:2] {
			rec := ta.do(t, http.MethodPost, "/playlists/"+playlist.ID+"/songs", token, songBodyReq{SongID: song.ID})
			if rec.Code != http.StatusCreated {
				t.Fatalf("expected 201, got %d", rec.Code)
			}
			if entry := decodeBody[models.PlaylistSong](t, rec); entry.Position != i {
				t.Errorf("expected position %d, got %d", i, entry.Position)
			}
		}

		list := decodeBody[[]models.Playlist](t, ta.do(t, http.MethodGet, "/playlists", token, nil))
		if len(list) != 1 || len(list[0].Songs) != 2 || list[0].Songs[1].ID != songs[1].ID {
			t.Errorf("expected playlist with ordered songs, got %+v", list)
		}

		rec = ta.do(t, http.MethodDelete, "/playlists/"+playlist.ID+"/songs", token, songBodyReq{SongID: songs[0].ID})
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 on remove, got %d", rec.Code)
		}

		rec = ta.do(t, http.MethodDelete, "/playlists/"+playlist.ID, token, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 on delete, got %d", rec.Code)
		}
		if rec := ta.do(t, http.MethodGet, "/playlists", token, nil); strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Errorf("expected no playlists after delete, got %s", rec.Body.String())
		}
	})

	t.Run("Missing Name", func(t *testing.T) {
		ta := newTestApp(t, nil)
		_, token := ta.user(t, "noname@example.com")

		if rec := ta.do(t, http.MethodPost, "/playlists", token, map[string]string{"name": "  "}); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("Other Owners Get 404", func(t *testing.T) {
		ta := newTestApp(t, nil)
		songs := ta.seed(t)
		_, owner := ta.user(t, "a@example.com")
		_, intruder := ta.user(t, "b@example.com")

		playlist := decodeBody[models.Playlist](t, ta.do(t, http.MethodPost, "/playlists", owner, map[string]string{"name": "Mine"}))

		checks := []struct {
			method, path string
			body         any
		}{
			{http.MethodDelete, "/playlists/" + playlist.ID, nil},
			{http.MethodPost, "/playlists/" + playlist.ID + "/songs", songBodyReq{SongID: songs[0].ID}},
			{http.MethodDelete, "/playlists/" + playlist.ID + "/songs", songBodyReq{SongID: songs[0].ID}},
		}
		for _, c := range checks {
			intruded := ta.do(t, c.method, c.path, intruder, c.body)
			missing := ta.do(t, c.method, strings.Replace(c.path, playlist.ID, "does-not-exist", 1), owner, c.body)

			if intruded.Code != http.StatusNotFound || missing.Code != http.StatusNotFound {
				t.Errorf("%s %s: expected 404 for both, got %d and %d", c.method, c.path, intruded.Code, missing.Code)
			}
			if intruded.Body.String() != missing.Body.String() {
				t.Errorf("%s %s: responses differ: %s vs %s", c.method, c.path, intruded.Body.String(), missing.Body.String())
			}
		}

		list := decodeBody[[]models.Playlist](t, ta.do(t, http.MethodGet, "/playlists", owner, nil))
		if len(list) != 1 || len(list[0].Songs) != 0 {
			t.Errorf("owner playlist should be untouched, got %+v", list)
		}
	})

	t.Run("Unknown Song", func(t *testing.T) {
		ta := newTestApp(t, nil)
		_, token := ta.user(t, "unknown@example.com")
		playlist := decodeBody[models.Playlist](t, ta.do(t, http.MethodPost, "/playlists", token, map[string]string{"name": "Empty"}))

		rec := ta.do(t, http.MethodPost, "/playlists/"+playlist.ID+"/songs", token, songBodyReq{SongID: "nope"})
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestStoreFailures(t *testing.T) {
	newMockApp := func(t *testing.T) (http.Handler, sqlmock.Sqlmock, string) {
		t.Helper()

		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create sqlmock: %v", err)
		}
		t.Cleanup(func() { db.Close() })

		token, err := IssueToken(testSecret, "u1", time.Hour)
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}
		app := New(db, Options{Secret: testSecret, Logger: log.New(&bytes.Buffer{})})
		return app.Handler(), mock, token
	}

	userRows := func() *sqlmock.Rows {
		now := time.Now()
		return sqlmock.NewRows([]string{"id", "sequence", "email", "name", "created_at", "updated_at", "deleted_at"}).
			AddRow("u1", 1, "u1@example.com", "U1", now, now, nil)
	}

	t.Run("Favorites Query Fails", func(t *testing.T) {
		handler, mock, token := newMockApp(t)
		mock.ExpectQuery("SELECT (.+) FROM users").WillReturnRows(userRows())
		mock.ExpectQuery("SELECT (.+) FROM favorites").WillReturnError(errors.New("disk I/O error"))

		req := httptest.NewRequest(http.MethodGet, "/favorites", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "disk") {
			t.Errorf("internal detail leaked: %s", rec.Body.String())
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("Session Lookup Fails", func(t *testing.T) {
		handler, mock, token := newMockApp(t)
		mock.ExpectQuery("SELECT (.+) FROM users").WillReturnError(errors.New("database is locked"))

		req := httptest.NewRequest(http.MethodGet, "/playlists", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("Song Listing Fails", func(t *testing.T) {
		handler, mock, _ := newMockApp(t)
		mock.ExpectQuery("SELECT (.+) FROM songs").WillReturnError(errors.New("no such table"))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/songs", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}
