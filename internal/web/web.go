package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/repositories"
	"github.com/desertthunder/musive/internal/server"
	"github.com/desertthunder/musive/internal/shared"
)

const maxBodyBytes = 1 << 20

// Catalog resolves songs and artists for a caller. [services.TrackSource] implements it.
type Catalog interface {
	Songs(ctx context.Context, userID, search string) []models.Song
	Artists(ctx context.Context, userID, search string) []models.Artist
}

// Options configures an [App].
type Options struct {
	// Catalog serves /songs and /artists. When nil the local database catalog is used.
	Catalog     Catalog
	SearchLimit int
	Secret      []byte
	Logger      *log.Logger
}

// App holds the repositories and session settings behind the HTTP handlers.
type App struct {
	users     UserLookup
	songs     *repositories.SongRepository
	artists   *repositories.ArtistRepository
	playlists *repositories.PlaylistRepository
	favorites *repositories.FavoriteRepository
	catalog   Catalog
	limit     int
	secret    []byte
	logger    *log.Logger
}

// New creates an App backed by db.
func New(db *sql.DB, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 20
	}

	return &App{
		users:     repositories.NewUserRepository(db),
		songs:     repositories.NewSongRepository(db),
		artists:   repositories.NewArtistRepository(db),
		playlists: repositories.NewPlaylistRepository(db),
		favorites: repositories.NewFavoriteRepository(db),
		catalog:   opts.Catalog,
		limit:     opts.SearchLimit,
		secret:    opts.Secret,
		logger:    shared.WithLogger(logger, "component", "web"),
	}
}

// Register mounts the middleware stack and every route on router.
func (a *App) Register(router *server.BasicRouter) {
	router.Use(
		server.RecoverMiddleware(a.logger),
		server.LoggingMiddleware(a.logger),
		a.SessionMiddleware(),
	)

	router.HandleFunc(http.MethodGet, "/health", a.health)
	router.HandleFunc(http.MethodGet, "/songs", a.listSongs)
	router.HandleFunc(http.MethodGet, "/artists", a.listArtists)

	router.HandleFunc(http.MethodGet, "/favorites", a.requireUser(a.listFavorites))
	router.HandleFunc(http.MethodPost, "/favorites", a.requireUser(a.addFavorite))
	router.HandleFunc(http.MethodDelete, "/favorites", a.requireUser(a.removeFavorite))

	router.HandleFunc(http.MethodGet, "/playlists", a.requireUser(a.listPlaylists))
	router.HandleFunc(http.MethodPost, "/playlists", a.requireUser(a.createPlaylist))
	router.HandleFunc(http.MethodDelete, "/playlists/{id}", a.requireUser(a.deletePlaylist))
	router.HandleFunc(http.MethodPost, "/playlists/{id}/songs", a.requireUser(a.addPlaylistSong))
	router.HandleFunc(http.MethodDelete, "/playlists/{id}/songs", a.requireUser(a.removePlaylistSong))
}

// Handler returns a router with every route registered.
func (a *App) Handler() http.Handler {
	router := server.NewBasicRouter()
	a.Register(router)
	return router
}

// writeError maps err onto a status code. Internal detail is logged, never written.
func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := http.StatusInternalServerError, "Internal server error"

	switch {
	case errors.Is(err, shared.ErrUnauthorized):
		status, message = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, shared.ErrPlaylistNotFound):
		status, message = http.StatusNotFound, "Playlist not found"
	case errors.Is(err, shared.ErrSongNotFound):
		status, message = http.StatusNotFound, "Song not found"
	case errors.Is(err, shared.ErrNotFound):
		status, message = http.StatusNotFound, "Not found"
	case errors.Is(err, shared.ErrValidation):
		status, message = http.StatusBadRequest, "Invalid request"
	}

	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		a.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	server.WriteError(w, status, message)
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed body: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

type songBody struct {
	SongID string `json:"songId"`
}

// songID decodes {"songId": "..."} and rejects a blank ID.
func songID(w http.ResponseWriter, r *http.Request) (string, error) {
	var body songBody
	if err := decode(w, r, &body); err != nil {
		return "", err
	}

	id := strings.TrimSpace(body.SongID)
	if id == "" {
		return "", fmt.Errorf("%w: songId", shared.ErrMissingArgument)
	}
	return id, nil
}

func success(w http.ResponseWriter) {
	server.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
