package web

import (
	"net/http"
	"strings"

	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/server"
)

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	server.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listSongs serves the caller's songs from the catalog, or anonymous fallback data without a session.
func (a *App) listSongs(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	if a.catalog != nil {
		var userID string
		if user, ok := CurrentUser(r.Context()); ok {
			userID = user.ID
		}
		server.WriteJSON(w, http.StatusOK, nonNil(a.catalog.Songs(r.Context(), userID, search)))
		return
	}

	songs, err := a.songs.List(search, a.limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, nonNil(songs))
}

func (a *App) listArtists(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	if a.catalog != nil {
		var userID string
		if user, ok := CurrentUser(r.Context()); ok {
			userID = user.ID
		}
		server.WriteJSON(w, http.StatusOK, nonNil(a.catalog.Artists(r.Context(), userID, search)))
		return
	}

	artists, err := a.artists.List(search)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, nonNil(artists))
}

func (a *App) listFavorites(w http.ResponseWriter, r *http.Request, user *models.User) {
	favs, err := a.favorites.List(user.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, nonNil(favs))
}

func (a *App) addFavorite(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := songID(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	fav, err := a.favorites.Add(user.ID, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, fav)
}

func (a *App) removeFavorite(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := songID(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if err := a.favorites.Remove(user.ID, id); err != nil {
		a.writeError(w, r, err)
		return
	}
	success(w)
}

func (a *App) listPlaylists(w http.ResponseWriter, r *http.Request, user *models.User) {
	playlists, err := a.playlists.ListByUser(user.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, nonNil(playlists))
}

func (a *App) createPlaylist(w http.ResponseWriter, r *http.Request, user *models.User) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decode(w, r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}

	playlist := models.NewPlaylist(user.ID, body.Name, body.Description)
	if err := a.playlists.Create(playlist); err != nil {
		a.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, playlist)
}

func (a *App) deletePlaylist(w http.ResponseWriter, r *http.Request, user *models.User) {
	if err := a.playlists.Delete(r.PathValue("id"), user.ID); err != nil {
		a.writeError(w, r, err)
		return
	}
	success(w)
}

func (a *App) addPlaylistSong(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := songID(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	entry, err := a.playlists.AddSong(r.PathValue("id"), user.ID, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, entry)
}

func (a *App) removePlaylistSong(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := songID(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if err := a.playlists.RemoveSong(r.PathValue("id"), user.ID, id); err != nil {
		a.writeError(w, r, err)
		return
	}
	success(w)
}

// nonNil keeps empty collections encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
