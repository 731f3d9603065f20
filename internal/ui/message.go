package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/player"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSongsFetched MsgKind = iota
	MsgFavoritesFetched
	MsgPlaylistsFetched
	MsgArtistsFetched
	MsgPlayerEvent
	MsgFavoriteToggled
)

type songsResult struct {
	seq   uint64
	songs []models.Song
	err   error
}

type favoritesResult struct {
	favorites []models.Favorite
	err       error
}

type playlistsResult struct {
	playlists []models.Playlist
	err       error
}

type artistsResult struct {
	artists []models.Artist
	err     error
}

// songsFetchedMsg is the constructor for [MsgSongsFetched]. seq tags the search that produced it.
func songsFetchedMsg(seq uint64, songs []models.Song, err error) Msg {
	return Msg{kind: MsgSongsFetched, data: songsResult{seq, songs, err}}
}

// favoritesFetchedMsg is the constructor for [MsgFavoritesFetched]
func favoritesFetchedMsg(favorites []models.Favorite, err error) Msg {
	return Msg{kind: MsgFavoritesFetched, data: favoritesResult{favorites, err}}
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsResult{playlists, err}}
}

// artistsFetchedMsg is the constructor for [MsgArtistsFetched]
func artistsFetchedMsg(artists []models.Artist, err error) Msg {
	return Msg{kind: MsgArtistsFetched, data: artistsResult{artists, err}}
}

// playerEventMsg is the constructor for [MsgPlayerEvent]
func playerEventMsg(ev player.Event) Msg {
	return Msg{kind: MsgPlayerEvent, data: ev}
}

// favoriteToggledMsg is the constructor for [MsgFavoriteToggled]
func favoriteToggledMsg(err error) Msg {
	return Msg{kind: MsgFavoriteToggled, data: err}
}
