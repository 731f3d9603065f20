package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/player"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SongsView ViewState = iota
	FavoritesView
	PlaylistsView
	ArtistsView
	PlaylistSongsView
)

// tabs is the order tab cycles through. PlaylistSongsView is reached from PlaylistsView.
var tabs = []ViewState{SongsView, FavoritesView, PlaylistsView, ArtistsView}

func (v ViewState) String() string {
	switch v {
	case SongsView:
		return "Songs"
	case FavoritesView:
		return "Favorites"
	case PlaylistsView, PlaylistSongsView:
		return "Playlists"
	case ArtistsView:
		return "Artists"
	default:
		return ""
	}
}

const (
	seekStep   = 10 * time.Second
	volumeStep = 5
)

// Client is the collection API the TUI reads. [services.APIService] implements it.
type Client interface {
	Songs(ctx context.Context, search string) ([]models.Song, error)
	Artists(ctx context.Context, search string) ([]models.Artist, error)
	Favorites(ctx context.Context) ([]models.Favorite, error)
	Playlists(ctx context.Context) ([]models.Playlist, error)
	player.FavoritesClient
}

// Player realizes a controller's state. [player.Driver] implements it.
type Player interface {
	EngineName() string
	Available() bool
	Close()
}

// PlayerFactory attaches a Player to a newly activated controller.
type PlayerFactory func(ctx context.Context, ctrl *player.Controller) Player

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	client    Client
	newPlayer PlayerFactory
	view      ViewState
	width     int
	height    int

	songs         list.Model
	favorites     list.Model
	playlists     list.Model
	artists       list.Model
	playlistSongs list.Model
	openPlaylist  string

	search    textinput.Model
	searching bool
	seq       player.Sequencer

	ctrl        *player.Controller
	player      Player
	queueKey    string
	favoriteIDs map[string]bool
	events      chan player.Event
	status      player.Status

	notice string
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model. newPlayer may be nil, leaving the queue silent.
func NewModel(ctx context.Context, client Client, newPlayer PlayerFactory) *Model {
	search := textinput.New()
	search.Placeholder = "title or artist"
	search.Prompt = "Search: "
	search.Cursor.SetMode(cursor.CursorStatic)

	return &Model{
		ctx:           ctx,
		client:        client,
		newPlayer:     newPlayer,
		view:          SongsView,
		songs:         newList("Songs", nil, 0, 0),
		favorites:     newList("Favorites", nil, 0, 0),
		playlists:     newList("Playlists", nil, 0, 0),
		artists:       newList("Artists", nil, 0, 0),
		playlistSongs: newList("", nil, 0, 0),
		search:        search,
		favoriteIDs:   map[string]bool{},
		events:        make(chan player.Event, 64),
		status:        player.Status{Index: -1, Volume: player.DefaultVolume},
		help:          help.New(),
		keys:          newKeyMap(),
	}
}

// Init loads every collection and starts listening for playback events.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchSongs(""),
		m.fetchFavorites(),
		m.fetchPlaylists(),
		m.fetchArtists(),
		m.waitForEvent(),
	)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, l := range m.allLists() {
			l.SetSize(msg.Width-4, msg.Height-10)
		}
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKeys(msg)
		}
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSongsFetched:
		res := msg.data.(songsResult)
		if !m.seq.Accept(res.seq) {
			return m, nil
		}
		if res.err != nil {
			m.notice = fmt.Sprintf("failed to load songs: %v", res.err)
			return m, nil
		}
		m.setSongs(&m.songs, SongsView.String(), res.songs)

	case MsgFavoritesFetched:
		res := msg.data.(favoritesResult)
		if res.err != nil {
			m.notice = fmt.Sprintf("failed to load favorites: %v", res.err)
			return m, nil
		}
		songs := make([]models.Song, len(res.favorites))
		ids := make(map[string]bool, len(res.favorites))
		for i, f := range res.favorites {
			songs[i] = f.Song
			ids[f.SongID] = true
		}
		m.favoriteIDs = ids
		if m.ctrl != nil {
			m.ctrl.SetFavorites(ids)
		}
		m.setSongs(&m.favorites, FavoritesView.String(), songs)

	case MsgPlaylistsFetched:
		res := msg.data.(playlistsResult)
		if res.err != nil {
			m.notice = fmt.Sprintf("failed to load playlists: %v", res.err)
			return m, nil
		}
		items := make([]list.Item, len(res.playlists))
		for i, p := range res.playlists {
			items[i] = playlistItem{playlist: p}
			if p.ID == m.openPlaylist {
				m.setSongs(&m.playlistSongs, playlistKey(p.ID), p.Songs)
			}
		}
		m.playlists.SetItems(items)

	case MsgArtistsFetched:
		res := msg.data.(artistsResult)
		if res.err != nil {
			m.notice = fmt.Sprintf("failed to load artists: %v", res.err)
			return m, nil
		}
		items := make([]list.Item, len(res.artists))
		for i, a := range res.artists {
			items[i] = artistItem{artist: a}
		}
		m.artists.SetItems(items)

	case MsgPlayerEvent:
		if m.ctrl != nil {
			m.status = m.ctrl.Snapshot()
		}
		return m, m.waitForEvent()

	case MsgFavoriteToggled:
		if err, _ := msg.data.(error); err != nil {
			m.notice = fmt.Sprintf("favorite not saved: %v", err)
		}
		return m, m.fetchFavorites()
	}
	return m, nil
}

// setSongs refreshes a song list. When that list is the active queue the queue follows it.
func (m *Model) setSongs(l *list.Model, key string, songs []models.Song) {
	l.SetItems(songItems(songs))
	if m.ctrl != nil && m.queueKey == key {
		m.ctrl.ReplaceQueue(songs)
		m.status = m.ctrl.Snapshot()
	}
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	case "esc":
		m.searching = false
		m.search.Blur()
		if m.search.Value() == "" {
			return m, nil
		}
		m.search.SetValue("")
		return m, m.fetchSongs("")
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if value := m.search.Value(); value != before {
		return m, tea.Batch(cmd, m.fetchSongs(value))
	}
	return m, cmd
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m.quit()
	case key.Matches(msg, m.keys.tab):
		m.nextView()
		return m, nil
	case key.Matches(msg, m.keys.back):
		if m.view == PlaylistSongsView {
			m.view = PlaylistsView
		}
		return m, nil
	case key.Matches(msg, m.keys.search):
		m.view = SongsView
		m.searching = true
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.enter):
		return m.handleEnter()
	case key.Matches(msg, m.keys.favorite):
		return m, m.toggleFavorite()
	}

	if m.ctrl != nil {
		locked := m.transportLocked()
		switch {
		case key.Matches(msg, m.keys.next):
			m.ctrl.Next()
		case key.Matches(msg, m.keys.previous):
			m.ctrl.Previous()
		case key.Matches(msg, m.keys.toggle, m.keys.forward, m.keys.rewind, m.keys.louder, m.keys.quieter) && locked:
		case key.Matches(msg, m.keys.toggle):
			m.ctrl.TogglePlayPause()
		case key.Matches(msg, m.keys.forward):
			m.ctrl.SeekBy(seekStep)
		case key.Matches(msg, m.keys.rewind):
			m.ctrl.SeekBy(-seekStep)
		case key.Matches(msg, m.keys.louder):
			m.ctrl.ChangeVolume(volumeStep)
		case key.Matches(msg, m.keys.quieter):
			m.ctrl.ChangeVolume(-volumeStep)
		default:
			return m.updateList(msg)
		}
		m.status = m.ctrl.Snapshot()
		m.checkAvailable()
		return m, nil
	}

	return m.updateList(msg)
}

func (m *Model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.view {
	case PlaylistsView:
		item, ok := m.playlists.SelectedItem().(playlistItem)
		if !ok {
			return m, nil
		}
		m.openPlaylist = item.playlist.ID
		m.playlistSongs.Title = item.playlist.Name
		m.setSongs(&m.playlistSongs, playlistKey(item.playlist.ID), item.playlist.Songs)
		m.playlistSongs.Select(0)
		m.view = PlaylistSongsView
		return m, nil

	case ArtistsView:
		item, ok := m.artists.SelectedItem().(artistItem)
		if !ok {
			return m, nil
		}
		m.view = SongsView
		m.search.SetValue(item.artist.Name)
		return m, m.fetchSongs(item.artist.Name)
	}

	l := m.listFor(m.view)
	item, ok := l.SelectedItem().(songItem)
	if !ok {
		return m, nil
	}
	m.play(m.viewKey(), songsOf(l), item.song)
	return m, nil
}

// play starts song from songs. Activating a different collection creates a new
// controller and player; the previous player is closed first.
func (m *Model) play(queueKey string, songs []models.Song, song models.Song) {
	if m.ctrl == nil || m.queueKey != queueKey {
		m.activate(queueKey, songs)
	}

	if err := m.ctrl.Play(song.ID); err != nil {
		m.notice = err.Error()
		return
	}
	m.notice = ""
	m.status = m.ctrl.Snapshot()
	m.checkAvailable()
}

func (m *Model) activate(queueKey string, songs []models.Song) {
	m.closePlayer()

	ctrl := player.NewController(m.client)
	ctrl.SetFavorites(m.favoriteIDs)
	ctrl.ReplaceQueue(songs)

	events := m.events
	ctrl.Subscribe(func(ev player.Event) {
		select {
		case events <- ev:
		default:
		}
	})

	m.ctrl = ctrl
	m.queueKey = queueKey
	if m.newPlayer != nil {
		m.player = m.newPlayer(m.ctx, ctrl)
	}
}

// transportLocked reports whether the active song has no engine, in which case
// only skipping to another song is allowed.
func (m *Model) transportLocked() bool {
	if m.player == nil || m.player.Available() {
		return false
	}
	_, ok := m.ctrl.Snapshot().Song()
	return ok
}

func (m *Model) checkAvailable() {
	if m.player == nil {
		return
	}
	if _, ok := m.status.Song(); ok && !m.player.Available() {
		m.notice = "playback unavailable for this song"
	} else if m.notice == "playback unavailable for this song" {
		m.notice = ""
	}
}

func (m *Model) closePlayer() {
	if m.player != nil {
		m.player.Close()
		m.player = nil
	}
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.closePlayer()
	return m, tea.Quit
}

func (m *Model) nextView() {
	current := m.view
	if current == PlaylistSongsView {
		current = PlaylistsView
	}
	for i, v := range tabs {
		if v == current {
			m.view = tabs[(i+1)%len(tabs)]
			return
		}
	}
	m.view = SongsView
}

func (m *Model) toggleFavorite() tea.Cmd {
	ctrl := m.ctrl
	if ctrl == nil {
		return nil
	}
	if _, ok := ctrl.Snapshot().Song(); !ok {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		return favoriteToggledMsg(ctrl.ToggleFavorite(ctx))
	}
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	l := m.listFor(m.view)
	var cmd tea.Cmd
	*l, cmd = l.Update(msg)
	return m, cmd
}

func (m *Model) listFor(v ViewState) *list.Model {
	switch v {
	case FavoritesView:
		return &m.favorites
	case PlaylistsView:
		return &m.playlists
	case ArtistsView:
		return &m.artists
	case PlaylistSongsView:
		return &m.playlistSongs
	default:
		return &m.songs
	}
}

func (m *Model) allLists() []*list.Model {
	return []*list.Model{&m.songs, &m.favorites, &m.playlists, &m.artists, &m.playlistSongs}
}

// viewKey identifies the collection shown, so reactivating it reuses the controller.
func (m *Model) viewKey() string {
	if m.view == PlaylistSongsView {
		return playlistKey(m.openPlaylist)
	}
	return m.view.String()
}

func playlistKey(id string) string { return "playlist:" + id }

func songsOf(l *list.Model) []models.Song {
	items := l.Items()
	songs := make([]models.Song, 0, len(items))
	for _, it := range items {
		if s, ok := it.(songItem); ok {
			songs = append(songs, s.song)
		}
	}
	return songs
}

func (m *Model) fetchSongs(query string) tea.Cmd {
	seq := m.seq.Next()
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		songs, err := client.Songs(ctx, query)
		return songsFetchedMsg(seq, songs, err)
	}
}

func (m *Model) fetchFavorites() tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		favs, err := client.Favorites(ctx)
		return favoritesFetchedMsg(favs, err)
	}
}

func (m *Model) fetchPlaylists() tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		playlists, err := client.Playlists(ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) fetchArtists() tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		artists, err := client.Artists(ctx, "")
		return artistsFetchedMsg(artists, err)
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return playerEventMsg(<-events)
	}
}

// View renders the tabs, the current list, and the now-playing bar.
func (m *Model) View() string {
	var b strings.Builder

	tabsRow := make([]string, len(tabs))
	for i, v := range tabs {
		style := styles.tab
		if v == m.view || (v == PlaylistsView && m.view == PlaylistSongsView) {
			style = styles.active
		}
		tabsRow[i] = style.Render(v.String())
	}
	b.WriteString(strings.Join(tabsRow, " "))
	b.WriteString("\n\n")

	if m.view == SongsView && (m.searching || m.search.Value() != "") {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}

	b.WriteString(m.listFor(m.view).View())
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(styles.warn.Render(m.notice))
		b.WriteString("\n")
	}

	engine := ""
	if m.player != nil {
		engine = m.player.EngineName()
	}
	b.WriteString(renderNowPlaying(m.status, engine, m.width))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
