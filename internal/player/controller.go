package player

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/shared"
)

// DefaultVolume is the volume a new controller starts at.
const DefaultVolume = 70

// ErrSongNotQueued is returned by [Controller.Play] for a song outside the queue.
var ErrSongNotQueued = fmt.Errorf("%w: song not in queue", shared.ErrNotFound)

// State is the transport state.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// EventKind says which part of the [Status] a transition touched.
type EventKind int

const (
	QueueChanged EventKind = iota
	SongChanged
	StateChanged
	Seeked
	VolumeChanged
	Progressed
	FavoritesChanged
)

// Event is delivered to subscribers after each transition.
type Event struct {
	Kind   EventKind
	Status Status
}

// Status is an immutable snapshot of the controller.
type Status struct {
	Queue    []models.Song
	Index    int // -1 when no song is active
	State    State
	Elapsed  time.Duration
	Volume   int
	Favorite bool // active song is a favorite
}

// Song returns the active song. The active song is always derived from the index.
func (s Status) Song() (models.Song, bool) {
	if s.Index < 0 || s.Index >= len(s.Queue) {
		return models.Song{}, false
	}
	return s.Queue[s.Index], true
}

// FavoritesClient persists favorites for the session user. [services.APIService] implements it.
type FavoritesClient interface {
	AddFavorite(ctx context.Context, songID string) error
	RemoveFavorite(ctx context.Context, songID string) error
	FavoriteIDs(ctx context.Context) (map[string]bool, error)
}

// Controller owns a queue and its playback state.
//
// It is safe for concurrent use; subscribers run on the goroutine that caused the
// transition, after the controller lock is released.
type Controller struct {
	mu        sync.Mutex
	queue     []models.Song
	index     int
	state     State
	elapsed   time.Duration
	volume    int
	favorites map[string]bool
	client    FavoritesClient

	subMu       sync.Mutex
	subscribers []func(Event)
}

// NewController creates an empty controller. client may be nil when favorites are not persisted.
func NewController(client FavoritesClient) *Controller {
	return &Controller{
		index:     -1,
		volume:    DefaultVolume,
		favorites: make(map[string]bool),
		client:    client,
	}
}

// Subscribe registers fn to be called after each transition.
func (c *Controller) Subscribe(fn func(Event)) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

func (c *Controller) emit(kinds ...EventKind) {
	status := c.Snapshot()

	c.subMu.Lock()
	subs := slices.Clone(c.subscribers)
	c.subMu.Unlock()

	for _, kind := range kinds {
		for _, fn := range subs {
			fn(Event{Kind: kind, Status: status})
		}
	}
}

// Snapshot returns the current status.
func (c *Controller) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() Status {
	s := Status{
		Queue:   slices.Clone(c.queue),
		Index:   c.index,
		State:   c.state,
		Elapsed: c.elapsed,
		Volume:  c.volume,
	}
	if song, ok := s.Song(); ok {
		s.Favorite = c.favorites[song.ID]
	}
	return s
}

// ReplaceQueue swaps in a new queue, keeping the active song when it is still present.
//
// Otherwise the first song becomes active with elapsed time reset and the transport
// state unchanged. An empty queue leaves no active song and stops playback.
func (c *Controller) ReplaceQueue(songs []models.Song) {
	c.mu.Lock()
	var prev string
	if c.index >= 0 {
		prev = c.queue[c.index].ID
	}

	c.queue = slices.Clone(songs)
	idx := slices.IndexFunc(c.queue, func(s models.Song) bool { return s.ID == prev })

	changed := false
	switch {
	case prev != "" && idx >= 0:
		c.index = idx
	case len(c.queue) > 0:
		c.index, c.elapsed, changed = 0, 0, true
	default:
		changed = c.index != -1
		c.index, c.elapsed, c.state = -1, 0, Stopped
	}
	c.mu.Unlock()

	if changed {
		c.emit(QueueChanged, SongChanged)
		return
	}
	c.emit(QueueChanged)
}

// Play makes songID active, starts playback and resets elapsed time.
func (c *Controller) Play(songID string) error {
	c.mu.Lock()
	idx := slices.IndexFunc(c.queue, func(s models.Song) bool { return s.ID == songID })
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSongNotQueued, songID)
	}
	c.index, c.state, c.elapsed = idx, Playing, 0
	c.mu.Unlock()

	c.emit(SongChanged)
	return nil
}

// PlayIndex is [Controller.Play] by queue position.
func (c *Controller) PlayIndex(i int) error {
	c.mu.Lock()
	if i < 0 || i >= len(c.queue) {
		c.mu.Unlock()
		return fmt.Errorf("%w: index %d", ErrSongNotQueued, i)
	}
	id := c.queue[i].ID
	c.mu.Unlock()
	return c.Play(id)
}

// TogglePlayPause switches between playing and paused. Without an active song it does nothing.
func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	if c.index < 0 {
		c.mu.Unlock()
		return
	}
	if c.state == Playing {
		c.state = Paused
	} else {
		c.state = Playing
	}
	c.mu.Unlock()

	c.emit(StateChanged)
}

// Next advances to the following song, wrapping from the last to the first.
func (c *Controller) Next() { c.step(1) }

// Previous retreats to the preceding song, wrapping from the first to the last.
func (c *Controller) Previous() { c.step(-1) }

func (c *Controller) step(delta int) {
	c.mu.Lock()
	n := len(c.queue)
	if n == 0 {
		c.mu.Unlock()
		return
	}

	if c.index < 0 {
		c.index = 0
	} else {
		c.index = ((c.index+delta)%n + n) % n
	}
	c.state, c.elapsed = Playing, 0
	c.mu.Unlock()

	c.emit(SongChanged)
}

// Seek sets elapsed time, clamped to the active song's duration. The transport state is unchanged.
func (c *Controller) Seek(t time.Duration) {
	c.mu.Lock()
	if c.index < 0 {
		c.mu.Unlock()
		return
	}
	c.elapsed = clampDuration(t, c.queue[c.index].Length())
	c.mu.Unlock()

	c.emit(Seeked)
}

// SeekBy moves elapsed time by delta.
func (c *Controller) SeekBy(delta time.Duration) {
	c.Seek(c.Snapshot().Elapsed + delta)
}

// SetVolume sets the volume, clamped to 0-100.
func (c *Controller) SetVolume(v int) {
	c.mu.Lock()
	c.volume = min(max(v, 0), 100)
	c.mu.Unlock()

	c.emit(VolumeChanged)
}

// ChangeVolume moves the volume by delta.
func (c *Controller) ChangeVolume(delta int) {
	c.SetVolume(c.Snapshot().Volume + delta)
}

// SetElapsed records an engine position report without echoing a seek to the engine.
func (c *Controller) SetElapsed(t time.Duration) {
	c.mu.Lock()
	if c.index < 0 {
		c.mu.Unlock()
		return
	}
	c.elapsed = clampDuration(t, c.queue[c.index].Length())
	c.mu.Unlock()

	c.emit(Progressed)
}

// Stop halts playback and rewinds the active song.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.state, c.elapsed = Stopped, 0
	c.mu.Unlock()

	c.emit(StateChanged)
}

// SetFavorites replaces the local favorite set.
func (c *Controller) SetFavorites(ids map[string]bool) {
	c.mu.Lock()
	c.favorites = make(map[string]bool, len(ids))
	for id, ok := range ids {
		if ok {
			c.favorites[id] = true
		}
	}
	c.mu.Unlock()

	c.emit(FavoritesChanged)
}

// IsFavorite reports whether songID is in the local favorite set.
func (c *Controller) IsFavorite(songID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.favorites[songID]
}

// ToggleFavorite flips the active song's favorite flag locally, then persists it.
//
// When persisting fails the authoritative set is fetched again and replaces the local
// one, and the persist error is returned.
func (c *Controller) ToggleFavorite(ctx context.Context) error {
	c.mu.Lock()
	if c.index < 0 {
		c.mu.Unlock()
		return nil
	}
	id := c.queue[c.index].ID
	add := !c.favorites[id]
	if add {
		c.favorites[id] = true
	} else {
		delete(c.favorites, id)
	}
	c.mu.Unlock()

	c.emit(FavoritesChanged)

	if c.client == nil {
		return nil
	}

	var err error
	if add {
		err = c.client.AddFavorite(ctx, id)
	} else {
		err = c.client.RemoveFavorite(ctx, id)
	}
	if err == nil {
		return nil
	}

	if ids, ferr := c.client.FavoriteIDs(ctx); ferr == nil {
		c.SetFavorites(ids)
	} else {
		c.mu.Lock()
		if add {
			delete(c.favorites, id)
		} else {
			c.favorites[id] = true
		}
		c.mu.Unlock()
		c.emit(FavoritesChanged)
	}
	return fmt.Errorf("failed to update favorite %s: %w", id, err)
}

func clampDuration(t, limit time.Duration) time.Duration {
	return min(max(t, 0), limit)
}
