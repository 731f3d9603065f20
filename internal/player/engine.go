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

// ErrPlaybackUnavailable means no engine can play a song.
var ErrPlaybackUnavailable = fmt.Errorf("%w: playback unavailable", shared.ErrServiceUnavailable)

// EngineEventKind classifies events reported by an [Engine].
type EngineEventKind int

const (
	EnginePlaying  EngineEventKind = iota // started or resumed outside our control
	EnginePaused                          // paused outside our control
	EngineEnded                           // reached the natural end of the track
	EnginePosition                        // periodic position report
	EngineFailed                          // playback broke and cannot continue
)

// EngineEvent is reported by an engine through [Engine.OnStateChange].
type EngineEvent struct {
	Kind     EngineEventKind
	SongID   string // song loaded when the event was observed
	Position time.Duration
	Err      error
}

// Engine is the narrow capability every audio backend implements.
//
// Events are delivered from engine goroutines, never from inside a method call.
type Engine interface {
	Name() string
	Load(ctx context.Context, song models.Song) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, position time.Duration) error
	SetVolume(ctx context.Context, volume int) error
	Stop(ctx context.Context) error
	// OnStateChange registers fn and returns a func that removes it.
	OnStateChange(fn func(EngineEvent)) (remove func())
}

// EngineKind names the engine chosen for a song.
type EngineKind int

const (
	Unavailable EngineKind = iota
	Preview
	Premium
)

func (k EngineKind) String() string {
	switch k {
	case Premium:
		return "premium"
	case Preview:
		return "preview"
	default:
		return "unavailable"
	}
}

// SelectEngine picks the engine for song.
//
// Premium needs a ready streaming session, the premium entitlement and a native URI.
// Otherwise a preview clip is used when present.
func SelectEngine(song models.Song, sessionReady, entitled bool) EngineKind {
	switch {
	case sessionReady && entitled && song.SpotifyURI != "":
		return Premium
	case song.HasPreview && song.AudioURL != "":
		return Preview
	default:
		return Unavailable
	}
}

// listeners fans engine events out to registered callbacks.
type listeners struct {
	mu   sync.Mutex
	next int
	fns  []listener
}

type listener struct {
	id int
	fn func(EngineEvent)
}

func (l *listeners) add(fn func(EngineEvent)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.next++
	id := l.next
	l.fns = append(l.fns, listener{id: id, fn: fn})

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.fns = slices.DeleteFunc(l.fns, func(ln listener) bool { return ln.id == id })
	}
}

func (l *listeners) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

func (l *listeners) emit(ev EngineEvent) {
	l.mu.Lock()
	fns := slices.Clone(l.fns)
	l.mu.Unlock()

	for _, ln := range fns {
		ln.fn(ev)
	}
}
