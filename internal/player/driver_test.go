package player

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musive/internal/models"
)

type fakeEngine struct {
	name string

	mu     sync.Mutex
	calls  []string
	failOn map[string]error
	l      listeners
}

func newFakeEngine(name string) *fakeEngine {
	return &fakeEngine{name: name, failOn: map[string]error{}}
}

func (f *fakeEngine) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)
	op, _, _ := strings.Cut(call, ":")
	return f.failOn[op]
}

func (f *fakeEngine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeEngine) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *fakeEngine) fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[op] = err
}

func (f *fakeEngine) Name() string                       { return f.name }
func (f *fakeEngine) OnStateChange(fn func(EngineEvent)) func() { return f.l.add(fn) }
func (f *fakeEngine) Load(_ context.Context, s models.Song) error {
	return f.record("load:" + s.ID)
}
func (f *fakeEngine) Play(context.Context) error  { return f.record("play") }
func (f *fakeEngine) Pause(context.Context) error { return f.record("pause") }
func (f *fakeEngine) Seek(_ context.Context, d time.Duration) error {
	return f.record("seek:" + d.String())
}
func (f *fakeEngine) SetVolume(_ context.Context, v int) error {
	return f.record(fmt.Sprintf("volume:%d", v))
}
func (f *fakeEngine) Stop(context.Context) error { return f.record("stop") }

func driverSongs() []models.Song {
	a := models.ArtistRef{ID: "a", Name: "Artist"}
	return []models.Song{
		models.NewSong("both", "Both", 200, "https://example.com/both.mp3", "", a, "spotify:track:both"),
		models.NewSong("preview", "Preview", 30, "https://example.com/preview.mp3", "", a, ""),
		models.NewSong("none", "Nothing", 100, "", "", a, ""),
	}
}

func newTestDriver(t *testing.T, ready, entitled bool) (*Driver, *Controller, *fakeEngine, *fakeEngine) {
	t.Helper()

	ctrl := NewController(nil)
	preview, premium := newFakeEngine("preview"), newFakeEngine("premium")
	d := NewDriver(context.Background(), ctrl, DriverOptions{
		Preview:      preview,
		Premium:      premium,
		SessionReady: ready,
		Entitled:     entitled,
		Logger:       log.New(&bytes.Buffer{}),
	})
	t.Cleanup(d.Close)
	return d, ctrl, preview, premium
}

func TestDriver(t *testing.T) {
	t.Run("Premium Preferred", func(t *testing.T) {
		d, ctrl, preview, premium := newTestDriver(t, true, true)
		ctrl.ReplaceQueue(driverSongs())
		_ = ctrl.Play("both")

		if d.EngineName() != "premium" {
			t.Errorf("expected premium engine, got %s", d.EngineName())
		}
		calls := premium.Calls()
		if !slices.Contains(calls, "load:both") || calls[len(calls)-1] != "play" {
			t.Errorf("expected premium load then play, got %v", calls)
		}
		if slices.Contains(preview.Calls(), "play") {
			t.Error("preview should stay idle")
		}
	})

	t.Run("Loaded Paused Does Not Play", func(t *testing.T) {
		_, ctrl, preview, _ := newTestDriver(t, false, false)
		ctrl.ReplaceQueue(driverSongs()[1:])

		calls := preview.Calls()
		if !slices.Contains(calls, "load:preview") || slices.Contains(calls, "play") {
			t.Errorf("expected load without play, got %v", calls)
		}
	})

	t.Run("Premium Failure Degrades To Preview", func(t *testing.T) {
		d, ctrl, preview, premium := newTestDriver(t, true, true)
		premium.fail("play", errors.New("device gone"))

		ctrl.ReplaceQueue(driverSongs())
		_ = ctrl.Play("both")

		if d.EngineName() != "preview" {
			t.Errorf("expected preview after premium failure, got %s", d.EngineName())
		}
		if !slices.Contains(premium.Calls(), "stop") {
			t.Error("failed premium engine should be stopped")
		}
		if calls := preview.Calls(); calls[len(calls)-1] != "play" {
			t.Errorf("expected preview to play, got %v", calls)
		}
	})

	t.Run("Unavailable", func(t *testing.T) {
		d, ctrl, preview, premium := newTestDriver(t, true, true)
		ctrl.ReplaceQueue(driverSongs())
		_ = ctrl.Play("none")

		if d.Available() || d.EngineName() != "unavailable" {
			t.Errorf("expected unavailable, got %s", d.EngineName())
		}
		preview.reset()
		premium.reset()

		ctrl.TogglePlayPause()
		ctrl.SetVolume(10)
		if len(preview.Calls())+len(premium.Calls()) != 0 {
			t.Error("transport must not reach any engine")
		}
	})

	t.Run("Song Change Stops Previous Engine First", func(t *testing.T) {
		_, ctrl, preview, premium := newTestDriver(t, true, true)
		ctrl.ReplaceQueue(driverSongs())
		_ = ctrl.Play("both")
		premium.reset()
		preview.reset()

		ctrl.Next()

		if calls := premium.Calls(); len(calls) != 1 || calls[0] != "stop" {
			t.Errorf("expected premium stop, got %v", calls)
		}
		if calls := preview.Calls(); len(calls) == 0 || calls[0] != "load:preview" {
			t.Errorf("expected preview load, got %v", calls)
		}
	})

	t.Run("Transport Propagates", func(t *testing.T) {
		_, ctrl, preview, _ := newTestDriver(t, false, false)
		ctrl.ReplaceQueue(driverSongs()[1:2])
		_ = ctrl.Play("preview")
		preview.reset()

		ctrl.TogglePlayPause()
		ctrl.Seek(12 * time.Second)
		ctrl.SetVolume(33)
		ctrl.SetElapsed(13 * time.Second)

		want := []string{"pause", "seek:12s", "volume:33"}
		if got := preview.Calls(); !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("Engine Events Drive Controller", func(t *testing.T) {
		_, ctrl, preview, _ := newTestDriver(t, false, false)
		ctrl.ReplaceQueue(driverSongs()[:2])
		_ = ctrl.Play("preview")

		preview.l.emit(EngineEvent{Kind: EnginePosition, Position: 7 * time.Second})
		if got := ctrl.Snapshot().Elapsed; got != 7*time.Second {
			t.Errorf("expected elapsed 7s, got %v", got)
		}

		preview.l.emit(EngineEvent{Kind: EnginePaused})
		if got := ctrl.Snapshot().State; got != Paused {
			t.Errorf("external pause should pause the controller, got %s", got)
		}
		preview.l.emit(EngineEvent{Kind: EnginePaused})
		if got := ctrl.Snapshot().State; got != Paused {
			t.Errorf("matching state must not toggle, got %s", got)
		}

		preview.l.emit(EngineEvent{Kind: EngineEnded})
		s := ctrl.Snapshot()
		if activeID(t, s) != "both" || s.State != Playing {
			t.Errorf("end of track should advance and play, got %+v", s)
		}
	})

	t.Run("Stale Engine Events Ignored", func(t *testing.T) {
		_, ctrl, _, premium := newTestDriver(t, false, false)
		ctrl.ReplaceQueue(driverSongs()[1:2])
		_ = ctrl.Play("preview")

		premium.l.emit(EngineEvent{Kind: EngineEnded})
		if s := ctrl.Snapshot(); s.Index != 0 || s.Elapsed != 0 {
			t.Errorf("inactive engine must not move the queue, got %+v", s)
		}
	})

	t.Run("Events For Previous Song Ignored", func(t *testing.T) {
		_, ctrl, preview, _ := newTestDriver(t, false, false)
		ctrl.ReplaceQueue(driverSongs()[:2])
		_ = ctrl.Play("both")
		_ = ctrl.Play("preview")

		preview.l.emit(EngineEvent{Kind: EnginePosition, SongID: "both", Position: 25 * time.Second})
		if s := ctrl.Snapshot(); s.Elapsed != 0 {
			t.Errorf("position of the previous song must not apply, got %s", s.Elapsed)
		}
		preview.l.emit(EngineEvent{Kind: EngineEnded, SongID: "both"})
		if id := activeID(t, ctrl.Snapshot()); id != "preview" {
			t.Errorf("end of the previous song must not advance, got %s", id)
		}

		preview.l.emit(EngineEvent{Kind: EnginePosition, SongID: "preview", Position: 5 * time.Second})
		if s := ctrl.Snapshot(); s.Elapsed != 5*time.Second {
			t.Errorf("expected 5s elapsed, got %s", s.Elapsed)
		}
	})

	t.Run("Close Detaches From Engines", func(t *testing.T) {
		d, _, preview, premium := newTestDriver(t, true, true)
		if preview.l.len() != 1 || premium.l.len() != 1 {
			t.Fatalf("expected one listener per engine, got %d and %d", preview.l.len(), premium.l.len())
		}

		next := NewController(nil)
		d2 := NewDriver(context.Background(), next, DriverOptions{Preview: preview, Premium: premium, Logger: log.New(&bytes.Buffer{})})
		defer d2.Close()

		d.Close()
		if preview.l.len() != 1 || premium.l.len() != 1 {
			t.Errorf("expected only the open driver to remain, got %d and %d", preview.l.len(), premium.l.len())
		}

		next.ReplaceQueue(driverSongs()[1:])
		_ = next.Play("preview")
		preview.l.emit(EngineEvent{Kind: EngineEnded})
		if activeID(t, next.Snapshot()) != "none" {
			t.Errorf("open driver should still receive engine events, got %+v", next.Snapshot())
		}
	})

	t.Run("Preview Failure Makes Song Unavailable", func(t *testing.T) {
		d, ctrl, preview, _ := newTestDriver(t, false, false)
		ctrl.ReplaceQueue(driverSongs()[1:2])
		_ = ctrl.Play("preview")

		preview.l.emit(EngineEvent{Kind: EngineFailed, Err: errors.New("exit status 1")})
		if d.Available() {
			t.Error("expected no engine after preview failure")
		}
	})
}
