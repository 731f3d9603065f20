package player

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/shared"
)

// DriverOptions wires engines into a [Driver]. Either engine may be nil.
type DriverOptions struct {
	Preview      Engine
	Premium      Engine
	SessionReady bool // premium streaming session is connected
	Entitled     bool // caller holds the premium entitlement
	Logger       *log.Logger
}

// Driver realizes a [Controller]'s state on the engine selected for the active song.
type Driver struct {
	ctx     context.Context
	ctrl    *Controller
	preview Engine
	premium Engine
	ready   bool
	premOK  bool
	logger  *log.Logger

	mu       sync.Mutex
	active   Engine
	songID   string
	removers []func()
}

// NewDriver attaches a driver to ctrl. Engine calls use ctx.
func NewDriver(ctx context.Context, ctrl *Controller, opts DriverOptions) *Driver {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	d := &Driver{
		ctx:     ctx,
		ctrl:    ctrl,
		preview: opts.Preview,
		premium: opts.Premium,
		ready:   opts.SessionReady,
		premOK:  opts.Entitled,
		logger:  shared.WithLogger(logger, "component", "driver"),
	}

	for _, eng := range []Engine{d.preview, d.premium} {
		if eng != nil {
			d.removers = append(d.removers, eng.OnStateChange(func(ev EngineEvent) { d.engineEvent(eng, ev) }))
		}
	}
	ctrl.Subscribe(d.handle)

	if _, ok := ctrl.Snapshot().Song(); ok {
		d.load(ctrl.Snapshot())
	}
	return d
}

// EngineName names the engine playing the active song.
func (d *Driver) EngineName() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active == nil {
		return Unavailable.String()
	}
	return d.active.Name()
}

// Available reports whether the active song has an engine. Transport controls are disabled otherwise.
func (d *Driver) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active != nil
}

// Close stops the active engine and detaches from the engines, which may outlive the driver.
func (d *Driver) Close() {
	d.mu.Lock()
	removers := d.removers
	d.removers = nil
	d.release()
	d.mu.Unlock()

	for _, remove := range removers {
		remove()
	}
}

func (d *Driver) handle(ev Event) {
	switch ev.Kind {
	case SongChanged:
		d.load(ev.Status)
	case StateChanged:
		d.syncState(ev.Status)
	case Seeked:
		d.withActive(func(eng Engine) error { return eng.Seek(d.ctx, ev.Status.Elapsed) }, "seek")
	case VolumeChanged:
		d.withActive(func(eng Engine) error { return eng.SetVolume(d.ctx, ev.Status.Volume) }, "volume")
	}
}

// load fully stops the previous engine before starting the new song at position 0.
func (d *Driver) load(status Status) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.release()

	song, ok := status.Song()
	if !ok {
		return
	}
	d.songID = song.ID

	for _, eng := range d.candidates(song) {
		if err := d.start(eng, song, status); err != nil {
			d.logger.Warn("engine failed, degrading", "engine", eng.Name(), "song", song.ID, "error", err)
			_ = eng.Stop(d.ctx)
			continue
		}
		d.active = eng
		d.logger.Debug("loaded song", "engine", eng.Name(), "song", song.ID)
		return
	}
	d.logger.Info("playback unavailable", "song", song.ID, "title", song.Title)
}

// candidates lists engines to try for song in order of preference.
func (d *Driver) candidates(song models.Song) []Engine {
	var engines []Engine
	if d.premium != nil && SelectEngine(song, d.ready, d.premOK) == Premium {
		engines = append(engines, d.premium)
	}
	if d.preview != nil && SelectEngine(song, false, false) == Preview {
		engines = append(engines, d.preview)
	}
	return engines
}

func (d *Driver) start(eng Engine, song models.Song, status Status) error {
	if err := eng.Load(d.ctx, song); err != nil {
		return err
	}
	if err := eng.SetVolume(d.ctx, status.Volume); err != nil {
		return err
	}
	if status.State == Playing {
		return eng.Play(d.ctx)
	}
	return nil
}

// release must be called with d.mu held.
func (d *Driver) release() {
	if d.active != nil {
		if err := d.active.Stop(d.ctx); err != nil {
			d.logger.Warn("failed to stop engine", "engine", d.active.Name(), "error", err)
		}
	}
	d.active = nil
	d.songID = ""
}

func (d *Driver) syncState(status Status) {
	d.withActive(func(eng Engine) error {
		switch status.State {
		case Playing:
			return eng.Play(d.ctx)
		case Paused:
			return eng.Pause(d.ctx)
		default:
			if err := eng.Pause(d.ctx); err != nil {
				return err
			}
			return eng.Seek(d.ctx, 0)
		}
	}, "transport")
}

func (d *Driver) withActive(fn func(Engine) error, op string) {
	d.mu.Lock()
	eng := d.active
	d.mu.Unlock()

	if eng == nil {
		return
	}
	if err := fn(eng); err != nil {
		d.logger.Warn("engine command failed", "engine", eng.Name(), "op", op, "error", err)
		d.degrade(eng)
	}
}

// degrade replaces a failing engine with the next candidate for the active song.
func (d *Driver) degrade(failed Engine) {
	status := d.ctrl.Snapshot()
	song, ok := status.Song()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active != failed || !ok || song.ID != d.songID {
		return
	}
	_ = failed.Stop(d.ctx)
	d.active = nil

	for _, eng := range d.candidates(song) {
		if eng == failed {
			continue
		}
		if err := d.start(eng, song, status); err != nil {
			d.logger.Warn("fallback engine failed", "engine", eng.Name(), "error", err)
			_ = eng.Stop(d.ctx)
			continue
		}
		if status.Elapsed > 0 {
			_ = eng.Seek(d.ctx, status.Elapsed)
		}
		d.active = eng
		d.logger.Info("degraded playback", "from", failed.Name(), "to", eng.Name(), "song", song.ID)
		return
	}
	d.logger.Info("playback unavailable", "song", song.ID)
}

func (d *Driver) engineEvent(eng Engine, ev EngineEvent) {
	d.mu.Lock()
	current := d.active == eng && (ev.SongID == "" || ev.SongID == d.songID)
	d.mu.Unlock()

	if !current {
		return
	}

	switch ev.Kind {
	case EngineEnded:
		d.ctrl.Next()
	case EnginePosition:
		d.ctrl.SetElapsed(ev.Position)
	case EnginePlaying, EnginePaused:
		if (ev.Kind == EnginePlaying) != (d.ctrl.Snapshot().State == Playing) {
			d.ctrl.TogglePlayPause()
		}
	case EngineFailed:
		d.logger.Warn("engine reported failure", "engine", eng.Name(), "error", ev.Err)
		d.degrade(eng)
	}
}
