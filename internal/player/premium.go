package player

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/shared"
	"github.com/zmb3/spotify/v2"
)

// PremiumOptions configures a [PremiumEngine].
type PremiumOptions struct {
	BaseURL      string // Web API root ending in "/"; empty for the public API
	DeviceName   string // preferred Connect device; empty picks the active or first device
	PollInterval time.Duration
	Logger       *log.Logger
}

// PremiumEngine streams full tracks on a Spotify Connect device.
//
// Player state is polled to notice external pauses, resumes and the end of the track.
type PremiumEngine struct {
	client     *spotify.Client
	deviceName string
	interval   time.Duration
	logger     *log.Logger

	mu       sync.Mutex
	deviceID spotify.ID
	song     *models.Song
	started  bool
	playing  bool
	offset   time.Duration
	lastPos  time.Duration
	cancel   context.CancelFunc

	listeners listeners
}

// NewPremiumEngine creates an engine using httpClient, which must carry the user's Spotify token.
func NewPremiumEngine(httpClient *http.Client, opts PremiumOptions) *PremiumEngine {
	var clientOpts []spotify.ClientOption
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		clientOpts = append(clientOpts, spotify.WithBaseURL(base))
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &PremiumEngine{
		client:     spotify.New(httpClient, clientOpts...),
		deviceName: opts.DeviceName,
		interval:   opts.PollInterval,
		logger:     shared.WithLogger(logger, "component", "premium"),
	}
}

func (e *PremiumEngine) Name() string { return Premium.String() }

func (e *PremiumEngine) OnStateChange(fn func(EngineEvent)) func() { return e.listeners.add(fn) }

// Ready picks a Connect device and transfers playback to it without starting audio.
//
// The streaming session is ready once Ready succeeds.
func (e *PremiumEngine) Ready(ctx context.Context) error {
	devices, err := e.client.PlayerDevices(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to list devices: %v", ErrPlaybackUnavailable, err)
	}
	if len(devices) == 0 {
		return fmt.Errorf("%w: no spotify connect device", ErrPlaybackUnavailable)
	}

	device := devices[0]
	for _, d := range devices {
		if e.deviceName != "" && strings.EqualFold(d.Name, e.deviceName) {
			device = d
			break
		}
		if e.deviceName == "" && d.Active {
			device = d
			break
		}
	}

	if err := e.client.TransferPlayback(ctx, device.ID, false); err != nil {
		return fmt.Errorf("%w: failed to transfer playback: %v", ErrPlaybackUnavailable, err)
	}

	e.mu.Lock()
	e.deviceID = device.ID
	e.mu.Unlock()

	e.logger.Info("spotify device ready", "device", device.Name, "type", device.Type)
	return nil
}

func (e *PremiumEngine) opts() *spotify.PlayOptions {
	id := e.deviceID
	return &spotify.PlayOptions{DeviceID: &id}
}

// Load prepares song at position 0. Nothing is sent until [PremiumEngine.Play].
func (e *PremiumEngine) Load(ctx context.Context, song models.Song) error {
	if song.SpotifyURI == "" {
		return fmt.Errorf("%w: %s has no spotify uri", ErrPlaybackUnavailable, song.ID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deviceID == "" {
		return fmt.Errorf("%w: session not ready", ErrPlaybackUnavailable)
	}

	e.stopPolling()
	e.song = &song
	e.started, e.playing = false, false
	e.offset, e.lastPos = 0, 0
	return nil
}

func (e *PremiumEngine) Play(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.song == nil {
		return fmt.Errorf("%w: nothing loaded", ErrPlaybackUnavailable)
	}
	if e.playing {
		return nil
	}

	opt := e.opts()
	if !e.started {
		opt.URIs = []spotify.URI{spotify.URI(e.song.SpotifyURI)}
	}
	if err := e.client.PlayOpt(ctx, opt); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}

	if !e.started && e.offset > 0 {
		if err := e.client.SeekOpt(ctx, int(e.offset.Milliseconds()), e.opts()); err != nil {
			return fmt.Errorf("failed to seek: %w", err)
		}
	}

	e.started, e.playing = true, true
	e.startPolling()
	return nil
}

func (e *PremiumEngine) Pause(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.playing {
		return nil
	}
	if err := e.client.PauseOpt(ctx, e.opts()); err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}
	e.playing = false
	return nil
}

func (e *PremiumEngine) Seek(ctx context.Context, position time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.song == nil {
		return nil
	}
	position = clampDuration(position, e.song.Length())
	if !e.started {
		e.offset = position
		return nil
	}
	if err := e.client.SeekOpt(ctx, int(position.Milliseconds()), e.opts()); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	e.lastPos = position
	return nil
}

func (e *PremiumEngine) SetVolume(ctx context.Context, volume int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deviceID == "" {
		return nil
	}
	if err := e.client.VolumeOpt(ctx, min(max(volume, 0), 100), e.opts()); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}
	return nil
}

// Stop pauses the device if this engine started audio and unloads the song.
func (e *PremiumEngine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopPolling()
	playing := e.playing
	e.song, e.started, e.playing = nil, false, false

	if playing {
		if err := e.client.PauseOpt(ctx, e.opts()); err != nil {
			return fmt.Errorf("failed to pause: %w", err)
		}
	}
	return nil
}

// startPolling must be called with e.mu held.
func (e *PremiumEngine) startPolling() {
	if e.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	go e.poll(ctx)
}

// stopPolling must be called with e.mu held.
func (e *PremiumEngine) stopPolling() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *PremiumEngine) poll(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ev, ok := e.check(ctx); ok {
				e.listeners.emit(ev)
				if ev.Kind == EngineEnded {
					return
				}
			}
		}
	}
}

// check compares the device state with the engine's own and reports the first difference.
func (e *PremiumEngine) check(ctx context.Context) (EngineEvent, bool) {
	state, err := e.client.PlayerState(ctx)
	if ctx.Err() != nil {
		return EngineEvent{}, false
	}
	if err != nil {
		e.logger.Debug("failed to poll player state", "error", err)
		return EngineEvent{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.song == nil || ctx.Err() != nil {
		return EngineEvent{}, false
	}

	var (
		item     *spotify.FullTrack
		position time.Duration
	)
	if state != nil && state.Item != nil {
		item = state.Item
		position = time.Duration(int(state.Progress)) * time.Millisecond
	}
	playing := state != nil && state.Playing

	ended := (item != nil && item.URI != "" && !sameTrack(item, e.song.SpotifyURI)) ||
		(!playing && e.playing && position < e.lastPos && e.lastPos >= e.song.Length()-2*e.interval)
	if ended {
		e.playing = false
		e.stopPolling()
		return EngineEvent{Kind: EngineEnded, SongID: e.song.ID}, true
	}

	e.lastPos = position
	ev := EngineEvent{Kind: EnginePosition, SongID: e.song.ID, Position: position}
	switch {
	case playing && !e.playing:
		e.playing = true
		ev.Kind = EnginePlaying
	case !playing && e.playing:
		e.playing = false
		ev.Kind = EnginePaused
	}
	return ev, true
}

// sameTrack reports whether item is the track at uri, following market relinking.
func sameTrack(item *spotify.FullTrack, uri string) bool {
	if string(item.URI) == uri {
		return true
	}
	return item.LinkedFrom != nil && item.LinkedFrom.URI == uri
}
