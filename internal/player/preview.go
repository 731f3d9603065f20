package player

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/shared"
)

// DefaultPreviewCommand plays a URL without a window and exits at end of stream.
const DefaultPreviewCommand = "ffplay -nodisp -autoexit -loglevel quiet"

// Playback is one running clip started by a [MediaElement].
type Playback interface {
	Done() <-chan error // receives once when playback ends on its own or is stopped
	Stop() error
}

// MediaElement is the local media primitive used for preview clips.
type MediaElement interface {
	Start(url string, offset time.Duration, volume int) (Playback, error)
}

// ProcessElement plays clips with an external command.
//
// The command must accept ffplay style "-ss <seconds>" and "-volume <0-100>" flags before the URL.
type ProcessElement struct {
	Command string
}

// NewProcessElement returns an element running command, or [DefaultPreviewCommand] when empty.
func NewProcessElement(command string) *ProcessElement {
	if strings.TrimSpace(command) == "" {
		command = DefaultPreviewCommand
	}
	return &ProcessElement{Command: command}
}

// Args returns the argv used to play url.
func (p *ProcessElement) Args(url string, offset time.Duration, volume int) []string {
	args := strings.Fields(p.Command)
	args = append(args,
		"-ss", strconv.FormatFloat(offset.Seconds(), 'f', 1, 64),
		"-volume", strconv.Itoa(volume),
		url,
	)
	return args
}

func (p *ProcessElement) Start(url string, offset time.Duration, volume int) (Playback, error) {
	args := p.Args(url, offset, volume)
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: preview command", shared.ErrMissingConfig)
	}

	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", args[0], err)
	}

	proc := &process{cmd: cmd, done: make(chan error, 1)}
	go func() { proc.done <- cmd.Wait() }()
	return proc, nil
}

type process struct {
	cmd  *exec.Cmd
	done chan error
}

func (p *process) Done() <-chan error { return p.done }

func (p *process) Stop() error {
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// PreviewEngine plays preview clips on a [MediaElement], keeping the position with a clock.
//
// Pausing, seeking and volume changes restart the clip at the tracked position.
type PreviewEngine struct {
	element  MediaElement
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	song      *models.Song
	playback  Playback
	gen       int
	offset    time.Duration
	startedAt time.Time
	playing   bool
	volume    int
	stopTick  chan struct{}

	listeners listeners
}

// NewPreviewEngine creates an engine reporting its position every interval.
func NewPreviewEngine(element MediaElement, interval time.Duration) *PreviewEngine {
	if interval <= 0 {
		interval = time.Second
	}
	return &PreviewEngine{element: element, interval: interval, now: time.Now, volume: DefaultVolume}
}

func (e *PreviewEngine) Name() string { return Preview.String() }

func (e *PreviewEngine) OnStateChange(fn func(EngineEvent)) func() { return e.listeners.add(fn) }

// Load stops any clip and prepares song at position 0.
func (e *PreviewEngine) Load(_ context.Context, song models.Song) error {
	if !song.HasPreview || song.AudioURL == "" {
		return fmt.Errorf("%w: %s has no preview", ErrPlaybackUnavailable, song.ID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.halt()
	e.song = &song
	e.offset = 0
	return nil
}

func (e *PreviewEngine) Play(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.song == nil {
		return fmt.Errorf("%w: nothing loaded", ErrPlaybackUnavailable)
	}
	if e.playing {
		return nil
	}
	return e.start()
}

func (e *PreviewEngine) Pause(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.playing {
		return nil
	}
	e.offset = e.position()
	e.halt()
	return nil
}

func (e *PreviewEngine) Seek(_ context.Context, position time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.song == nil {
		return nil
	}
	e.offset = clampDuration(position, e.song.Length())
	if !e.playing {
		return nil
	}
	e.halt()
	return e.start()
}

func (e *PreviewEngine) SetVolume(_ context.Context, volume int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	volume = min(max(volume, 0), 100)
	if volume == e.volume {
		return nil
	}
	e.volume = volume
	if !e.playing {
		return nil
	}

	e.offset = e.position()
	e.halt()
	return e.start()
}

// Stop halts the clip and unloads the song.
func (e *PreviewEngine) Stop(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.halt()
	e.song = nil
	e.offset = 0
	return nil
}

// Position returns the tracked playback position.
func (e *PreviewEngine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position()
}

func (e *PreviewEngine) position() time.Duration {
	pos := e.offset
	if e.playing {
		pos += e.now().Sub(e.startedAt)
	}
	if e.song != nil {
		pos = clampDuration(pos, e.song.Length())
	}
	return pos
}

func (e *PreviewEngine) songID() string {
	if e.song == nil {
		return ""
	}
	return e.song.ID
}

// start must be called with e.mu held.
func (e *PreviewEngine) start() error {
	playback, err := e.element.Start(e.song.AudioURL, e.offset, e.volume)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPlaybackUnavailable, err)
	}

	e.gen++
	e.playback = playback
	e.playing = true
	e.startedAt = e.now()
	e.stopTick = make(chan struct{})

	go e.watch(e.gen, playback)
	go e.tick(e.gen, e.stopTick)
	return nil
}

// halt must be called with e.mu held. It invalidates the running clip so its exit is not reported.
func (e *PreviewEngine) halt() {
	e.gen++
	if e.stopTick != nil {
		close(e.stopTick)
		e.stopTick = nil
	}
	if e.playback != nil {
		_ = e.playback.Stop()
		e.playback = nil
	}
	e.playing = false
}

func (e *PreviewEngine) watch(gen int, playback Playback) {
	err := <-playback.Done()

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.halt()
	songID := e.songID()
	if e.song != nil {
		e.offset = e.song.Length()
	}
	e.mu.Unlock()

	if err != nil {
		e.listeners.emit(EngineEvent{Kind: EngineFailed, SongID: songID, Err: err})
		return
	}
	e.listeners.emit(EngineEvent{Kind: EngineEnded, SongID: songID})
}

func (e *PreviewEngine) tick(gen int, stop <-chan struct{}) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.mu.Lock()
			if gen != e.gen {
				e.mu.Unlock()
				return
			}
			ev := EngineEvent{Kind: EnginePosition, SongID: e.songID(), Position: e.position()}
			e.mu.Unlock()

			e.listeners.emit(ev)
		}
	}
}
