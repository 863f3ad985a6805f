package backend

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dweymouth/mediadeck/backend/media"
	"github.com/dweymouth/mediadeck/backend/player"
	"github.com/google/uuid"
)

// The playback state of the engine's session.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StatePlaying
	StatePaused
	StateStopped
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "Loading"
	case StateReady:
		return "Ready"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateStopped:
		return "Stopped"
	case StateError:
		return "Error"
	default:
		return "Idle"
	}
}

// hasMedia reports whether a session in state s holds an opened handle.
func (s State) hasMedia() bool {
	return s == StateReady || s == StatePlaying || s == StatePaused
}

const (
	statusLoading = "Loading..."
	statusReady   = "Ready to play"
	statusPlaying = "Playing"
	statusPaused  = "Paused"
	statusStopped = "Stopped"
	statusLoadErr = "Load failed"
	statusPlayErr = "Playback error"
)

const defaultPositionPollInterval = 250 * time.Millisecond

// PlaybackSession is one load of one media item.
// A new session replaces the previous one on every Load.
type PlaybackSession struct {
	ID         string
	Generation uint64
	State      State
	Item       media.Item

	Duration      time.Duration
	DurationKnown bool
	Position      time.Duration

	handle player.Handle
}

type EngineOptions struct {
	PositionPollInterval time.Duration
	Visualization        bool
	Volume               int // 0-100
	Muted                bool
}

// PlaybackEngine owns the single active playback session and runs its
// state machine. It is not safe for concurrent use: every method, as well
// as HandleEvent, must be called from the presentation goroutine.
type PlaybackEngine struct {
	ctx     context.Context
	backend player.Backend
	events  *EventQueue
	cb      Callbacks

	session       *PlaybackSession
	generation    uint64
	playWhenReady bool
	dragging      bool
	visualization bool
	volume        int
	muted         bool

	pollInterval  time.Duration
	cancelPollPos context.CancelFunc

	// hooks into the coordinator
	onEndOfMedia func()
	onPlayIdle   func()
}

func NewPlaybackEngine(ctx context.Context, b player.Backend, events *EventQueue, cb Callbacks, opts EngineOptions) *PlaybackEngine {
	if opts.PositionPollInterval <= 0 {
		opts.PositionPollInterval = defaultPositionPollInterval
	}
	if cb == nil {
		cb = BaseCallbacks{}
	}
	return &PlaybackEngine{
		ctx:           ctx,
		backend:       b,
		events:        events,
		cb:            cb,
		pollInterval:  opts.PositionPollInterval,
		visualization: opts.Visualization,
		volume:        clamp(opts.Volume, 0, 100),
		muted:         opts.Muted,
	}
}

// OnEndOfMedia registers the hook invoked after a session reaches end of media.
func (e *PlaybackEngine) OnEndOfMedia(cb func()) {
	e.onEndOfMedia = cb
}

// OnPlayIdle registers the hook invoked when Play is requested
// with nothing to resume.
func (e *PlaybackEngine) OnPlayIdle(cb func()) {
	e.onPlayIdle = cb
}

// Session returns a copy of the current session, if any.
func (e *PlaybackEngine) Session() (PlaybackSession, bool) {
	if e.session == nil {
		return PlaybackSession{}, false
	}
	s := *e.session
	s.handle = nil
	return s, true
}

func (e *PlaybackEngine) State() State {
	if e.session == nil {
		return StateIdle
	}
	return e.session.State
}

// Volume in range [0, 100], regardless of mute.
func (e *PlaybackEngine) Volume() int { return e.volume }

func (e *PlaybackEngine) Muted() bool { return e.muted }

// AudibleVolume is the effective output volume in range [0, 1].
func (e *PlaybackEngine) AudibleVolume() float64 {
	if e.muted {
		return 0
	}
	return float64(e.volume) / 100
}

func (e *PlaybackEngine) Dragging() bool { return e.dragging }

func (e *PlaybackEngine) Visualization() bool { return e.visualization }

// Load starts loading item on a background goroutine, replacing the
// current session. The result is delivered through the event queue.
func (e *PlaybackEngine) Load(item media.Item) {
	e.release()
	e.generation++
	e.session = &PlaybackSession{
		ID:         uuid.NewString(),
		Generation: e.generation,
		State:      StateLoading,
		Item:       item,
	}
	e.playWhenReady = false
	log.Printf("[%s] loading %s", e.session.ID[:8], item.Path)

	e.cb.OnStateChange(StateLoading)
	e.cb.OnTimeUpdate(0, 0)
	e.cb.OnStatus(statusLoading)

	gen := e.generation
	go func() {
		h, err := e.backend.Open(e.ctx, item)
		posted := e.events.Post(e.ctx, LoadResultEvent{Generation: gen, Item: item, Handle: h, Err: err})
		if !posted && h != nil {
			h.Release()
		}
	}()
}

// LoadAndPlay loads item and starts playback as soon as it is ready.
func (e *PlaybackEngine) LoadAndPlay(item media.Item) {
	e.Load(item)
	e.playWhenReady = true
}

func (e *PlaybackEngine) Play() {
	s := e.session
	switch e.State() {
	case StateReady, StatePaused:
		if err := s.handle.Play(); err != nil {
			e.fail(err)
			return
		}
		e.setState(StatePlaying)
		e.cb.OnStatus(statusPlaying)
		e.startPollTimePos()
	case StateLoading:
		e.playWhenReady = true
	case StateStopped, StateError:
		// a vanished file goes through the playlist so its entry is dropped
		if !s.Item.IsZero() && s.Item.Exists() {
			e.LoadAndPlay(s.Item)
			return
		}
		e.playIdle()
	case StateIdle:
		e.playIdle()
	}
}

func (e *PlaybackEngine) playIdle() {
	if e.onPlayIdle != nil {
		e.onPlayIdle()
	}
}

func (e *PlaybackEngine) Pause() {
	if e.State() != StatePlaying {
		return
	}
	s := e.session
	if err := s.handle.Pause(); err != nil {
		e.fail(err)
		return
	}
	e.stopPollTimePos()
	s.Position = s.handle.Position()
	e.setState(StatePaused)
	e.cb.OnStatus(statusPaused)
	if !e.dragging {
		e.cb.OnTimeUpdate(s.Position, s.Duration)
	}
}

func (e *PlaybackEngine) TogglePlayPause() {
	if e.State() == StatePlaying {
		e.Pause()
	} else {
		e.Play()
	}
}

// Stop releases the current media but remembers the item, so that a
// following Play reloads it.
func (e *PlaybackEngine) Stop() {
	if e.session == nil {
		return
	}
	e.release()
	e.playWhenReady = false
	e.session.Position = 0
	e.setState(StateStopped)
	e.cb.OnTimeUpdate(0, 0)
	e.cb.OnStatus(statusStopped)
}

// Cleanup stops playback and forgets the session's item.
func (e *PlaybackEngine) Cleanup() {
	if e.session == nil {
		return
	}
	e.Stop()
	e.session.Item = media.Item{}
	e.session.Duration, e.session.DurationKnown = 0, false
}

// Seek moves to fraction [0, 1] of the duration.
// Does nothing if no media is loaded or the duration is unknown.
func (e *PlaybackEngine) Seek(fraction float64) {
	s := e.session
	if !e.State().hasMedia() || !s.DurationKnown {
		return
	}
	fraction = clamp(fraction, 0, 1)
	target := time.Duration(fraction * float64(s.Duration))
	if err := s.handle.SeekTo(target); err != nil {
		e.fail(err)
		return
	}
	s.Position = target
	e.cb.OnTimeUpdate(target, s.Duration)
}

// SetDragging suppresses position updates driven by playback while
// the user drags the progress control.
func (e *PlaybackEngine) SetDragging(dragging bool) {
	e.dragging = dragging
}

func (e *PlaybackEngine) SetVolume(vol int) {
	e.volume = clamp(vol, 0, 100)
	e.applyVolume()
}

func (e *PlaybackEngine) SetMute(muted bool) {
	e.muted = muted
	e.applyVolume()
}

func (e *PlaybackEngine) ToggleMute() {
	e.SetMute(!e.muted)
}

func (e *PlaybackEngine) applyVolume() {
	e.cb.OnVolumeChange(e.volume, e.muted)
	if s := e.session; s != nil && s.handle != nil {
		if err := e.applyVolumeTo(s.handle); err != nil {
			e.fail(err)
		}
	}
}

func (e *PlaybackEngine) applyVolumeTo(h player.Handle) error {
	if err := h.SetVolume(float64(e.volume) / 100); err != nil {
		return err
	}
	return h.SetMute(e.muted)
}

func (e *PlaybackEngine) SetVisualization(on bool) {
	e.visualization = on
	if s := e.session; s != nil && s.handle != nil {
		if on {
			e.attachSpectrum(s)
		} else {
			detachSpectrum(s.handle)
		}
	}
}

func (e *PlaybackEngine) ToggleVisualization() {
	e.SetVisualization(!e.visualization)
}

func (e *PlaybackEngine) attachSpectrum(s *PlaybackSession) {
	sh, ok := s.handle.(player.SpectrumHandle)
	if !ok || !e.visualization || s.Item.IsVideo() {
		return
	}
	gen := s.Generation
	sh.SetSpectrumListener(func(mags []float32) {
		e.events.Post(e.ctx, SpectrumEvent{Generation: gen, Magnitudes: mags})
	})
}

func detachSpectrum(h player.Handle) {
	if sh, ok := h.(player.SpectrumHandle); ok {
		sh.SetSpectrumListener(nil)
	}
}

// HandleEvent applies an event posted by a background goroutine.
func (e *PlaybackEngine) HandleEvent(ev Event) {
	switch ev := ev.(type) {
	case LoadResultEvent:
		e.handleLoadResult(ev)
	case PositionUpdateEvent:
		e.handlePositionUpdate(ev)
	case EndOfMediaEvent:
		e.handleEndOfMedia(ev)
	case PlaybackErrorEvent:
		if e.isCurrent(ev) && e.State().hasMedia() {
			e.fail(ev.Err)
		}
	case SpectrumEvent:
		if e.isCurrent(ev) && e.State() == StatePlaying && e.visualization {
			e.cb.OnSpectrum(ev.Magnitudes)
		}
	}
}

func (e *PlaybackEngine) isCurrent(ev Event) bool {
	return e.session != nil && e.session.Generation == ev.Gen()
}

func (e *PlaybackEngine) handleLoadResult(ev LoadResultEvent) {
	s := e.session
	if !e.isCurrent(ev) || s.State != StateLoading {
		if ev.Handle != nil {
			ev.Handle.Release()
		}
		log.Printf("discarding stale load of %s (generation %d)", ev.Item.Name(), ev.Generation)
		return
	}

	if ev.Err != nil {
		log.Printf("[%s] failed to load %s: %v", s.ID[:8], s.Item.Path, ev.Err)
		e.playWhenReady = false
		e.setState(StateError)
		e.cb.OnStatus(statusLoadErr)
		e.cb.OnError(loadErrorMessage(s.Item, ev.Err))
		return
	}

	h := ev.Handle
	s.handle = h
	s.Duration, s.DurationKnown = h.Duration()
	s.Position = 0
	if err := e.applyVolumeTo(h); err != nil {
		e.fail(err)
		return
	}
	gen := s.Generation
	h.OnEndOfMedia(func() {
		// may be called with backend locks held; never block here
		go e.events.Post(e.ctx, EndOfMediaEvent{Generation: gen})
	})
	h.OnError(func(err error) {
		go e.events.Post(e.ctx, PlaybackErrorEvent{Generation: gen, Err: err})
	})
	e.attachSpectrum(s)

	name := s.Item.Name()
	e.setState(StateReady)
	e.cb.OnNowPlaying(name)
	e.cb.OnStatus(statusReady)
	e.cb.OnTimeUpdate(0, s.Duration)
	e.cb.OnReady(name, s.Duration)

	if e.playWhenReady {
		e.playWhenReady = false
		e.Play()
	}
}

func loadErrorMessage(item media.Item, err error) string {
	if errors.Is(err, media.ErrNotFound) {
		return fmt.Sprintf("File not found: %s", item.Name())
	}
	return fmt.Sprintf("Could not load %s: %v", item.Name(), err)
}

func (e *PlaybackEngine) handlePositionUpdate(ev PositionUpdateEvent) {
	s := e.session
	if !e.isCurrent(ev) || s.State != StatePlaying {
		return
	}
	s.Position = s.handle.Position()
	if !s.DurationKnown {
		s.Duration, s.DurationKnown = s.handle.Duration()
	}
	if !e.dragging {
		e.cb.OnTimeUpdate(s.Position, s.Duration)
	}
}

func (e *PlaybackEngine) handleEndOfMedia(ev EndOfMediaEvent) {
	if !e.isCurrent(ev) || !e.State().hasMedia() {
		return
	}
	log.Printf("[%s] end of media", e.session.ID[:8])
	e.Stop()
	if e.onEndOfMedia != nil {
		e.onEndOfMedia()
	}
}

// fail moves the session to the Error state after a backend failure.
func (e *PlaybackEngine) fail(err error) {
	if errors.Is(err, player.ErrReleased) {
		return
	}
	s := e.session
	log.Printf("[%s] playback error: %v", s.ID[:8], err)
	e.release()
	e.playWhenReady = false
	e.setState(StateError)
	e.cb.OnStatus(statusPlayErr)
	e.cb.OnError(fmt.Sprintf("Error playing %s: %v", s.Item.Name(), err))
}

func (e *PlaybackEngine) setState(st State) {
	if e.session.State == st {
		return
	}
	e.session.State = st
	e.cb.OnStateChange(st)
}

// release is the only place a session's handle is given up.
func (e *PlaybackEngine) release() {
	e.stopPollTimePos()
	s := e.session
	if s == nil || s.handle == nil {
		return
	}
	h := s.handle
	s.handle = nil
	detachSpectrum(h)
	if err := h.Release(); err != nil {
		log.Printf("[%s] error releasing media: %v", s.ID[:8], err)
	}
}

func (e *PlaybackEngine) startPollTimePos() {
	e.stopPollTimePos()
	ctx, cancel := context.WithCancel(e.ctx)
	e.cancelPollPos = cancel
	pollingTick := time.NewTicker(e.pollInterval)
	gen := e.session.Generation

	go func() {
		for {
			select {
			case <-ctx.Done():
				pollingTick.Stop()
				return
			case <-pollingTick.C:
				e.events.Post(ctx, PositionUpdateEvent{Generation: gen})
			}
		}
	}()
}

func (e *PlaybackEngine) stopPollTimePos() {
	if e.cancelPollPos != nil {
		e.cancelPollPos()
		e.cancelPollPos = nil
	}
}

// Shutdown releases all media. The engine must not be used afterwards.
func (e *PlaybackEngine) Shutdown() {
	e.Cleanup()
	e.backend.Destroy()
}
