package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dweymouth/mediadeck/backend/media"
)

var (
	// The backend could not open or decode the media.
	ErrUnsupportedOrCorrupt = errors.New("unsupported or corrupt media")

	// A failure reported by the backend while a handle was active.
	ErrBackendRuntime = errors.New("playback backend error")

	ErrReleased = errors.New("handle already released")
)

// Backend is a decoding backend capable of opening media items.
// Open may block (e.g. on slow storage) and is always called off the
// presentation goroutine.
type Backend interface {
	Open(ctx context.Context, item media.Item) (Handle, error)
	Destroy()
}

// CanOpener is an optional interface for backends that
// only support a subset of media kinds or formats.
type CanOpener interface {
	CanOpen(item media.Item) bool
}

// Handle is an opened, decoded media resource. It is owned exclusively
// by one playback session and must be released exactly once.
// Starts out paused at position zero.
type Handle interface {
	// Duration returns the total duration and whether it is known.
	Duration() (time.Duration, bool)
	Position() time.Duration

	Play() error
	Pause() error
	SeekTo(pos time.Duration) error

	// Volume in range [0, 1]
	SetVolume(vol float64) error
	SetMute(muted bool) error

	// Release stops output and frees all resources.
	// Callbacks registered on the handle will not be invoked after Release returns.
	Release() error

	// Event API - callbacks may be invoked from any goroutine
	OnEndOfMedia(func())
	OnError(func(error))
}

// SpectrumHandle is an optional interface for handles
// that can deliver spectrum frames of the audio being played.
type SpectrumHandle interface {
	Handle

	// SetSpectrumListener installs cb to receive magnitude frames.
	// A nil cb detaches the listener.
	SetSpectrumListener(cb func([]float32))
}

type HandleCallbackImpl struct {
	mu         sync.Mutex
	onEnd      func()
	onError    func(error)
	onSpectrum func([]float32)
}

// Registers a callback which is invoked when playback reaches the end of the media.
func (h *HandleCallbackImpl) OnEndOfMedia(cb func()) {
	h.mu.Lock()
	h.onEnd = cb
	h.mu.Unlock()
}

// Registers a callback which is invoked when the backend fails during playback.
func (h *HandleCallbackImpl) OnError(cb func(error)) {
	h.mu.Lock()
	h.onError = cb
	h.mu.Unlock()
}

func (h *HandleCallbackImpl) SetSpectrumListener(cb func([]float32)) {
	h.mu.Lock()
	h.onSpectrum = cb
	h.mu.Unlock()
}

func (h *HandleCallbackImpl) HasSpectrumListener() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.onSpectrum != nil
}

// ClearCallbacks detaches every registered callback.
func (h *HandleCallbackImpl) ClearCallbacks() {
	h.mu.Lock()
	h.onEnd = nil
	h.onError = nil
	h.onSpectrum = nil
	h.mu.Unlock()
}

func (h *HandleCallbackImpl) InvokeOnEndOfMedia() {
	h.mu.Lock()
	cb := h.onEnd
	h.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (h *HandleCallbackImpl) InvokeOnError(err error) {
	h.mu.Lock()
	cb := h.onError
	h.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

func (h *HandleCallbackImpl) InvokeOnSpectrum(mags []float32) {
	h.mu.Lock()
	cb := h.onSpectrum
	h.mu.Unlock()
	if cb != nil {
		cb(mags)
	}
}
