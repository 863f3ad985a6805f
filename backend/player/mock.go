package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dweymouth/mediadeck/backend/media"
)

var (
	_ Backend        = (*MockBackend)(nil)
	_ SpectrumHandle = (*MockHandle)(nil)
)

// MockBackend is an in-memory Backend for tests.
// It never touches the audio output.
type MockBackend struct {
	mu        sync.Mutex
	durations map[string]time.Duration
	openErrs  map[string]error
	gates     map[string]chan struct{}
	handles   []*MockHandle
	destroyed bool

	// DefaultDuration is reported by handles whose path has no
	// duration set with SetDuration. Zero means "unknown".
	DefaultDuration time.Duration
}

func NewMock() *MockBackend {
	return &MockBackend{
		durations:       make(map[string]time.Duration),
		openErrs:        make(map[string]error),
		gates:           make(map[string]chan struct{}),
		DefaultDuration: 3 * time.Minute,
	}
}

func (m *MockBackend) SetDuration(path string, d time.Duration) {
	m.mu.Lock()
	m.durations[path] = d
	m.mu.Unlock()
}

// SetOpenError makes Open fail with err for path.
func (m *MockBackend) SetOpenError(path string, err error) {
	m.mu.Lock()
	m.openErrs[path] = err
	m.mu.Unlock()
}

// Block makes Open for path block until the returned func is called.
func (m *MockBackend) Block(path string) (unblock func()) {
	ch := make(chan struct{})
	m.mu.Lock()
	m.gates[path] = ch
	m.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (m *MockBackend) Open(ctx context.Context, item media.Item) (Handle, error) {
	m.mu.Lock()
	gate := m.gates[item.Path]
	m.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.openErrs[item.Path]; err != nil {
		return nil, fmt.Errorf("open %s: %w", item.Name(), err)
	}
	dur, ok := m.durations[item.Path]
	if !ok {
		dur = m.DefaultDuration
	}
	h := &MockHandle{Item: item, duration: dur}
	m.handles = append(m.handles, h)
	return h, nil
}

// Handles returns every handle opened so far, in open order.
func (m *MockBackend) Handles() []*MockHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockHandle(nil), m.handles...)
}

// LastHandle returns the most recently opened handle, or nil.
func (m *MockBackend) LastHandle() *MockHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.handles) == 0 {
		return nil
	}
	return m.handles[len(m.handles)-1]
}

func (m *MockBackend) Destroy() {
	m.mu.Lock()
	m.destroyed = true
	m.mu.Unlock()
}

// MockHandle records every control call made on it.
type MockHandle struct {
	HandleCallbackImpl

	Item media.Item

	mu        sync.Mutex
	duration  time.Duration
	position  time.Duration
	playing   bool
	volume    float64
	muted     bool
	released  int
	failNext  error
	playCalls int
}

func (h *MockHandle) Duration() (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.duration, h.duration > 0
}

func (h *MockHandle) Position() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position
}

// SetPosition simulates playback progress.
func (h *MockHandle) SetPosition(d time.Duration) {
	h.mu.Lock()
	h.position = d
	h.mu.Unlock()
}

// FailNextCall makes the next control call return err.
func (h *MockHandle) FailNextCall(err error) {
	h.mu.Lock()
	h.failNext = err
	h.mu.Unlock()
}

func (h *MockHandle) control(f func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released > 0 {
		return ErrReleased
	}
	if err := h.failNext; err != nil {
		h.failNext = nil
		return err
	}
	f()
	return nil
}

func (h *MockHandle) Play() error {
	return h.control(func() { h.playing = true; h.playCalls++ })
}

func (h *MockHandle) Pause() error {
	return h.control(func() { h.playing = false })
}

func (h *MockHandle) SeekTo(pos time.Duration) error {
	return h.control(func() { h.position = pos })
}

func (h *MockHandle) SetVolume(vol float64) error {
	return h.control(func() { h.volume = vol })
}

func (h *MockHandle) SetMute(muted bool) error {
	return h.control(func() { h.muted = muted })
}

func (h *MockHandle) Release() error {
	h.mu.Lock()
	h.released++
	h.playing = false
	h.mu.Unlock()
	h.ClearCallbacks()
	return nil
}

func (h *MockHandle) IsPlaying() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

func (h *MockHandle) PlayCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playCalls
}

func (h *MockHandle) Volume() (float64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume, h.muted
}

// ReleaseCount reports how many times Release was called.
func (h *MockHandle) ReleaseCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

func (h *MockHandle) EmitEndOfMedia() { h.InvokeOnEndOfMedia() }

func (h *MockHandle) EmitError(err error) { h.InvokeOnError(err) }

func (h *MockHandle) EmitSpectrum(mags []float32) { h.InvokeOnSpectrum(mags) }
