package backend

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/dweymouth/mediadeck/backend/media"
	"github.com/dweymouth/mediadeck/backend/player"
)

type timeUpdate struct {
	cur, total time.Duration
}

// recorder is a Callbacks implementation that records every call.
type recorder struct {
	mu         sync.Mutex
	statuses   []string
	nowPlaying []string
	times      []timeUpdate
	playlists  [][]string
	ready      []string
	errors     []string
	spectrum   [][]float32
	states     []State
	volumes    []int
}

var _ Callbacks = (*recorder)(nil)

func (r *recorder) OnStatus(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, text)
}

func (r *recorder) OnNowPlaying(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nowPlaying = append(r.nowPlaying, name)
}

func (r *recorder) OnTimeUpdate(cur, total time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.times = append(r.times, timeUpdate{cur, total})
}

func (r *recorder) OnPlaylistChanged(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playlists = append(r.playlists, names)
}

func (r *recorder) OnReady(name string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = append(r.ready, name)
}

func (r *recorder) OnError(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, message)
}

func (r *recorder) OnSpectrum(m []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spectrum = append(r.spectrum, m)
}

func (r *recorder) OnStateChange(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) OnVolumeChange(vol int, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.volumes = append(r.volumes, vol)
}

func (r *recorder) lastStatus() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}

func (r *recorder) hasStatus(s string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.statuses, s)
}

func (r *recorder) timeUpdates() []timeUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.times)
}

func (r *recorder) lastTime() timeUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.times[len(r.times)-1]
}

// harness wires a coordinator and engine to a mock backend.
// Events are not processed until the test drains them.
type harness struct {
	t      *testing.T
	ctx    context.Context
	mock   *player.MockBackend
	events *EventQueue
	rec    *recorder
	engine *PlaybackEngine
	coord  *Coordinator
	dir    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := &harness{
		t:      t,
		ctx:    ctx,
		mock:   player.NewMock(),
		events: NewEventQueue(0),
		rec:    &recorder{},
		dir:    t.TempDir(),
	}
	// the poller never fires in tests; position updates are injected
	h.engine = NewPlaybackEngine(ctx, h.mock, h.events, h.rec, EngineOptions{
		PositionPollInterval: time.Hour,
		Volume:               100,
	})
	h.coord = NewCoordinator(media.NewPlaylist(true), h.engine, h.rec, RepeatAll)
	return h
}

// files creates the named files and returns their paths.
func (h *harness) files(names ...string) []string {
	h.t.Helper()
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(h.dir, n)
		if err := os.WriteFile(paths[i], nil, 0o644); err != nil {
			h.t.Fatal(err)
		}
	}
	return paths
}

func (h *harness) item(path string) media.Item {
	h.t.Helper()
	it, err := media.NewItem(path)
	if err != nil {
		h.t.Fatal(err)
	}
	return it
}

func (h *harness) remove(path string) {
	h.t.Helper()
	if err := os.Remove(path); err != nil {
		h.t.Fatal(err)
	}
}

// next waits for the next posted event and returns it without handling it.
func (h *harness) next() Event {
	h.t.Helper()
	select {
	case ev := <-h.events.C():
		return ev
	case <-time.After(2 * time.Second):
		h.t.Fatal("timed out waiting for event")
		return nil
	}
}

// drain waits for the next posted event and handles it.
func (h *harness) drain() Event {
	h.t.Helper()
	ev := h.next()
	h.engine.HandleEvent(ev)
	return ev
}

// noEvent asserts that no event is posted within a short interval.
func (h *harness) noEvent() {
	h.t.Helper()
	select {
	case ev := <-h.events.C():
		h.t.Fatalf("unexpected event %#v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func (h *harness) session() PlaybackSession {
	h.t.Helper()
	s, ok := h.engine.Session()
	if !ok {
		h.t.Fatal("expected a session")
	}
	return s
}

// tick simulates a position poller tick for the current session.
func (h *harness) tick() {
	h.engine.HandleEvent(PositionUpdateEvent{Generation: h.session().Generation})
}

func (h *harness) expectState(want State) {
	h.t.Helper()
	if got := h.engine.State(); got != want {
		h.t.Fatalf("expected state %s, got %s", want, got)
	}
}
