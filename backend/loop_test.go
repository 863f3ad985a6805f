package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/dweymouth/mediadeck/backend/media"
	"github.com/dweymouth/mediadeck/backend/player"
)

type loopFixture struct {
	ctrl   *Controller
	loop   *Loop
	mock   *player.MockBackend
	cancel context.CancelFunc
	done   chan struct{}
}

func startLoop(t *testing.T) *loopFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	mock := player.NewMock()
	events := NewEventQueue(0)
	cb := CallbackSet{}
	engine := NewPlaybackEngine(ctx, mock, events, cb, EngineOptions{
		PositionPollInterval: 10 * time.Millisecond,
		Volume:               80,
	})
	coord := NewCoordinator(media.NewPlaylist(true), engine, cb, RepeatAll)
	commands := NewCommandQueue()
	loop := NewLoop(coord, events, commands)
	f := &loopFixture{
		ctrl:   NewController(ctx, commands, loop),
		loop:   loop,
		mock:   mock,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		loop.Run(ctx)
		close(f.done)
	}()
	t.Cleanup(func() {
		cancel()
		<-f.done
	})
	return f
}

func (f *loopFixture) waitStatus(t *testing.T, cond func(PlayerStatus) bool) PlayerStatus {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st := f.ctrl.PlayerStatus(); cond(st) {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("status condition not met, last status %+v", f.ctrl.PlayerStatus())
	return PlayerStatus{}
}

func TestLoop_ControllerRoundTrip(t *testing.T) {
	f := startLoop(t)
	dir := t.TempDir()
	var paths []string
	for _, n := range []string{"one.mp3", "two.wav"} {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}

	st := f.ctrl.PlayerStatus()
	if st.State != "Idle" || st.Index != -1 || st.Volume != 80 || st.RepeatMode != "All" {
		t.Errorf("unexpected initial status %+v", st)
	}

	if err := f.ctrl.AddFiles(paths); err != nil {
		t.Fatal(err)
	}
	st = f.waitStatus(t, func(s PlayerStatus) bool { return s.State == "Ready" })
	if st.NowPlaying != "one.mp3" || !slices.Equal(st.Playlist, []string{"one.mp3", "two.wav"}) {
		t.Errorf("unexpected status %+v", st)
	}
	firstSession := st.SessionID
	if firstSession == "" {
		t.Error("expected a session id in the status")
	}

	if err := f.ctrl.Play(); err != nil {
		t.Fatal(err)
	}
	f.mock.LastHandle().SetPosition(30 * time.Second)
	f.waitStatus(t, func(s PlayerStatus) bool { return s.State == "Playing" && s.Position == 30*time.Second })

	if err := f.ctrl.PlayNext(); err != nil {
		t.Fatal(err)
	}
	st = f.waitStatus(t, func(s PlayerStatus) bool { return s.State == "Playing" && s.Index == 1 })
	if st.NowPlaying != "two.wav" {
		t.Errorf("expected two.wav, got %s", st.NowPlaying)
	}
	if st.SessionID == "" || st.SessionID == firstSession {
		t.Errorf("expected a new session id, got %q", st.SessionID)
	}

	if err := f.ctrl.SetRepeatMode("bogus"); err == nil {
		t.Error("expected error for invalid repeat mode")
	}
	f.ctrl.SetRepeatMode("One")
	f.ctrl.SetVolume(0)
	f.ctrl.ToggleMute()
	st = f.ctrl.PlayerStatus()
	if st.RepeatMode != "One" || st.Volume != 0 || !st.Muted {
		t.Errorf("unexpected status %+v", st)
	}

	if err := f.ctrl.PlaySelected(7); !errors.Is(err, media.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := f.ctrl.AddFiles([]string{"/nope.mp3"}); err == nil {
		t.Error("expected error when nothing could be added")
	}
}

func TestLoop_ShutdownReleasesMedia(t *testing.T) {
	f := startLoop(t)
	p := filepath.Join(t.TempDir(), "a.mp3")
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	f.ctrl.AddFiles([]string{p})
	f.waitStatus(t, func(s PlayerStatus) bool { return s.State == "Ready" })
	h := f.mock.LastHandle()

	f.cancel()
	<-f.done
	if h.ReleaseCount() != 1 {
		t.Errorf("expected handle released once, got %d", h.ReleaseCount())
	}
	if err := f.ctrl.Play(); !errors.Is(err, ErrCommandQueueClosed) {
		t.Errorf("expected ErrCommandQueueClosed after shutdown, got %v", err)
	}
}
