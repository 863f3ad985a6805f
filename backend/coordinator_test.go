package backend

import (
	"errors"
	"slices"
	"testing"

	"github.com/dweymouth/mediadeck/backend/media"
)

func TestCoordinator_AddFilesSelectsFirstWithoutPlaying(t *testing.T) {
	h := newHarness(t)
	paths := h.files("a.mp3", "b.mp4", "notes.txt")
	res := h.coord.AddFiles(append(paths, "/missing/c.wav"))
	if res.Added != 2 || res.Skipped != 2 || !res.Selected {
		t.Fatalf("unexpected result %+v", res)
	}
	if !h.rec.hasStatus("Added 2 file(s)") || !h.rec.hasStatus("Skipped 2 unsupported or missing file(s)") {
		t.Errorf("missing add status messages: %v", h.rec.statuses)
	}
	if len(h.rec.playlists) != 1 || !slices.Equal(h.rec.playlists[0], []string{"a.mp3", "b.mp4"}) {
		t.Errorf("unexpected playlist notifications %v", h.rec.playlists)
	}
	h.drain()
	h.expectState(StateReady)
	if h.mock.LastHandle().PlayCalls() != 0 {
		t.Error("adding files must not start playback")
	}

	// later adds do not reload
	h.coord.AddFiles(h.files("c.wav"))
	h.noEvent()
}

func TestCoordinator_SkipsMissingNext(t *testing.T) {
	h := newHarness(t)
	paths := h.files("A.mp3", "B.mp4", "C.wav")
	h.coord.AddFiles(paths)
	h.drain()
	if err := h.coord.PlaySelected(1); err != nil {
		t.Fatal(err)
	}
	h.drain()
	h.expectState(StatePlaying)
	if h.session().Item.Kind != media.KindVideo {
		t.Errorf("expected B.mp4 to be a video item, got %s", h.session().Item.Kind)
	}

	h.remove(paths[2])
	if err := h.coord.PlayNext(); err != nil {
		t.Fatalf("PlayNext: %v", err)
	}
	pl := h.coord.Playlist()
	if pl.CurrentIndex() != 0 {
		t.Errorf("expected cursor 0, got %d", pl.CurrentIndex())
	}
	if !slices.Equal(pl.Names(), []string{"A.mp3", "B.mp4"}) {
		t.Errorf("unexpected playlist %v", pl.Names())
	}
	h.drain()
	h.expectState(StatePlaying)
	if h.session().Item.Name() != "A.mp3" {
		t.Errorf("expected A.mp3 playing, got %s", h.session().Item.Name())
	}
}

func TestCoordinator_SkipsMissingPrevious(t *testing.T) {
	h := newHarness(t)
	paths := h.files("a.mp3", "b.mp3", "c.mp3", "d.mp3")
	h.coord.AddFiles(paths)
	h.drain()
	h.coord.PlaySelected(2)
	h.drain()
	h.remove(paths[1])
	h.remove(paths[0])

	if err := h.coord.PlayPrevious(); err != nil {
		t.Fatal(err)
	}
	pl := h.coord.Playlist()
	// a and b removed, wrapped around to d
	if !slices.Equal(pl.Names(), []string{"c.mp3", "d.mp3"}) || pl.CurrentIndex() != 1 {
		t.Errorf("unexpected playlist %v cursor %d", pl.Names(), pl.CurrentIndex())
	}
}

func TestCoordinator_AllMissingTerminates(t *testing.T) {
	h := newHarness(t)
	paths := h.files("a.mp3", "b.mp3", "c.mp3", "d.mp3", "e.mp3")
	h.coord.AddFiles(paths)
	h.drain()
	for _, p := range paths {
		h.remove(p)
	}

	err := h.coord.PlayNext()
	if !errors.Is(err, media.ErrPlaylistEmpty) {
		t.Fatalf("expected ErrPlaylistEmpty, got %v", err)
	}
	if h.coord.Playlist().Len() != 0 || h.coord.Playlist().CurrentIndex() != -1 {
		t.Errorf("expected empty playlist, got %v", h.coord.Playlist().Names())
	}
	if h.rec.lastStatus() != "Playlist empty" {
		t.Errorf("unexpected status %q", h.rec.lastStatus())
	}
	if h.engine.State() == StatePlaying || h.engine.State() == StateReady {
		t.Errorf("engine still holds media: %s", h.engine.State())
	}

	if err := h.coord.PlayPrevious(); !errors.Is(err, media.ErrPlaylistEmpty) {
		t.Errorf("expected ErrPlaylistEmpty on empty playlist, got %v", err)
	}
}

func TestCoordinator_PlaySelected(t *testing.T) {
	h := newHarness(t)
	paths := h.files("a.mp3", "b.mp3", "c.mp3")
	h.coord.AddFiles(paths)
	h.drain()
	nHandles := len(h.mock.Handles())

	if err := h.coord.PlaySelected(3); !errors.Is(err, media.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	h.expectState(StateReady)

	h.remove(paths[1])
	if err := h.coord.PlaySelected(1); !errors.Is(err, media.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if !h.rec.hasStatus("File not found: b.mp3") {
		t.Errorf("missing not-found status: %v", h.rec.statuses)
	}
	if !slices.Equal(h.coord.Playlist().Names(), []string{"a.mp3", "c.mp3"}) {
		t.Errorf("missing entry not removed: %v", h.coord.Playlist().Names())
	}
	h.noEvent()
	if len(h.mock.Handles()) != nHandles {
		t.Error("missing file was loaded")
	}

	if err := h.coord.PlaySelected(1); err != nil {
		t.Fatal(err)
	}
	h.drain()
	h.expectState(StatePlaying)
	if h.coord.Playlist().CurrentIndex() != 1 || h.session().Item.Name() != "c.mp3" {
		t.Errorf("unexpected selection %d %s", h.coord.Playlist().CurrentIndex(), h.session().Item.Name())
	}
}

func TestCoordinator_RemoveCurrentStops(t *testing.T) {
	h := newHarness(t)
	h.coord.AddFiles(h.files("a.mp3", "b.mp3"))
	h.drain()
	h.engine.Play()
	hd := h.mock.LastHandle()

	if err := h.coord.RemoveAt(0); err != nil {
		t.Fatal(err)
	}
	h.expectState(StateStopped)
	if hd.ReleaseCount() != 1 {
		t.Error("removed item's handle not released")
	}
	if h.coord.Playlist().CurrentIndex() != -1 {
		t.Errorf("expected no cursor, got %d", h.coord.Playlist().CurrentIndex())
	}
	h.noEvent() // no implicit advance

	if err := h.coord.RemoveAt(5); !errors.Is(err, media.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}

	// Play with no cursor starts at the first entry
	h.engine.Play()
	h.drain()
	h.expectState(StatePlaying)
	if h.session().Item.Name() != "b.mp3" {
		t.Errorf("expected b.mp3, got %s", h.session().Item.Name())
	}
}

func TestCoordinator_ClearPlaylist(t *testing.T) {
	h := newHarness(t)
	h.coord.AddFiles(h.files("a.mp3", "b.mp3"))
	h.drain()
	h.engine.Play()
	h.coord.ClearPlaylist()
	h.expectState(StateStopped)
	if h.coord.Playlist().Len() != 0 {
		t.Error("playlist not cleared")
	}
	last := h.rec.playlists[len(h.rec.playlists)-1]
	if len(last) != 0 {
		t.Errorf("expected empty playlist notification, got %v", last)
	}
}

func TestCoordinator_VolumeMuteRule(t *testing.T) {
	h := newHarness(t)
	h.coord.SetVolume(0)
	h.coord.SetMute(true)
	if h.engine.AudibleVolume() != 0 || h.rec.lastStatus() != "Muted" {
		t.Fatal("expected muted")
	}
	h.coord.SetVolume(50)
	if h.engine.Muted() {
		t.Error("raising the volume should clear mute")
	}
	if h.engine.AudibleVolume() != 0.5 {
		t.Errorf("expected audible volume 0.5, got %v", h.engine.AudibleVolume())
	}

	// lowering to zero keeps mute state as is
	h.coord.ToggleMute()
	h.coord.SetVolume(0)
	if !h.engine.Muted() {
		t.Error("setting volume to zero must not unmute")
	}
}

func TestCoordinator_RepeatModes(t *testing.T) {
	for _, tt := range []struct {
		mode     RepeatMode
		start    int
		wantNext string // "" means playback stops
	}{
		{RepeatAll, 2, "a.mp3"},
		{RepeatAll, 0, "b.mp3"},
		{RepeatOne, 1, "b.mp3"},
		{RepeatNone, 0, "b.mp3"},
		{RepeatNone, 2, ""},
	} {
		t.Run(tt.mode.String(), func(t *testing.T) {
			h := newHarness(t)
			h.coord.AddFiles(h.files("a.mp3", "b.mp3", "c.mp3"))
			h.drain()
			h.coord.SetRepeatMode(tt.mode)
			h.coord.PlaySelected(tt.start)
			h.drain()

			h.mock.LastHandle().EmitEndOfMedia()
			h.drain()
			if tt.wantNext == "" {
				h.expectState(StateStopped)
				h.noEvent()
				return
			}
			h.drain()
			h.expectState(StatePlaying)
			if got := h.session().Item.Name(); got != tt.wantNext {
				t.Errorf("expected %s after end of media, got %s", tt.wantNext, got)
			}
		})
	}
}

func TestCoordinator_PlayAfterStopDropsVanishedFile(t *testing.T) {
	h := newHarness(t)
	paths := h.files("a.mp3", "b.mp3")
	h.coord.AddFiles(paths)
	h.drain()
	h.engine.Play()
	h.engine.Stop()
	nHandles := len(h.mock.Handles())

	h.remove(paths[0])
	h.mock.SetOpenError(h.item(paths[0]).Path, media.ErrNotFound)
	h.engine.Play()
	if !slices.Equal(h.coord.Playlist().Names(), []string{"b.mp3"}) {
		t.Fatalf("vanished entry not removed: %v", h.coord.Playlist().Names())
	}
	if !h.rec.hasStatus("File not found: a.mp3") {
		t.Errorf("missing not-found status: %v", h.rec.statuses)
	}
	h.drain()
	h.expectState(StatePlaying)
	if h.session().Item.Name() != "b.mp3" || len(h.mock.Handles()) != nHandles+1 {
		t.Errorf("expected b.mp3 to be loaded, got %s", h.session().Item.Name())
	}
	if len(h.rec.errors) != 0 {
		t.Errorf("a vanished file must not be reported as an error: %v", h.rec.errors)
	}

	// same from the Error state, with nothing left to play
	h.mock.LastHandle().EmitError(errors.New("device lost"))
	h.drain()
	h.expectState(StateError)
	h.remove(paths[1])
	h.engine.Play()
	if h.coord.Playlist().Len() != 0 || h.rec.lastStatus() != "Playlist empty" {
		t.Errorf("unexpected playlist %v status %q", h.coord.Playlist().Names(), h.rec.lastStatus())
	}
	h.noEvent()
}

func TestCoordinator_RepeatOneContinuesAfterVanishedEntry(t *testing.T) {
	h := newHarness(t)
	paths := h.files("a.mp3", "b.mp3", "c.mp3")
	h.coord.AddFiles(paths)
	h.drain()
	h.coord.SetRepeatMode(RepeatOne)
	h.coord.PlaySelected(1)
	h.drain()

	h.remove(paths[1])
	h.mock.LastHandle().EmitEndOfMedia()
	h.drain()
	h.drain()
	h.expectState(StatePlaying)
	pl := h.coord.Playlist()
	if got := h.session().Item.Name(); got != "c.mp3" {
		t.Errorf("expected the entry after the vanished one, got %s", got)
	}
	if !slices.Equal(pl.Names(), []string{"a.mp3", "c.mp3"}) || pl.CurrentIndex() != 1 {
		t.Errorf("unexpected playlist %v cursor %d", pl.Names(), pl.CurrentIndex())
	}
}

func TestCoordinator_PruneMissing(t *testing.T) {
	h := newHarness(t)
	paths := h.files("a.mp3", "b.mp3", "c.mp3", "d.mp3")
	h.coord.AddFiles(paths)
	h.drain()
	h.coord.PlaySelected(2)
	h.drain()

	h.remove(paths[0])
	h.remove(paths[2]) // current entry is kept
	h.remove(paths[3])
	if n := h.coord.PruneMissing(); n != 2 {
		t.Errorf("expected 2 pruned, got %d", n)
	}
	pl := h.coord.Playlist()
	if !slices.Equal(pl.Names(), []string{"b.mp3", "c.mp3"}) || pl.CurrentIndex() != 1 {
		t.Errorf("unexpected playlist %v cursor %d", pl.Names(), pl.CurrentIndex())
	}
}

func TestParseRepeatMode(t *testing.T) {
	for in, want := range map[string]RepeatMode{
		"All": RepeatAll, "One": RepeatOne, "none": RepeatNone, "bogus": RepeatAll,
	} {
		if got := ParseRepeatMode(in); got != want {
			t.Errorf("ParseRepeatMode(%q) = %v, want %v", in, got, want)
		}
	}
}
