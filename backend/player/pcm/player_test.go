package pcm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dweymouth/mediadeck/backend/media"
	"github.com/faiface/beep"
)

func TestCanOpen(t *testing.T) {
	b := New(Options{})
	for _, tt := range []struct {
		path string
		want bool
	}{
		{"/music/a.mp3", true},
		{"/music/B.WAV", true},
		{"/music/c.m4a", false},
		{"/video/d.mp4", false},
	} {
		item, _ := media.NewItem(tt.path)
		if got := b.CanOpen(item); got != tt.want {
			t.Errorf("CanOpen(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestDecodeWAV_RejectsGarbage(t *testing.T) {
	p := filepath.Join(t.TempDir(), "broken.wav")
	if err := os.WriteFile(p, []byte("definitely not a RIFF file"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, _, err := decodeWAV(f); err == nil {
		t.Error("expected error decoding garbage WAV")
	}
}

func TestTap(t *testing.T) {
	i := 0
	src := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for j := range samples {
			samples[j] = [2]float64{float64(i), float64(i) + 2}
			i++
		}
		return len(samples), true
	})
	tp := newTap(src, 4)

	buf := make([][2]float64, 6)
	if n, ok := tp.Stream(buf); n != 6 || !ok {
		t.Fatalf("unexpected stream result %d %v", n, ok)
	}
	snap, count := tp.Snapshot()
	if count != 6 {
		t.Errorf("expected count 6, got %d", count)
	}
	// last 4 frames are 2..5, mono mix is frame+1
	want := []float64{3, 4, 5, 6}
	for k, v := range want {
		if snap.Data[k] != v {
			t.Errorf("snapshot[%d] = %v, want %v", k, snap.Data[k], v)
		}
	}

	tp.Reset()
	snap, count = tp.Snapshot()
	if count != 6 || snap.Data[0] != 0 {
		t.Errorf("unexpected snapshot after reset: %v %d", snap.Data, count)
	}
}
