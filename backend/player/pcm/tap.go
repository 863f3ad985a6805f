package pcm

import (
	"sync"

	"github.com/faiface/beep"
	"github.com/go-audio/audio"
)

// tap is a pass-through streamer that keeps the most recent
// window of samples (down-mixed to mono) for analysis.
type tap struct {
	beep.Streamer

	mu    sync.Mutex
	ring  []float64
	pos   int
	count uint64 // total frames seen
}

func newTap(s beep.Streamer, size int) *tap {
	return &tap{Streamer: s, ring: make([]float64, size)}
}

func (t *tap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.Streamer.Stream(samples)
	t.mu.Lock()
	for _, s := range samples[:n] {
		t.ring[t.pos] = (s[0] + s[1]) / 2
		t.pos = (t.pos + 1) % len(t.ring)
	}
	t.count += uint64(n)
	t.mu.Unlock()
	return n, ok
}

func (t *tap) Reset() {
	t.mu.Lock()
	clear(t.ring)
	t.pos = 0
	t.mu.Unlock()
}

// Snapshot returns the window in playback order
// and the total number of frames streamed so far.
func (t *tap) Snapshot() (*audio.FloatBuffer, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	data := make([]float64, 0, len(t.ring))
	data = append(data, t.ring[t.pos:]...)
	data = append(data, t.ring[:t.pos]...)
	return &audio.FloatBuffer{
		Format: &audio.Format{NumChannels: 1, SampleRate: int(SampleRate)},
		Data:   data,
	}, t.count
}
