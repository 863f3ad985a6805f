// Package pcm implements a pure-Go audio backend on top of beep.
// It decodes MP3 and WAV files itself and so can tap the decoded
// samples to feed a spectrum visualization.
package pcm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sync"
	"time"

	"github.com/dweymouth/mediadeck/backend/media"
	"github.com/dweymouth/mediadeck/backend/player"
	"github.com/dweymouth/mediadeck/backend/player/spectrum"
	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	gawav "github.com/go-audio/wav"
)

const (
	SampleRate = beep.SampleRate(44100)

	speakerBuffer   = 100 * time.Millisecond
	resampleQuality = 4
)

var (
	_ player.Backend        = (*Backend)(nil)
	_ player.SpectrumHandle = (*handle)(nil)

	speakerOnce sync.Once
	speakerErr  error
)

type Options struct {
	// How often spectrum frames are delivered to a listener.
	SpectrumInterval time.Duration
	// Lower clamp of spectrum magnitudes in dB.
	SpectrumThresholdDB float64
}

// Backend plays audio through the system speaker.
// Any number of handles may be open at once; each is mixed into the
// shared speaker output.
type Backend struct {
	opts Options
}

func New(opts Options) *Backend {
	if opts.SpectrumInterval <= 0 {
		opts.SpectrumInterval = 100 * time.Millisecond
	}
	if opts.SpectrumThresholdDB >= 0 {
		opts.SpectrumThresholdDB = spectrum.DefaultThresholdDB
	}
	return &Backend{opts: opts}
}

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(SampleRate, SampleRate.N(speakerBuffer))
	})
	return speakerErr
}

func (b *Backend) CanOpen(item media.Item) bool {
	return decoderFor(item.Path) != nil
}

type decodeFunc func(f *os.File) (beep.StreamSeekCloser, beep.Format, error)

func decoderFor(path string) decodeFunc {
	switch {
	case media.HasExtension(path, ".mp3"):
		return decodeMP3
	case media.HasExtension(path, ".wav"):
		return decodeWAV
	}
	return nil
}

func decodeMP3(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
	return mp3.Decode(f)
}

func decodeWAV(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
	// beep's decoder accepts some malformed headers and then fails
	// mid-stream; reject those up front.
	if !gawav.NewDecoder(f).IsValidFile() {
		return nil, beep.Format{}, errors.New("invalid WAV header")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, beep.Format{}, err
	}
	return wav.Decode(f)
}

func (b *Backend) Open(ctx context.Context, item media.Item) (player.Handle, error) {
	decode := decoderFor(item.Path)
	if decode == nil {
		return nil, fmt.Errorf("%s: %w", item.Name(), player.ErrUnsupportedOrCorrupt)
	}
	if err := initSpeaker(); err != nil {
		return nil, fmt.Errorf("init audio output: %w", err)
	}
	f, err := os.Open(item.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, media.ErrNotFound
		}
		return nil, err
	}
	streamer, format, err := decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %v: %w", item.Name(), err, player.ErrUnsupportedOrCorrupt)
	}
	if err := ctx.Err(); err != nil {
		streamer.Close()
		f.Close()
		return nil, err
	}

	h := &handle{
		file:     f,
		streamer: streamer,
		format:   format,
		interval: b.opts.SpectrumInterval,
		analyzer: spectrum.NewAnalyzer(spectrum.DefaultWindowSize, spectrum.Bands, b.opts.SpectrumThresholdDB),
	}
	var s beep.Streamer = streamer
	if format.SampleRate != SampleRate {
		s = beep.Resample(resampleQuality, format.SampleRate, SampleRate, s)
	}
	h.tap = newTap(s, spectrum.DefaultWindowSize)
	h.volume = &effects.Volume{Streamer: h.tap, Base: 2}
	h.ctrl = &beep.Ctrl{Streamer: h.volume, Paused: true}
	speaker.Play(beep.Seq(h.ctrl, beep.Callback(func() {
		// runs on the speaker goroutine with the mixer locked
		go h.finished()
	})))
	return h, nil
}

// Destroy silences all output.
func (b *Backend) Destroy() {
	if initSpeaker() == nil {
		speaker.Clear()
	}
}

type handle struct {
	player.HandleCallbackImpl

	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
	tap      *tap
	volume   *effects.Volume
	ctrl     *beep.Ctrl

	analyzer *spectrum.Analyzer
	interval time.Duration

	mu           sync.Mutex
	released     bool
	vol          float64
	muted        bool
	stopSpectrum context.CancelFunc
}

func (h *handle) Duration() (time.Duration, bool) {
	n := h.streamer.Len()
	return h.format.SampleRate.D(n), n > 0
}

func (h *handle) Position() time.Duration {
	speaker.Lock()
	defer speaker.Unlock()
	return h.format.SampleRate.D(h.streamer.Position())
}

func (h *handle) isReleased() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

func (h *handle) Play() error {
	if h.isReleased() {
		return player.ErrReleased
	}
	speaker.Lock()
	h.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

func (h *handle) Pause() error {
	if h.isReleased() {
		return player.ErrReleased
	}
	speaker.Lock()
	h.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

func (h *handle) SeekTo(pos time.Duration) error {
	if h.isReleased() {
		return player.ErrReleased
	}
	n := h.format.SampleRate.N(pos)
	speaker.Lock()
	defer speaker.Unlock()
	n = min(max(n, 0), max(h.streamer.Len()-1, 0))
	if err := h.streamer.Seek(n); err != nil {
		return fmt.Errorf("seek: %v: %w", err, player.ErrBackendRuntime)
	}
	h.tap.Reset()
	return nil
}

func (h *handle) SetVolume(vol float64) error {
	h.mu.Lock()
	h.vol = vol
	h.mu.Unlock()
	h.applyVolume()
	return nil
}

func (h *handle) SetMute(muted bool) error {
	h.mu.Lock()
	h.muted = muted
	h.mu.Unlock()
	h.applyVolume()
	return nil
}

func (h *handle) applyVolume() {
	h.mu.Lock()
	vol, muted := h.vol, h.muted
	h.mu.Unlock()
	speaker.Lock()
	defer speaker.Unlock()
	h.volume.Silent = muted || vol <= 0
	if !h.volume.Silent {
		h.volume.Volume = math.Log2(min(vol, 1))
	}
}

func (h *handle) SetSpectrumListener(cb func([]float32)) {
	h.HandleCallbackImpl.SetSpectrumListener(cb)
	h.mu.Lock()
	defer h.mu.Unlock()
	if cb == nil || h.released {
		if h.stopSpectrum != nil {
			h.stopSpectrum()
			h.stopSpectrum = nil
		}
		return
	}
	if h.stopSpectrum == nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.stopSpectrum = cancel
		go h.spectrumLoop(ctx)
	}
}

func (h *handle) spectrumLoop(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()
	var lastCount uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			buf, count := h.tap.Snapshot()
			if count == lastCount {
				continue // paused or finished: nothing new to show
			}
			lastCount = count
			h.InvokeOnSpectrum(h.analyzer.Analyze(buf))
		}
	}
}

func (h *handle) finished() {
	if h.isReleased() {
		return
	}
	if err := h.streamer.Err(); err != nil {
		h.InvokeOnError(fmt.Errorf("decode: %v: %w", err, player.ErrBackendRuntime))
		return
	}
	h.InvokeOnEndOfMedia()
}

func (h *handle) Release() error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return nil
	}
	h.released = true
	if h.stopSpectrum != nil {
		h.stopSpectrum()
		h.stopSpectrum = nil
	}
	h.mu.Unlock()
	h.ClearCallbacks()

	speaker.Lock()
	h.ctrl.Streamer = nil
	speaker.Unlock()

	err := h.streamer.Close()
	if cerr := h.file.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		log.Printf("pcm: close %s: %v", h.file.Name(), cerr)
	}
	return err
}
