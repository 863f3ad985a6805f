package mpv

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dweymouth/mediadeck/backend/media"
	"github.com/dweymouth/mediadeck/backend/player"
	"github.com/supersonic-app/go-mpv"
)

// Error returned by handle functions if called after the handle has been released.
var ErrUnitialized = fmt.Errorf("mpv player uninitialized: %w", player.ErrReleased)

const eventTimeoutSecs = 0.25

type Options struct {
	// Limit of mpv's in-memory demuxer cache.
	MaxCacheMB int

	// Audio device to output to. Empty means mpv's default.
	AudioDevice string

	// The application name that mpv reports to the system audio API.
	ClientName string
}

var (
	_ player.Backend = (*Backend)(nil)
	_ player.Handle  = (*handle)(nil)
)

// Backend opens media with libmpv. Every handle owns a separate mpv
// instance, so releasing a handle tears down all of its output.
type Backend struct {
	opts Options
}

func New(opts Options) *Backend {
	if opts.MaxCacheMB <= 0 {
		opts.MaxCacheMB = 30
	}
	return &Backend{opts: opts}
}

func (b *Backend) newMpv(item media.Item) (*mpv.Mpv, error) {
	m := mpv.Create()

	m.SetOptionString("idle", "yes")
	m.SetOptionString("pause", "yes")
	m.SetOptionString("force-seekable", "yes")
	m.SetOptionString("terminal", "no")
	m.SetOptionString("keep-open", "no")
	if item.IsVideo() {
		m.SetOptionString("force-window", "yes")
		m.SetOptionString("title", item.Name())
	} else {
		m.SetOptionString("video", "no")
		m.SetOptionString("audio-display", "no")
	}

	// limit in-memory cache size
	maxBackMB := b.opts.MaxCacheMB / 3
	maxForwardMB := maxBackMB + maxBackMB
	m.SetOptionString("demuxer-max-bytes", fmt.Sprintf("%dMiB", maxForwardMB))
	m.SetOptionString("demuxer-max-back-bytes", fmt.Sprintf("%dMiB", maxBackMB))

	m.SetOption("volume", mpv.FORMAT_INT64, int64(100))
	if b.opts.ClientName != "" {
		m.SetOptionString("audio-client-name", b.opts.ClientName)
	}
	if b.opts.AudioDevice != "" {
		m.SetOptionString("audio-device", b.opts.AudioDevice)
	}

	if err := m.Initialize(); err != nil {
		m.TerminateDestroy()
		return nil, fmt.Errorf("error initializing mpv: %s", err.Error())
	}
	return m, nil
}

// Open loads item into a new mpv instance and waits until mpv has
// either loaded the file or given up on it.
func (b *Backend) Open(ctx context.Context, item media.Item) (player.Handle, error) {
	m, err := b.newMpv(item)
	if err != nil {
		return nil, err
	}
	if err := m.Command([]string{"loadfile", item.Path, "replace"}); err != nil {
		m.TerminateDestroy()
		return nil, fmt.Errorf("%s: %v: %w", item.Name(), err, player.ErrUnsupportedOrCorrupt)
	}

	for loaded := false; !loaded; {
		if err := ctx.Err(); err != nil {
			m.TerminateDestroy()
			return nil, err
		}
		switch m.WaitEvent(eventTimeoutSecs).Event_Id {
		case mpv.EVENT_FILE_LOADED:
			loaded = true
		case mpv.EVENT_END_FILE, mpv.EVENT_SHUTDOWN:
			m.TerminateDestroy()
			return nil, fmt.Errorf("%s: %w", item.Name(), player.ErrUnsupportedOrCorrupt)
		}
	}

	h := &handle{mpv: m, item: item, done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	h.bgCancel = cancel
	go h.eventHandler(ctx)
	return h, nil
}

func (b *Backend) Destroy() {}

type handle struct {
	player.HandleCallbackImpl

	mpv  *mpv.Mpv
	item media.Item

	mu       sync.Mutex
	released bool
	bgCancel context.CancelFunc
	done     chan struct{}
}

func (h *handle) getDouble(prop string) (float64, bool) {
	v, err := h.mpv.GetProperty(prop, mpv.FORMAT_DOUBLE)
	if err != nil || v == nil {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func (h *handle) Duration() (time.Duration, bool) {
	if h.isReleased() {
		return 0, false
	}
	secs, ok := h.getDouble("duration")
	if !ok || secs <= 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

func (h *handle) Position() time.Duration {
	if h.isReleased() {
		return 0
	}
	secs, _ := h.getDouble("playback-time")
	return time.Duration(secs * float64(time.Second))
}

func (h *handle) isReleased() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

func (h *handle) do(f func() error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ErrUnitialized
	}
	if err := f(); err != nil {
		return fmt.Errorf("mpv: %v: %w", err, player.ErrBackendRuntime)
	}
	return nil
}

func (h *handle) Play() error {
	return h.do(func() error {
		return h.mpv.SetProperty("pause", mpv.FORMAT_FLAG, false)
	})
}

func (h *handle) Pause() error {
	return h.do(func() error {
		return h.mpv.SetProperty("pause", mpv.FORMAT_FLAG, true)
	})
}

// Seeks within the current media.
// See MPV seek command documentation for more details.
func (h *handle) SeekTo(pos time.Duration) error {
	target := fmt.Sprintf("%0.1f", pos.Seconds())
	return h.do(func() error {
		return h.mpv.Command([]string{"seek", target, "absolute"})
	})
}

func (h *handle) SetVolume(vol float64) error {
	v := int64(min(max(vol, 0), 1) * 100)
	return h.do(func() error {
		return h.mpv.SetProperty("volume", mpv.FORMAT_INT64, v)
	})
}

func (h *handle) SetMute(muted bool) error {
	val := "no"
	if muted {
		val = "yes"
	}
	return h.do(func() error {
		return h.mpv.SetPropertyString("mute", val)
	})
}

// Release stops playback and destroys the mpv instance.
func (h *handle) Release() error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return nil
	}
	h.released = true
	h.mu.Unlock()

	h.ClearCallbacks()
	h.bgCancel()
	<-h.done
	h.mpv.Command([]string{"stop"})
	h.mpv.TerminateDestroy()
	return nil
}

func (h *handle) eventHandler(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
			e := h.mpv.WaitEvent(eventTimeoutSecs)
			switch e.Event_Id {
			case mpv.EVENT_END_FILE:
				if h.isReleased() {
					return
				}
				h.InvokeOnEndOfMedia()
			case mpv.EVENT_SHUTDOWN:
				// e.g. the user closed the video window
				if !h.isReleased() {
					log.Printf("mpv shut down while playing %s", h.item.Name())
					h.InvokeOnError(fmt.Errorf("mpv shut down: %w", player.ErrBackendRuntime))
				}
				return
			}
		}
	}
}
