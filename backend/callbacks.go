package backend

import "time"

// Callbacks is the surface through which the playback stack reports
// to the UI. All methods are invoked on the presentation goroutine
// and must not block.
type Callbacks interface {
	OnStatus(text string)
	OnNowPlaying(name string)
	// Total is zero when the duration is not known.
	OnTimeUpdate(current, total time.Duration)
	OnPlaylistChanged(names []string)
	OnReady(name string, duration time.Duration)
	OnError(message string)
	// Magnitudes in dB, one per band.
	OnSpectrum(magnitudes []float32)
	OnStateChange(state State)
	// Volume in range [0, 100].
	OnVolumeChange(volume int, muted bool)
}

// BaseCallbacks implements Callbacks with no-ops.
// Embed it to implement only the callbacks of interest.
type BaseCallbacks struct{}

var _ Callbacks = BaseCallbacks{}

func (BaseCallbacks) OnStatus(string) {}
func (BaseCallbacks) OnNowPlaying(string) {}
func (BaseCallbacks) OnTimeUpdate(time.Duration, time.Duration) {}
func (BaseCallbacks) OnPlaylistChanged([]string) {}
func (BaseCallbacks) OnReady(string, time.Duration) {}
func (BaseCallbacks) OnError(string) {}
func (BaseCallbacks) OnSpectrum([]float32) {}
func (BaseCallbacks) OnStateChange(State) {}
func (BaseCallbacks) OnVolumeChange(int, bool) {}

// CallbackSet fans out every callback to each of its members, in order.
type CallbackSet []Callbacks

var _ Callbacks = CallbackSet(nil)

func (c CallbackSet) OnStatus(text string) {
	for _, cb := range c {
		cb.OnStatus(text)
	}
}

func (c CallbackSet) OnNowPlaying(name string) {
	for _, cb := range c {
		cb.OnNowPlaying(name)
	}
}

func (c CallbackSet) OnTimeUpdate(current, total time.Duration) {
	for _, cb := range c {
		cb.OnTimeUpdate(current, total)
	}
}

func (c CallbackSet) OnPlaylistChanged(names []string) {
	for _, cb := range c {
		cb.OnPlaylistChanged(names)
	}
}

func (c CallbackSet) OnReady(name string, duration time.Duration) {
	for _, cb := range c {
		cb.OnReady(name, duration)
	}
}

func (c CallbackSet) OnError(message string) {
	for _, cb := range c {
		cb.OnError(message)
	}
}

func (c CallbackSet) OnSpectrum(magnitudes []float32) {
	for _, cb := range c {
		cb.OnSpectrum(magnitudes)
	}
}

func (c CallbackSet) OnStateChange(state State) {
	for _, cb := range c {
		cb.OnStateChange(state)
	}
}

func (c CallbackSet) OnVolumeChange(volume int, muted bool) {
	for _, cb := range c {
		cb.OnVolumeChange(volume, muted)
	}
}
