package backend

import (
	"log"
	"strings"
	"time"
)

// LogCallbacks logs user-visible events. Used when running headless.
type LogCallbacks struct {
	BaseCallbacks
}

var _ Callbacks = LogCallbacks{}

func (LogCallbacks) OnStatus(text string) {
	log.Printf("status: %s", text)
}

func (LogCallbacks) OnNowPlaying(name string) {
	log.Printf("now playing: %s", name)
}

func (LogCallbacks) OnPlaylistChanged(names []string) {
	log.Printf("playlist (%d): %s", len(names), strings.Join(names, ", "))
}

func (LogCallbacks) OnReady(name string, duration time.Duration) {
	log.Printf("ready: %s (%v)", name, duration)
}

func (LogCallbacks) OnError(message string) {
	log.Printf("error: %s", message)
}

func (LogCallbacks) OnStateChange(state State) {
	log.Printf("state: %s", state)
}
