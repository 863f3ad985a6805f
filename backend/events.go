package backend

import (
	"context"

	"github.com/dweymouth/mediadeck/backend/media"
	"github.com/dweymouth/mediadeck/backend/player"
)

// Event is a notification posted to the presentation goroutine by a
// background goroutine (load worker, position poller, or backend handle).
// Every event carries the generation of the session it concerns, so
// events about a superseded session can be recognized and dropped.
type Event interface {
	Gen() uint64
}

// Result of opening a media item on a background goroutine.
type LoadResultEvent struct {
	Generation uint64
	Item       media.Item
	Handle     player.Handle // nil iff Err != nil
	Err        error
}

// Posted periodically while playing.
// The receiver queries the handle for the current position.
type PositionUpdateEvent struct {
	Generation uint64
}

type EndOfMediaEvent struct {
	Generation uint64
}

type PlaybackErrorEvent struct {
	Generation uint64
	Err        error
}

type SpectrumEvent struct {
	Generation uint64
	Magnitudes []float32
}

func (e LoadResultEvent) Gen() uint64     { return e.Generation }
func (e PositionUpdateEvent) Gen() uint64 { return e.Generation }
func (e EndOfMediaEvent) Gen() uint64     { return e.Generation }
func (e PlaybackErrorEvent) Gen() uint64  { return e.Generation }
func (e SpectrumEvent) Gen() uint64       { return e.Generation }

// droppable events are superseded by the next one of the same kind,
// so they are dropped rather than block the poster when the queue is full.
func droppable(e Event) bool {
	switch e.(type) {
	case PositionUpdateEvent, SpectrumEvent:
		return true
	}
	return false
}

const defaultEventQueueSize = 64

// EventQueue delivers events from any goroutine to the presentation goroutine.
type EventQueue struct {
	ch chan Event
}

func NewEventQueue(size int) *EventQueue {
	if size <= 0 {
		size = defaultEventQueueSize
	}
	return &EventQueue{ch: make(chan Event, size)}
}

// Post enqueues e, blocking until there is room or ctx is done.
// Position and spectrum events are dropped instead of blocking.
// Returns whether the event was enqueued.
func (q *EventQueue) Post(ctx context.Context, e Event) bool {
	if droppable(e) {
		select {
		case q.ch <- e:
			return true
		default:
			return false
		}
	}
	select {
	case q.ch <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

func (q *EventQueue) C() <-chan Event {
	return q.ch
}
