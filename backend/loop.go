package backend

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// PlayerStatus is a point-in-time snapshot of the playback stack,
// safe to read from any goroutine.
type PlayerStatus struct {
	State         string        `json:"state"`
	SessionID     string        `json:"sessionId"`
	NowPlaying    string        `json:"nowPlaying"`
	Path          string        `json:"path"`
	Index         int           `json:"index"`
	Playlist      []string      `json:"playlist"`
	Paths         []string      `json:"paths"`
	Position      time.Duration `json:"position"`
	Duration      time.Duration `json:"duration"`
	DurationKnown bool          `json:"durationKnown"`
	Volume        int           `json:"volume"`
	Muted         bool          `json:"muted"`
	RepeatMode    string        `json:"repeatMode"`
	Visualization bool          `json:"visualization"`
}

// Loop is the presentation goroutine: the only goroutine that touches
// the coordinator, playlist and engine. It executes queued commands and
// events posted by background goroutines, one at a time.
type Loop struct {
	coordinator *Coordinator
	engine      *PlaybackEngine
	events      *EventQueue
	commands    *CommandQueue

	status atomic.Pointer[PlayerStatus]

	// invoked on the loop goroutine after each command or event
	onUpdate []func(PlayerStatus)
}

func NewLoop(c *Coordinator, events *EventQueue, commands *CommandQueue) *Loop {
	l := &Loop{
		coordinator: c,
		engine:      c.Engine(),
		events:      events,
		commands:    commands,
	}
	l.publish()
	return l
}

// Status returns the most recently published snapshot.
func (l *Loop) Status() PlayerStatus {
	return *l.status.Load()
}

// OnUpdate registers a callback invoked on the loop goroutine
// whenever a new status snapshot has been published.
// Must be called before Run.
func (l *Loop) OnUpdate(cb func(PlayerStatus)) {
	l.onUpdate = append(l.onUpdate, cb)
}

// Run processes commands and events until ctx is done,
// then releases all media.
func (l *Loop) Run(ctx context.Context) {
	defer l.engine.Shutdown()
	for {
		select {
		case <-ctx.Done():
			l.commands.Close()
			return
		case ev := <-l.events.C():
			l.engine.HandleEvent(ev)
			l.update()
		case cmd := <-l.commands.C():
			err := l.execute(cmd)
			// publish first so the caller observes the command's effect
			l.update()
			cmd.Done(err)
		}
	}
}

func (l *Loop) update() {
	l.publish()
	st := l.Status()
	for _, cb := range l.onUpdate {
		cb(st)
	}
}

func (l *Loop) execute(cmd PlaybackCommand) error {
	c, e := l.coordinator, l.engine
	switch cmd.Type {
	case cmdAddFiles:
		res := c.AddFiles(cmd.Arg.([]string))
		if res.Added == 0 && res.Skipped > 0 {
			return fmt.Errorf("no playable files among %d path(s)", res.Skipped)
		}
	case cmdRemoveAt:
		return c.RemoveAt(cmd.Arg.(int))
	case cmdClearPlaylist:
		c.ClearPlaylist()
	case cmdPlaySelected:
		return c.PlaySelected(cmd.Arg.(int))
	case cmdPlayNext:
		return c.PlayNext()
	case cmdPlayPrevious:
		return c.PlayPrevious()
	case cmdPlay:
		e.Play()
	case cmdPause:
		e.Pause()
	case cmdTogglePlayPause:
		e.TogglePlayPause()
	case cmdStop:
		e.Stop()
	case cmdSeek:
		e.Seek(cmd.Arg.(float64))
	case cmdSetVolume:
		c.SetVolume(cmd.Arg.(int))
	case cmdSetMute:
		c.SetMute(cmd.Arg.(bool))
	case cmdToggleMute:
		c.ToggleMute()
	case cmdSetDragging:
		e.SetDragging(cmd.Arg.(bool))
	case cmdSetVisualization:
		e.SetVisualization(cmd.Arg.(bool))
	case cmdToggleVisualization:
		e.ToggleVisualization()
	case cmdSetRepeatMode:
		c.SetRepeatMode(cmd.Arg.(RepeatMode))
	case cmdPruneMissing:
		c.PruneMissing()
	}
	return nil
}

func (l *Loop) publish() {
	e, pl := l.engine, l.coordinator.Playlist()
	st := &PlayerStatus{
		State:         e.State().String(),
		Index:         pl.CurrentIndex(),
		Playlist:      pl.Names(),
		Paths:         pl.Paths(),
		Volume:        e.Volume(),
		Muted:         e.Muted(),
		RepeatMode:    l.coordinator.RepeatMode().String(),
		Visualization: e.Visualization(),
	}
	if s, ok := e.Session(); ok {
		st.SessionID = s.ID
		st.NowPlaying = s.Item.Name()
		st.Path = s.Item.Path
		st.Position = s.Position
		st.Duration = s.Duration
		st.DurationKnown = s.DurationKnown
	}
	l.status.Store(st)
}
