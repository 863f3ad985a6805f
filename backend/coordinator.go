package backend

import (
	"errors"
	"fmt"
	"log"

	"github.com/dweymouth/mediadeck/backend/media"
)

// The end-of-media policy (RepeatAll, RepeatOne, RepeatNone).
type RepeatMode int

const (
	RepeatAll RepeatMode = iota
	RepeatOne
	RepeatNone
)

func (r RepeatMode) String() string {
	switch r {
	case RepeatOne:
		return "One"
	case RepeatNone:
		return "None"
	default:
		return "All"
	}
}

// ParseRepeatMode parses the config/CLI representation of a RepeatMode.
// Unknown values yield RepeatAll.
func ParseRepeatMode(s string) RepeatMode {
	switch s {
	case "One", "one":
		return RepeatOne
	case "None", "none":
		return RepeatNone
	default:
		return RepeatAll
	}
}

const statusPlaylistEmpty = "Playlist empty"

// Coordinator ties the playlist to the playback engine: it resolves
// navigation requests to playlist entries, drops entries whose files
// have disappeared, and advances after end of media.
// Like the engine, it must only be used from the presentation goroutine.
type Coordinator struct {
	playlist *media.Playlist
	engine   *PlaybackEngine
	cb       Callbacks
	repeat   RepeatMode
}

func NewCoordinator(pl *media.Playlist, engine *PlaybackEngine, cb Callbacks, repeat RepeatMode) *Coordinator {
	if cb == nil {
		cb = BaseCallbacks{}
	}
	c := &Coordinator{playlist: pl, engine: engine, cb: cb, repeat: repeat}
	engine.OnEndOfMedia(c.handleEndOfMedia)
	engine.OnPlayIdle(func() { c.PlayCurrent() })
	return c
}

func (c *Coordinator) Playlist() *media.Playlist { return c.playlist }

func (c *Coordinator) Engine() *PlaybackEngine { return c.engine }

func (c *Coordinator) RepeatMode() RepeatMode { return c.repeat }

func (c *Coordinator) SetRepeatMode(mode RepeatMode) {
	c.repeat = mode
	c.cb.OnStatus("Repeat: " + mode.String())
}

func (c *Coordinator) AddFiles(paths []string) media.AddResult {
	res := c.playlist.Add(paths)
	if res.Added > 0 {
		c.cb.OnStatus(fmt.Sprintf("Added %d file(s)", res.Added))
	}
	if res.Skipped > 0 {
		c.cb.OnStatus(fmt.Sprintf("Skipped %d unsupported or missing file(s)", res.Skipped))
	}
	if res.Added > 0 {
		c.notifyPlaylistChanged()
	}
	if res.Selected {
		item, _ := c.playlist.Current()
		c.engine.Load(item)
	}
	return res
}

func (c *Coordinator) RemoveAt(index int) error {
	removedCurrent, err := c.playlist.RemoveAt(index)
	if err != nil {
		c.cb.OnStatus(fmt.Sprintf("Invalid playlist index %d", index))
		return err
	}
	if removedCurrent {
		c.engine.Cleanup()
	}
	c.notifyPlaylistChanged()
	return nil
}

func (c *Coordinator) ClearPlaylist() {
	c.playlist.Clear()
	c.engine.Cleanup()
	c.notifyPlaylistChanged()
}

// PlaySelected loads and plays the entry at index.
// An entry whose file has vanished is removed instead.
func (c *Coordinator) PlaySelected(index int) error {
	item, err := c.playlist.At(index)
	if err != nil {
		c.cb.OnStatus(fmt.Sprintf("Invalid playlist index %d", index))
		return err
	}
	if !item.Exists() {
		c.cb.OnStatus("File not found: " + item.Name())
		c.RemoveAt(index)
		return fmt.Errorf("%s: %w", item.Name(), media.ErrNotFound)
	}
	c.playlist.Select(index)
	c.engine.LoadAndPlay(item)
	return nil
}

func (c *Coordinator) PlayNext() error {
	return c.playAdjacent(c.playlist.NextIndex)
}

func (c *Coordinator) PlayPrevious() error {
	return c.playAdjacent(c.playlist.PreviousIndex)
}

// playAdjacent plays the candidate chosen by peek, removing candidates
// whose files no longer exist. Gives up after as many removals as the
// playlist had entries.
func (c *Coordinator) playAdjacent(peek func() (int, error)) error {
	removed := 0
	for budget := c.playlist.Len(); budget >= 0; budget-- {
		idx, err := peek()
		if err != nil {
			break
		}
		item, _ := c.playlist.At(idx)
		if item.Exists() {
			if removed > 0 {
				c.notifyPlaylistChanged()
			}
			c.playlist.Select(idx)
			c.engine.LoadAndPlay(item)
			return nil
		}
		log.Printf("skipping missing file %s", item.Path)
		if removedCurrent, _ := c.playlist.RemoveAt(idx); removedCurrent {
			c.engine.Cleanup()
		}
		removed++
	}
	if removed > 0 {
		c.notifyPlaylistChanged()
	}
	c.cb.OnStatus(statusPlaylistEmpty)
	return media.ErrPlaylistEmpty
}

// PlayCurrent plays the entry at the cursor, or the next playable
// entry if there is no cursor or its file has vanished.
func (c *Coordinator) PlayCurrent() error {
	if c.playlist.Len() == 0 {
		c.cb.OnStatus(statusPlaylistEmpty)
		return media.ErrPlaylistEmpty
	}
	item, ok := c.playlist.Current()
	if !ok {
		return c.PlayNext()
	}
	if !item.Exists() {
		idx := c.playlist.CurrentIndex()
		c.cb.OnStatus("File not found: " + item.Name())
		c.playlist.RemoveAt(idx)
		c.engine.Cleanup()
		c.notifyPlaylistChanged()
		if n := c.playlist.Len(); n > 0 {
			// continue with the entry that moved into the removed one's place
			c.playlist.Select((idx - 1 + n) % n)
		}
		return c.PlayNext()
	}
	c.engine.LoadAndPlay(item)
	return nil
}

// SetVolume sets the volume in [0, 100].
// Raising the volume above zero while muted unmutes.
func (c *Coordinator) SetVolume(vol int) {
	if vol > 0 && c.engine.Muted() {
		c.engine.SetMute(false)
	}
	c.engine.SetVolume(vol)
}

func (c *Coordinator) SetMute(muted bool) {
	c.engine.SetMute(muted)
	c.muteStatus()
}

func (c *Coordinator) ToggleMute() {
	c.engine.ToggleMute()
	c.muteStatus()
}

func (c *Coordinator) muteStatus() {
	if c.engine.Muted() {
		c.cb.OnStatus("Muted")
	} else {
		c.cb.OnStatus("Unmuted")
	}
}

// PruneMissing removes every entry, other than the current one,
// whose file no longer exists. Returns the number of entries removed.
func (c *Coordinator) PruneMissing() int {
	n := 0
	for i := c.playlist.Len() - 1; i >= 0; i-- {
		if i == c.playlist.CurrentIndex() {
			continue
		}
		if item, _ := c.playlist.At(i); !item.Exists() {
			c.playlist.RemoveAt(i)
			n++
		}
	}
	if n > 0 {
		c.cb.OnStatus(fmt.Sprintf("Removed %d missing file(s)", n))
		c.notifyPlaylistChanged()
	}
	return n
}

func (c *Coordinator) handleEndOfMedia() {
	var err error
	switch c.repeat {
	case RepeatOne:
		err = c.PlayCurrent()
	case RepeatNone:
		if c.playlist.CurrentIndex() == c.playlist.Len()-1 {
			return
		}
		err = c.PlayNext()
	default:
		err = c.PlayNext()
	}
	if err != nil && !errors.Is(err, media.ErrPlaylistEmpty) {
		log.Printf("failed to advance playlist: %v", err)
	}
}

func (c *Coordinator) notifyPlaylistChanged() {
	c.cb.OnPlaylistChanged(c.playlist.Names())
}
