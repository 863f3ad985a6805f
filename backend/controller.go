package backend

import (
	"context"
	"fmt"

	"github.com/dweymouth/mediadeck/backend/ipc"
)

var _ ipc.PlaybackHandler = (*Controller)(nil)

// Controller is the command surface of the player. It is safe for
// concurrent use from any goroutine except the presentation goroutine
// itself (i.e. not from within Callbacks): each method queues a command
// and waits for its result.
type Controller struct {
	ctx      context.Context
	commands *CommandQueue
	loop     *Loop
}

func NewController(ctx context.Context, commands *CommandQueue, loop *Loop) *Controller {
	return &Controller{ctx: ctx, commands: commands, loop: loop}
}

func (c *Controller) wait(reply <-chan error) error {
	select {
	case err := <-reply:
		return err
	case <-c.ctx.Done():
		return ErrCommandQueueClosed
	}
}

func (c *Controller) AddFiles(paths []string) error {
	return c.wait(c.commands.AddFiles(paths))
}

func (c *Controller) RemoveAt(idx int) error {
	return c.wait(c.commands.RemoveAt(idx))
}

func (c *Controller) ClearPlaylist() error {
	return c.wait(c.commands.ClearPlaylist())
}

func (c *Controller) PlaySelected(idx int) error {
	return c.wait(c.commands.PlaySelected(idx))
}

func (c *Controller) PruneMissing() error {
	return c.wait(c.commands.PruneMissing())
}

func (c *Controller) PlayNext() error {
	return c.wait(c.commands.PlayNext())
}

func (c *Controller) PlayPrevious() error {
	return c.wait(c.commands.PlayPrevious())
}

func (c *Controller) Play() error {
	return c.wait(c.commands.Play())
}

func (c *Controller) Pause() error {
	return c.wait(c.commands.Pause())
}

func (c *Controller) TogglePlayPause() error {
	return c.wait(c.commands.TogglePlayPause())
}

func (c *Controller) Stop() error {
	return c.wait(c.commands.Stop())
}

// Seek to fraction [0, 1] of the current media.
func (c *Controller) Seek(fraction float64) error {
	return c.wait(c.commands.Seek(fraction))
}

func (c *Controller) SetDragging(dragging bool) error {
	return c.wait(c.commands.SetDragging(dragging))
}

// SetVolume sets the volume in range [0, 100].
func (c *Controller) SetVolume(vol int) error {
	return c.wait(c.commands.SetVolume(vol))
}

func (c *Controller) SetMute(muted bool) error {
	return c.wait(c.commands.SetMute(muted))
}

func (c *Controller) ToggleMute() error {
	return c.wait(c.commands.ToggleMute())
}

func (c *Controller) SetVisualization(on bool) error {
	return c.wait(c.commands.SetVisualization(on))
}

func (c *Controller) ToggleVisualization() error {
	return c.wait(c.commands.ToggleVisualization())
}

// SetRepeatMode accepts "None", "All" or "One".
func (c *Controller) SetRepeatMode(mode string) error {
	switch mode {
	case "None", "All", "One", "none", "all", "one":
	default:
		return fmt.Errorf("invalid repeat mode %q", mode)
	}
	return c.wait(c.commands.SetRepeatMode(ParseRepeatMode(mode)))
}

// Status returns the latest published PlayerStatus.
func (c *Controller) Status() any {
	return c.loop.Status()
}

func (c *Controller) PlayerStatus() PlayerStatus {
	return c.loop.Status()
}
