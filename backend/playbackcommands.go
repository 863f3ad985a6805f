package backend

import (
	"errors"
	"slices"
	"sync"
)

var ErrCommandQueueClosed = errors.New("command queue closed")

type playbackCommandType int

const (
	cmdAddFiles playbackCommandType = iota // arg: []string
	cmdRemoveAt                            // arg: int
	cmdClearPlaylist
	cmdPlaySelected // arg: int
	cmdPlayNext
	cmdPlayPrevious
	cmdPlay
	cmdPause
	cmdTogglePlayPause
	cmdStop
	cmdSeek        // arg: float64
	cmdSetVolume   // arg: int
	cmdSetMute     // arg: bool
	cmdToggleMute
	cmdSetDragging      // arg: bool
	cmdSetVisualization // arg: bool
	cmdToggleVisualization
	cmdSetRepeatMode // arg: RepeatMode
	cmdPruneMissing
)

var transportCommands = []playbackCommandType{cmdPlay, cmdPause, cmdTogglePlayPause, cmdStop}

type PlaybackCommand struct {
	Type playbackCommandType
	Arg  any

	// Receives the result of the command. Buffered, so it is
	// never blocked on if the sender does not wait for the result.
	reply chan error
}

func newCommand(t playbackCommandType, arg any) PlaybackCommand {
	return PlaybackCommand{Type: t, Arg: arg, reply: make(chan error, 1)}
}

// Done delivers the result of executing the command.
func (p PlaybackCommand) Done(err error) {
	if p.reply != nil {
		p.reply <- err
	}
}

// CommandQueue queues playback commands from any goroutine for
// execution on the presentation goroutine. Commands superseded by a
// later one (e.g. an earlier volume change) are dropped from the queue
// and reported as done with a nil error.
type CommandQueue struct {
	mutex        sync.Mutex
	queue        []PlaybackCommand
	cmdAvailable *sync.Cond
	nextChan     chan (PlaybackCommand)
	closed       bool
	done         chan struct{}
}

func NewCommandQueue() *CommandQueue {
	c := &CommandQueue{
		nextChan: make(chan PlaybackCommand),
		done:     make(chan struct{}),
	}
	c.cmdAvailable = sync.NewCond(&c.mutex)
	go c.chanWriter()
	return c
}

func (c *CommandQueue) C() <-chan PlaybackCommand {
	return c.nextChan
}

// Close fails all pending commands with ErrCommandQueueClosed.
// Commands added after Close fail immediately.
func (c *CommandQueue) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	c.cmdAvailable.Broadcast()
}

func (c *CommandQueue) AddFiles(paths []string) <-chan error {
	return c.add(newCommand(cmdAddFiles, paths))
}

func (c *CommandQueue) RemoveAt(idx int) <-chan error {
	return c.add(newCommand(cmdRemoveAt, idx))
}

func (c *CommandQueue) ClearPlaylist() <-chan error {
	// a clear makes any queued navigation moot
	return c.filterCommandsAndAdd(
		append([]playbackCommandType{cmdPlaySelected, cmdPlayNext, cmdPlayPrevious, cmdSeek}, transportCommands...),
		newCommand(cmdClearPlaylist, nil))
}

func (c *CommandQueue) PlaySelected(idx int) <-chan error {
	return c.add(newCommand(cmdPlaySelected, idx))
}

func (c *CommandQueue) PlayNext() <-chan error {
	return c.add(newCommand(cmdPlayNext, nil))
}

func (c *CommandQueue) PlayPrevious() <-chan error {
	return c.add(newCommand(cmdPlayPrevious, nil))
}

func (c *CommandQueue) Play() <-chan error {
	return c.filterCommandsAndAdd(transportCommands, newCommand(cmdPlay, nil))
}

func (c *CommandQueue) Pause() <-chan error {
	return c.filterCommandsAndAdd(transportCommands, newCommand(cmdPause, nil))
}

func (c *CommandQueue) Stop() <-chan error {
	return c.filterCommandsAndAdd(transportCommands, newCommand(cmdStop, nil))
}

// Toggles must not coalesce with each other: two toggles cancel out.
func (c *CommandQueue) TogglePlayPause() <-chan error {
	return c.add(newCommand(cmdTogglePlayPause, nil))
}

func (c *CommandQueue) Seek(fraction float64) <-chan error {
	return c.filterCommandsAndAdd([]playbackCommandType{cmdSeek},
		newCommand(cmdSeek, fraction))
}

func (c *CommandQueue) SetVolume(vol int) <-chan error {
	return c.filterCommandsAndAdd([]playbackCommandType{cmdSetVolume},
		newCommand(cmdSetVolume, vol))
}

func (c *CommandQueue) SetMute(muted bool) <-chan error {
	return c.filterCommandsAndAdd([]playbackCommandType{cmdSetMute, cmdToggleMute},
		newCommand(cmdSetMute, muted))
}

func (c *CommandQueue) ToggleMute() <-chan error {
	return c.add(newCommand(cmdToggleMute, nil))
}

func (c *CommandQueue) SetDragging(dragging bool) <-chan error {
	return c.add(newCommand(cmdSetDragging, dragging))
}

func (c *CommandQueue) SetVisualization(on bool) <-chan error {
	return c.filterCommandsAndAdd([]playbackCommandType{cmdSetVisualization, cmdToggleVisualization},
		newCommand(cmdSetVisualization, on))
}

func (c *CommandQueue) ToggleVisualization() <-chan error {
	return c.add(newCommand(cmdToggleVisualization, nil))
}

func (c *CommandQueue) SetRepeatMode(mode RepeatMode) <-chan error {
	return c.filterCommandsAndAdd([]playbackCommandType{cmdSetRepeatMode},
		newCommand(cmdSetRepeatMode, mode))
}

func (c *CommandQueue) PruneMissing() <-chan error {
	return c.filterCommandsAndAdd([]playbackCommandType{cmdPruneMissing},
		newCommand(cmdPruneMissing, nil))
}

func (c *CommandQueue) add(command PlaybackCommand) <-chan error {
	return c.filterCommandsAndAdd(nil, command)
}

func (c *CommandQueue) filterCommandsAndAdd(excludeTypes []playbackCommandType, command PlaybackCommand) <-chan error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		command.Done(ErrCommandQueueClosed)
		return command.reply
	}

	j := 0
	for _, cmd := range c.queue {
		if slices.Contains(excludeTypes, cmd.Type) {
			cmd.Done(nil)
			continue
		}
		c.queue[j] = cmd
		j++
	}
	c.queue = c.queue[:j]
	c.queue = append(c.queue, command)
	c.cmdAvailable.Signal()
	return command.reply
}

// Len returns the number of commands waiting to be picked up.
func (c *CommandQueue) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.queue)
}

func (c *CommandQueue) chanWriter() {
	for {
		c.mutex.Lock()
		for len(c.queue) == 0 && !c.closed {
			c.cmdAvailable.Wait()
		}
		if c.closed {
			for _, cmd := range c.queue {
				cmd.Done(ErrCommandQueueClosed)
			}
			c.queue = nil
			c.mutex.Unlock()
			return
		}
		cmd := c.queue[0]
		copy(c.queue, c.queue[1:])
		c.queue = c.queue[:len(c.queue)-1]
		c.mutex.Unlock()

		select {
		case c.nextChan <- cmd:
		case <-c.done:
			cmd.Done(ErrCommandQueueClosed)
		}
	}
}
