// Package console is an interactive terminal front end for the player.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/dweymouth/mediadeck/backend"
	"github.com/dweymouth/mediadeck/backend/media"
	"github.com/dweymouth/mediadeck/sharedutil"
)

const defaultPrompt = "> "

// Commands is the command surface the console drives.
// Implemented by *backend.Controller.
type Commands interface {
	AddFiles([]string) error
	RemoveAt(int) error
	ClearPlaylist() error
	PlaySelected(int) error
	PruneMissing() error
	Play() error
	Pause() error
	TogglePlayPause() error
	Stop() error
	PlayNext() error
	PlayPrevious() error
	Seek(float64) error
	SetVolume(int) error
	SetMute(bool) error
	ToggleMute() error
	ToggleVisualization() error
	SetRepeatMode(string) error
	PlayerStatus() backend.PlayerStatus
}

var _ Commands = (*backend.Controller)(nil)

var errQuit = errors.New("quit")

type command struct {
	usage string
	help  string
	run   func(c *Console, args []string) error
}

var commands map[string]command

var aliases = map[string]string{
	"a": "add", "rm": "remove", "n": "next", "prev": "previous",
	"p": "toggle", "st": "status", "ls": "list", "q": "quit", "exit": "quit",
}

func init() {
	commands = map[string]command{
		"add": {"add <file>...", "add files to the playlist", func(c *Console, args []string) error {
			if len(args) == 0 {
				return errors.New("no files given")
			}
			return c.cmds.AddFiles(expandPaths(args))
		}},
		"remove": {"remove <n>", "remove playlist entry n", withIndex(Commands.RemoveAt)},
		"select": {"select <n>", "play playlist entry n", withIndex(Commands.PlaySelected)},
		"clear":  {"clear", "clear the playlist", noArgs(Commands.ClearPlaylist)},
		"prune":  {"prune", "remove entries whose files are gone", noArgs(Commands.PruneMissing)},
		"play": {"play [n]", "start playback, or play entry n", func(c *Console, args []string) error {
			if len(args) > 0 {
				return withIndex(Commands.PlaySelected)(c, args)
			}
			return c.cmds.Play()
		}},
		"pause":    {"pause", "pause playback", noArgs(Commands.Pause)},
		"toggle":   {"toggle", "toggle play/pause", noArgs(Commands.TogglePlayPause)},
		"stop":     {"stop", "stop playback", noArgs(Commands.Stop)},
		"next":     {"next", "play the next entry", noArgs(Commands.PlayNext)},
		"previous": {"previous", "play the previous entry", noArgs(Commands.PlayPrevious)},
		"seek": {"seek <0-1 | m:ss>", "seek to a fraction or a time", func(c *Console, args []string) error {
			if len(args) != 1 {
				return errors.New("usage: seek <0-1 | m:ss>")
			}
			f, err := c.parseSeek(args[0])
			if err != nil {
				return err
			}
			return c.cmds.Seek(f)
		}},
		"volume": {"volume <0-100>", "set the volume", func(c *Console, args []string) error {
			if len(args) != 1 {
				st := c.cmds.PlayerStatus()
				c.printf("volume %d%s\n", st.Volume, mutedSuffix(st.Muted))
				return nil
			}
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 0 || v > 100 {
				return fmt.Errorf("invalid volume %q", args[0])
			}
			return c.cmds.SetVolume(v)
		}},
		"mute":   {"mute", "mute", func(c *Console, _ []string) error { return c.cmds.SetMute(true) }},
		"unmute": {"unmute", "unmute", func(c *Console, _ []string) error { return c.cmds.SetMute(false) }},
		"vis":    {"vis", "toggle the spectrum visualization", noArgs(Commands.ToggleVisualization)},
		"repeat": {"repeat <all|one|none>", "set the repeat mode", func(c *Console, args []string) error {
			if len(args) != 1 {
				return errors.New("usage: repeat <all|one|none>")
			}
			return c.cmds.SetRepeatMode(strings.ToLower(args[0]))
		}},
		"find": {"find <words>", "search the playlist by name", func(c *Console, args []string) error {
			q := strings.Join(args, " ")
			st := c.cmds.PlayerStatus()
			matches := sharedutil.FilterSlice(indexes(len(st.Playlist)), func(i int) bool {
				return media.NameMatches(st.Playlist[i], q)
			})
			if len(matches) == 0 {
				c.printf("no matches\n")
			}
			for _, i := range matches {
				c.printEntry(st, i)
			}
			return nil
		}},
		"list": {"list", "show the playlist", func(c *Console, _ []string) error {
			st := c.cmds.PlayerStatus()
			if len(st.Playlist) == 0 {
				c.printf("playlist empty\n")
			}
			for i := range st.Playlist {
				c.printEntry(st, i)
			}
			return nil
		}},
		"status": {"status", "show the player status", func(c *Console, _ []string) error {
			c.printf("%s\n", formatStatus(c.cmds.PlayerStatus()))
			return nil
		}},
		"help": {"help", "show this help", func(c *Console, _ []string) error {
			c.printHelp()
			return nil
		}},
		"quit": {"quit", "exit", func(*Console, []string) error { return errQuit }},
	}
}

func noArgs(f func(Commands) error) func(*Console, []string) error {
	return func(c *Console, _ []string) error { return f(c.cmds) }
}

func withIndex(f func(Commands, int) error) func(*Console, []string) error {
	return func(c *Console, args []string) error {
		if len(args) != 1 {
			return errors.New("expected one playlist entry number")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid entry number %q", args[0])
		}
		// entries are numbered from 1 for display
		return f(c.cmds, n-1)
	}
}

// Console is a readline based REPL. It implements backend.Callbacks
// to print playback events above the prompt.
type Console struct {
	backend.BaseCallbacks

	cmds Commands
	rl   *readline.Instance

	mu  sync.Mutex
	out io.Writer
}

var _ backend.Callbacks = (*Console)(nil)

// New creates a console writing to out. Call Run to read commands
// from the terminal, or Execute to run single command lines.
func New(cmds Commands, out io.Writer) *Console {
	return &Console{cmds: cmds, out: out}
}

// Run reads and executes command lines until the user quits,
// input ends or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          defaultPrompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		AutoComplete:    newCompleter(),
	})
	if err != nil {
		return err
	}
	defer rl.Close()
	c.mu.Lock()
	c.rl = rl
	c.out = rl.Stdout()
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	c.printf("Type \"help\" for a list of commands.\n")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		} else if err != nil {
			return nil // io.EOF or closed
		}
		if err := c.Execute(line); errors.Is(err, errQuit) {
			return nil
		} else if err != nil {
			c.printf("error: %v\n", err)
		}
	}
}

// Execute runs one command line.
func (c *Console) Execute(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name := strings.ToLower(fields[0])
	if a, ok := aliases[name]; ok {
		name = a
	}
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q, try \"help\"", fields[0])
	}
	args := fields[1:]
	if name == "add" {
		// keep spaces in file names
		args = splitPaths(strings.TrimSpace(line[len(fields[0])+strings.Index(line, fields[0]):]))
	}
	return cmd.run(c, args)
}

func (c *Console) parseSeek(arg string) (float64, error) {
	if f, err := strconv.ParseFloat(arg, 64); err == nil {
		if f < 0 || f > 1 {
			return 0, fmt.Errorf("seek fraction %v out of range", f)
		}
		return f, nil
	}
	st := c.cmds.PlayerStatus()
	if !st.DurationKnown || st.Duration <= 0 {
		return 0, errors.New("duration unknown, seek by fraction instead")
	}
	d, err := parseClock(arg)
	if err != nil {
		return 0, err
	}
	return min(float64(d)/float64(st.Duration), 1), nil
}

// parseClock parses m:ss or h:mm:ss.
func parseClock(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	var d time.Duration
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		d = d*60 + time.Duration(n)
	}
	return d * time.Second, nil
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) printEntry(st backend.PlayerStatus, i int) {
	marker := "  "
	if i == st.Index {
		marker = "* "
	}
	c.printf("%s%3d  %s\n", marker, i+1, st.Playlist[i])
}

func (c *Console) printHelp() {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		c.printf("  %-24s %s\n", commands[n].usage, commands[n].help)
	}
}

func (c *Console) setPrompt(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rl != nil {
		c.rl.SetPrompt(p)
		c.rl.Refresh()
	}
}

// backend.Callbacks implementation

func (c *Console) OnStatus(text string) {
	c.printf("» %s\n", text)
}

func (c *Console) OnError(message string) {
	c.printf("! %s\n", message)
}

func (c *Console) OnNowPlaying(name string) {
	c.printf("♪ %s\n", name)
}

func (c *Console) OnTimeUpdate(cur, total time.Duration) {
	if total <= 0 {
		c.setPrompt(fmt.Sprintf("[%s] %s", sharedutil.DurationToTimeString(cur), defaultPrompt))
		return
	}
	c.setPrompt(fmt.Sprintf("[%s/%s] %s",
		sharedutil.DurationToTimeString(cur), sharedutil.DurationToTimeString(total), defaultPrompt))
}

func (c *Console) OnStateChange(state backend.State) {
	if state == backend.StateStopped || state == backend.StateIdle {
		c.setPrompt(defaultPrompt)
	}
}

func (c *Console) OnVolumeChange(volume int, muted bool) {
	c.printf("volume %d%s\n", volume, mutedSuffix(muted))
}

func formatStatus(st backend.PlayerStatus) string {
	var sb strings.Builder
	sb.WriteString(st.State)
	if st.NowPlaying != "" {
		fmt.Fprintf(&sb, ": %s", st.NowPlaying)
		if st.DurationKnown {
			fmt.Fprintf(&sb, " [%s/%s]", sharedutil.DurationToTimeString(st.Position),
				sharedutil.DurationToTimeString(st.Duration))
		} else {
			fmt.Fprintf(&sb, " [%s]", sharedutil.DurationToTimeString(st.Position))
		}
	}
	fmt.Fprintf(&sb, " | volume %d%s | repeat %s", st.Volume, mutedSuffix(st.Muted), st.RepeatMode)
	if st.Visualization {
		sb.WriteString(" | vis on")
	}
	return sb.String()
}

func mutedSuffix(muted bool) string {
	if muted {
		return " (muted)"
	}
	return ""
}

func indexes(n int) []int {
	idx := make([]int, n)
	for i := range n {
		idx[i] = i
	}
	return idx
}

// splitPaths splits a command line into paths. Double quotes group
// words containing spaces.
func splitPaths(s string) []string {
	var paths []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			paths = append(paths, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ' ' && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return paths
}

// expandPaths makes paths absolute, expands a leading ~
// and replaces directories by the files they contain.
func expandPaths(paths []string) []string {
	var out []string
	for _, p := range paths {
		if strings.HasPrefix(p, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				p = filepath.Join(home, p[2:])
			}
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		if fi, err := os.Stat(p); err == nil && fi.IsDir() {
			entries, _ := os.ReadDir(p)
			for _, e := range entries {
				if !e.IsDir() && media.IsSupported(e.Name()) {
					out = append(out, filepath.Join(p, e.Name()))
				}
			}
			continue
		}
		out = append(out, p)
	}
	return out
}

func newCompleter() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for name := range commands {
		if name == "add" {
			items = append(items, readline.PcItem(name, readline.PcItemDynamic(listFiles)))
			continue
		}
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}

func listFiles(line string) []string {
	fields := strings.Fields(line)
	prefix := ""
	if len(fields) > 1 && !strings.HasSuffix(line, " ") {
		prefix = fields[len(fields)-1]
	}
	dir := filepath.Dir(prefix)
	if prefix == "" {
		dir = "."
	}
	entries, _ := os.ReadDir(dir)
	var names []string
	for _, e := range entries {
		name := filepath.Join(dir, e.Name())
		if e.IsDir() {
			name += string(filepath.Separator)
		} else if !media.IsSupported(e.Name()) {
			continue
		}
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names
}
