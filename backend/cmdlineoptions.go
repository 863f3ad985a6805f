package backend

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/dweymouth/mediadeck/backend/ipc"
)

var (
	VolumeCLIArg int     = -1
	SeekToCLIArg float64 = -1

	FlagPlay      = flag.Bool("play", false, "unpause or begin playback")
	FlagPause     = flag.Bool("pause", false, "pause playback")
	FlagPlayPause = flag.Bool("play-pause", false, "toggle play/pause state")
	FlagStop      = flag.Bool("stop", false, "stop playback")
	FlagPrevious  = flag.Bool("previous", false, "play the previous file in the playlist")
	FlagNext      = flag.Bool("next", false, "play the next file in the playlist")
	FlagHeadless  = flag.Bool("headless", false, "run without the interactive console, logging events only")
	FlagVersion   = flag.Bool("version", false, "print app version and exit")
	FlagHelp      = flag.Bool("help", false, "print command line options and exit")
)

func init() {
	flag.Func("volume", "sets the playback volume (0-100)", func(s string) error {
		v, err := strconv.Atoi(s)
		if err == nil && (v < 0 || v > 100) {
			err = errors.New("volume must be between 0 and 100")
		}
		VolumeCLIArg = v
		return err
	})

	flag.Func("seek-to", "seeks to the given fraction of the current file (0.0 - 1.0)", func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err == nil && (v < 0 || v > 1) {
			err = errors.New("seek position must be between 0.0 and 1.0")
		}
		SeekToCLIArg = v
		return err
	})
}

func HaveCommandLineOptions() bool {
	visitedAny := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name != "headless" {
			visitedAny = true
		}
	})
	return visitedAny || flag.NArg() > 0
}

// ForwardCommandLine sends the command line verbs and any positional
// file arguments to the instance reachable through cli.
func ForwardCommandLine(cli *ipc.Client, files []string) error {
	var errs []error
	do := func(name string, f func() error) {
		if err := f(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if len(files) > 0 {
		do("add", func() error { return cli.AddFiles(absPaths(files)) })
	}
	if VolumeCLIArg >= 0 {
		do("volume", func() error { return cli.SetVolume(VolumeCLIArg) })
	}
	if *FlagStop {
		do("stop", cli.Stop)
	}
	if *FlagPrevious {
		do("previous", cli.Previous)
	}
	if *FlagNext {
		do("next", cli.Next)
	}
	if SeekToCLIArg >= 0 {
		do("seek-to", func() error { return cli.Seek(SeekToCLIArg) })
	}
	if *FlagPlay {
		do("play", cli.Play)
	}
	if *FlagPause {
		do("pause", cli.Pause)
	}
	if *FlagPlayPause {
		do("play-pause", cli.PlayPause)
	}
	return errors.Join(errs...)
}

// ApplyCommandLine runs the command line verbs against a freshly started
// instance.
func ApplyCommandLine(ctrl *Controller, files []string) error {
	var errs []error
	if len(files) > 0 {
		errs = append(errs, ctrl.AddFiles(absPaths(files)))
	}
	if VolumeCLIArg >= 0 {
		errs = append(errs, ctrl.SetVolume(VolumeCLIArg))
	}
	if *FlagPlay || *FlagPlayPause {
		errs = append(errs, ctrl.Play())
	}
	if SeekToCLIArg >= 0 {
		errs = append(errs, ctrl.Seek(SeekToCLIArg))
	}
	return errors.Join(errs...)
}

// absPaths resolves relative paths against the working directory of this
// process, since a running instance may have a different one.
func absPaths(paths []string) []string {
	abs := make([]string, len(paths))
	for i, p := range paths {
		if a, err := filepath.Abs(p); err == nil {
			p = a
		}
		abs[i] = p
	}
	return abs
}
