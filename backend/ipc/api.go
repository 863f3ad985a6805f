package ipc

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	PingPath          = "/ping"
	StatusPath        = "/status"
	AddPath           = "/playlist/add"    // POST body: AddFiles
	RemovePath        = "/playlist/remove" // ?i=<index>
	ClearPath         = "/playlist/clear"
	SelectPath        = "/playlist/select" // ?i=<index>
	PruneMissingPath  = "/playlist/prune"
	PlayPath          = "/transport/play"
	PlayPausePath     = "/transport/playpause"
	PausePath         = "/transport/pause"
	StopPath          = "/transport/stop"
	PreviousPath      = "/transport/previous"
	NextPath          = "/transport/next"
	SeekPath          = "/transport/seek"   // ?f=<fraction 0-1>
	RepeatPath        = "/transport/repeat" // ?m=<None|All|One>
	VolumePath        = "/volume"           // ?v=<vol>
	MutePath          = "/volume/mute"      // ?m=<bool>
	ToggleMutePath    = "/volume/togglemute"
	VisualizationPath = "/visualization/toggle"
	QuitPath          = "/quit"
)

type Response struct {
	Error string `json:"error"`
}

type AddFiles struct {
	Paths []string `json:"paths"`
}

func SetVolumePath(vol int) string {
	return fmt.Sprintf("%s?v=%d", VolumePath, vol)
}

func SetMutePath(muted bool) string {
	return fmt.Sprintf("%s?m=%t", MutePath, muted)
}

func SeekToFractionPath(f float64) string {
	return fmt.Sprintf("%s?f=%0.4f", SeekPath, f)
}

func SetRepeatModePath(mode string) string {
	return fmt.Sprintf("%s?m=%s", RepeatPath, url.QueryEscape(mode))
}

func BuildRemovePath(idx int) string {
	return RemovePath + "?i=" + strconv.Itoa(idx)
}

func BuildSelectPath(idx int) string {
	return SelectPath + "?i=" + strconv.Itoa(idx)
}
