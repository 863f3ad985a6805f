package backend

import (
	"os"
	"slices"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

const (
	BackendAuto   = "auto"
	BackendMPV    = "mpv"
	BackendNative = "native"
)

var SupportedBackends = []string{BackendAuto, BackendMPV, BackendNative}

type AppConfig struct {
	LastLaunchedVersion string
	AllowMultiInstance  bool
	EnableIPC           bool
	EnableMPRIS         bool
}

type LocalPlaybackConfig struct {
	// auto, mpv or native
	Backend             string
	AudioDeviceName     string
	InMemoryCacheSizeMB int
	Volume              int
	Muted               bool
}

type PlaybackConfig struct {
	RepeatMode     string
	PositionPollMS int
}

type PlaylistConfig struct {
	RejectDuplicates  bool
	PruneMissingFiles bool
}

type VisualizationConfig struct {
	Enabled     bool
	IntervalMS  int
	ThresholdDB float64
}

type Config struct {
	Application   AppConfig
	LocalPlayback LocalPlaybackConfig
	Playback      PlaybackConfig
	Playlist      PlaylistConfig
	Visualization VisualizationConfig
}

func DefaultConfig(appVersionTag string) *Config {
	return &Config{
		Application: AppConfig{
			LastLaunchedVersion: appVersionTag,
			AllowMultiInstance:  false,
			EnableIPC:           true,
			EnableMPRIS:         true,
		},
		LocalPlayback: LocalPlaybackConfig{
			Backend: BackendAuto,
			// "auto" is the name to pass to MPV for autoselecting the output device
			AudioDeviceName:     "auto",
			InMemoryCacheSizeMB: 30,
			Volume:              100,
		},
		Playback: PlaybackConfig{
			RepeatMode:     RepeatAll.String(),
			PositionPollMS: 250,
		},
		Playlist: PlaylistConfig{
			RejectDuplicates:  true,
			PruneMissingFiles: true,
		},
		Visualization: VisualizationConfig{
			Enabled:     true,
			IntervalMS:  100,
			ThresholdDB: -60,
		},
	}
}

func ReadConfigFile(filepath, appVersionTag string) (*Config, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := DefaultConfig(appVersionTag)
	if err := toml.NewDecoder(f).Decode(c); err != nil {
		return nil, err
	}
	c.normalize()
	return c, nil
}

// normalize replaces out-of-range values with their defaults or bounds.
func (c *Config) normalize() {
	if !slices.Contains(SupportedBackends, c.LocalPlayback.Backend) {
		c.LocalPlayback.Backend = BackendAuto
	}
	c.LocalPlayback.Volume = clamp(c.LocalPlayback.Volume, 0, 100)
	c.LocalPlayback.InMemoryCacheSizeMB = clamp(c.LocalPlayback.InMemoryCacheSizeMB, 10, 500)
	c.Playback.RepeatMode = ParseRepeatMode(c.Playback.RepeatMode).String()
	c.Playback.PositionPollMS = clamp(c.Playback.PositionPollMS, 50, 5000)
	c.Visualization.IntervalMS = clamp(c.Visualization.IntervalMS, 10, 1000)
	c.Visualization.ThresholdDB = clamp(c.Visualization.ThresholdDB, -120, -1)
}

var writeLock sync.Mutex

func (c *Config) WriteConfigFile(filepath string) error {
	if !writeLock.TryLock() {
		return nil // another write in progress
	}
	defer writeLock.Unlock()

	b, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, b, 0644)
}
