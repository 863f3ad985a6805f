package backend

import (
	"cmp"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/dweymouth/mediadeck/backend/ipc"
	"github.com/dweymouth/mediadeck/backend/media"
	"github.com/dweymouth/mediadeck/backend/player"
	"github.com/dweymouth/mediadeck/backend/player/mpv"
	"github.com/dweymouth/mediadeck/backend/player/pcm"
	"github.com/dweymouth/mediadeck/backend/util"

	"github.com/20after4/configdir"
)

const (
	configFile  = "config.toml"
	portableDir = "mediadeck_portable"
)

var ErrAnotherInstance = errors.New("another instance is running")

type App struct {
	Config       *Config
	Controller   *Controller
	Loop         *Loop
	MPRISHandler *MPRISHandler
	FileWatcher  *FileWatcher

	// UI callbacks to be set in main
	OnReactivate func()
	OnExit       func()

	appName       string
	appVersionTag string
	configDir     string
	portableMode  bool

	isFirstLaunch bool // set by config file reader
	bgrndCtx      context.Context
	cancel        context.CancelFunc
	callbacks     CallbackSet
	ipcServer     *http.Server
	started       bool
	loopDone      chan struct{}
	writerDone    chan struct{}

	lastWrittenCfg Config
}

func (a *App) VersionTag() string {
	return a.appVersionTag
}

// StartupApp reads the config and builds the playback stack.
// Hosts register their callbacks with AddCallbacks and then call Start.
// Returns ErrAnotherInstance if another instance owns the IPC socket
// and the config does not allow multiple instances.
func StartupApp(appName, displayAppName, appVersionTag string) (*App, error) {
	var confDir string
	portableMode := false
	if p := checkPortablePath(); p != "" {
		confDir = path.Join(p, "config")
		portableMode = true
	} else {
		confDir = configdir.LocalConfig(appName)
	}
	// ensure config dir exists
	configdir.MakePath(confDir)

	a := &App{
		appName:       appName,
		appVersionTag: appVersionTag,
		configDir:     confDir,
		portableMode:  portableMode,
		loopDone:      make(chan struct{}),
		writerDone:    make(chan struct{}),
	}
	a.readConfig()

	if a.Config.Application.EnableIPC && !a.Config.Application.AllowMultiInstance {
		if _, err := ipc.Connect(); err == nil {
			return nil, ErrAnotherInstance
		}
	}

	log.Printf("Starting %s...", appName)
	log.Printf("Using config dir: %s", confDir)

	a.bgrndCtx, a.cancel = context.WithCancel(context.Background())
	a.buildPlaybackStack(displayAppName)
	return a, nil
}

func (a *App) buildPlaybackStack(displayAppName string) {
	cfg := a.Config
	events := NewEventQueue(0)
	engine := NewPlaybackEngine(a.bgrndCtx, newBackend(cfg, a.appName), events, &a.callbacks, EngineOptions{
		PositionPollInterval: time.Duration(cfg.Playback.PositionPollMS) * time.Millisecond,
		Visualization:        cfg.Visualization.Enabled,
		Volume:               cfg.LocalPlayback.Volume,
		Muted:                cfg.LocalPlayback.Muted,
	})
	playlist := media.NewPlaylist(cfg.Playlist.RejectDuplicates)
	coordinator := NewCoordinator(playlist, engine, &a.callbacks, ParseRepeatMode(cfg.Playback.RepeatMode))
	commands := NewCommandQueue()
	a.Loop = NewLoop(coordinator, events, commands)
	a.Controller = NewController(a.bgrndCtx, commands, a.Loop)

	if cfg.Playlist.PruneMissingFiles {
		fw, err := NewFileWatcher(a.Controller.PruneMissing)
		if err != nil {
			log.Printf("failed to start file watcher: %v", err)
		} else {
			a.FileWatcher = fw
			a.Loop.OnUpdate(fw.Update)
		}
	}
	if cfg.Application.EnableMPRIS {
		a.setupMPRIS(displayAppName)
	}
}

// newBackend builds the playback backend selected in the config.
func newBackend(cfg *Config, clientName string) player.Backend {
	native := pcm.New(pcm.Options{
		SpectrumInterval:    time.Duration(cfg.Visualization.IntervalMS) * time.Millisecond,
		SpectrumThresholdDB: cfg.Visualization.ThresholdDB,
	})
	lp := cfg.LocalPlayback
	device := lp.AudioDeviceName
	if device == "auto" {
		device = ""
	}
	full := mpv.New(mpv.Options{
		MaxCacheMB:  lp.InMemoryCacheSizeMB,
		AudioDevice: device,
		ClientName:  clientName,
	})
	switch lp.Backend {
	case BackendMPV:
		return full
	case BackendNative:
		return native
	}
	// formats the native backend can't decode, and all video, go to mpv
	return player.NewRouter(native, full)
}

// AddCallbacks registers a consumer of playback callbacks.
// Must be called before Start.
func (a *App) AddCallbacks(cb Callbacks) {
	a.callbacks = append(a.callbacks, cb)
}

// Start runs the presentation loop and the IPC, MPRIS and file
// watching integrations.
func (a *App) Start() {
	a.started = true
	go func() {
		a.Loop.Run(a.bgrndCtx)
		close(a.loopDone)
	}()
	a.startConfigWriter(a.bgrndCtx)

	if a.FileWatcher != nil {
		a.FileWatcher.Start(a.bgrndCtx)
	}
	if a.MPRISHandler != nil {
		a.MPRISHandler.Start()
	}
	if a.Config.Application.EnableIPC {
		listener, err := ipc.Listen()
		if err != nil {
			log.Printf("failed to start IPC server: %v", err)
			return
		}
		a.ipcServer = ipc.NewServer(a.Controller, a)
		go a.ipcServer.Serve(listener)
	}
}

func (a *App) IsFirstLaunch() bool {
	return a.isFirstLaunch
}

func (a *App) IsPortableMode() bool {
	return a.portableMode
}

func checkPortablePath() string {
	if p, err := os.Executable(); err == nil {
		pdirPath := path.Join(filepath.Dir(p), portableDir)
		if s, err := os.Stat(pdirPath); err == nil && s.IsDir() {
			return pdirPath
		}
	}
	return ""
}

func (a *App) readConfig() {
	cfgPath := a.configFilePath()
	var cfgExists bool
	if _, err := os.Stat(cfgPath); err == nil {
		cfgExists = true
	}
	a.isFirstLaunch = !cfgExists
	cfg, err := ReadConfigFile(cfgPath, a.appVersionTag)
	if err != nil {
		if cfgExists {
			log.Printf("Error reading app config file: %v", err)
		}
		cfg = DefaultConfig(a.appVersionTag)
		if cfgExists {
			if bak, err := util.BackupFile(cfgPath); err == nil {
				log.Printf("Config file may be malformed: copied to %s", bak)
			}
		}
	}
	cfg.Application.LastLaunchedVersion = a.appVersionTag
	a.Config = cfg
}

// periodically save config file so abnormal exit won't lose settings
func (a *App) startConfigWriter(ctx context.Context) {
	tick := time.NewTicker(2 * time.Minute)
	go func() {
		defer close(a.writerDone)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				a.syncConfig()
				if a.lastWrittenCfg != *a.Config {
					a.SaveConfigFile()
				}
			}
		}
	}()
}

// syncConfig copies the settings that can change during playback
// into the config.
func (a *App) syncConfig() {
	st := a.Loop.Status()
	a.Config.LocalPlayback.Volume = st.Volume
	a.Config.LocalPlayback.Muted = st.Muted
	a.Config.Playback.RepeatMode = st.RepeatMode
	a.Config.Visualization.Enabled = st.Visualization
}

func (a *App) callOnReactivate() {
	if a.OnReactivate != nil {
		a.OnReactivate()
	}
}

// Quit is invoked through IPC.
func (a *App) Quit() {
	if a.OnExit != nil {
		go a.OnExit()
	}
}

func (a *App) setupMPRIS(mprisAppName string) {
	a.MPRISHandler = NewMPRISHandler(mprisAppName, a.Controller)
	a.MPRISHandler.OnRaise = func() error { a.callOnReactivate(); return nil }
	a.MPRISHandler.OnQuit = func() error {
		if a.OnExit == nil {
			return errors.New("no quit handler registered")
		}
		go func() {
			time.Sleep(10 * time.Millisecond)
			a.OnExit()
		}()
		return nil
	}
	a.Loop.OnUpdate(a.MPRISHandler.Update)
}

// Shutdown stops playback, releases all media and saves the config.
func (a *App) Shutdown() {
	if a.MPRISHandler != nil {
		a.MPRISHandler.Shutdown()
	}
	if a.ipcServer != nil {
		a.ipcServer.Close()
		ipc.DestroyConn()
	}
	a.cancel()
	if a.started {
		<-a.loopDone
		<-a.writerDone
	} else {
		a.Loop.commands.Close()
		a.Loop.engine.Shutdown()
	}
	a.syncConfig()
	a.SaveConfigFile()
}

func (a *App) SaveConfigFile() {
	if err := a.Config.WriteConfigFile(a.configFilePath()); err != nil {
		log.Printf("failed to write config file: %v", err)
		return
	}
	a.lastWrittenCfg = *a.Config
}

func (a *App) configFilePath() string {
	return path.Join(a.configDir, configFile)
}

func clamp[T cmp.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}
