package backend

import (
	"encoding/base32"
	"errors"
	"log"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/events"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"
)

const (
	dbusTrackIDPrefix = "/MediaDeck/Track/"
	noTrackObjectPath = "/org/mpris/MediaPlayer2/TrackList/NoTrack"

	// position jumps larger than this are reported as seeks
	seekJumpThreshold = 2 * time.Second
)

var (
	_ types.OrgMprisMediaPlayer2Adapter                 = (*MPRISHandler)(nil)
	_ types.OrgMprisMediaPlayer2PlayerAdapter           = (*MPRISHandler)(nil)
	_ types.OrgMprisMediaPlayer2PlayerAdapterLoopStatus = (*MPRISHandler)(nil)
)

var (
	errNotSupported = errors.New("not supported")
)

type MPRISHandler struct {
	// Function called if the player is requested to quit through MPRIS.
	// Should *asynchronously* start shutdown and return immediately.
	OnQuit func() error

	// Function called if the player is requested to bring its UI to the front.
	OnRaise func() error

	listening  atomic.Bool
	playerName string
	ctrl       *Controller
	s          *server.Server
	evt        *events.EventHandler

	// last status seen by Update; loop goroutine only
	last PlayerStatus
}

func NewMPRISHandler(playerName string, ctrl *Controller) *MPRISHandler {
	m := &MPRISHandler{playerName: playerName, ctrl: ctrl}
	m.s = server.NewServer(playerName, m, m)
	m.evt = events.NewEventHandler(m.s)
	return m
}

// Starts listening for MPRIS events.
func (m *MPRISHandler) Start() {
	m.listening.Store(true)
	go func() {
		// exits early with err if unable to establish D-Bus connection
		err := m.s.Listen()
		m.listening.Store(false)
		if err != nil {
			log.Printf("MPRIS unavailable: %v", err)
		}
	}()
}

// Stops listening for MPRIS events and releases any D-Bus resources.
func (m *MPRISHandler) Shutdown() {
	if m.listening.CompareAndSwap(true, false) {
		m.s.Stop()
	}
}

// Update emits the property change signals implied by a new status.
// Registered with Loop.OnUpdate.
func (m *MPRISHandler) Update(st PlayerStatus) {
	prev := m.last
	m.last = st
	if !m.listening.Load() {
		return
	}
	if st.Path != prev.Path || st.Duration != prev.Duration {
		m.evt.Player.OnTitle()
	}
	if st.State != prev.State {
		m.evt.Player.OnPlayPause()
	}
	if st.Volume != prev.Volume || st.Muted != prev.Muted {
		m.evt.Player.OnVolume()
	}
	if st.Path == prev.Path && st.Path != "" {
		d := st.Position - prev.Position
		if d < 0 || d > seekJumpThreshold {
			m.evt.Player.OnSeek(durationToMicroseconds(st.Position))
		}
	}
}

// OrgMprisMediaPlayer2Adapter implementation

func (m *MPRISHandler) Identity() (string, error) {
	return m.playerName, nil
}

func (m *MPRISHandler) CanQuit() (bool, error) {
	return m.OnQuit != nil, nil
}

func (m *MPRISHandler) Quit() error {
	if m.OnQuit != nil {
		return m.OnQuit()
	}
	return errors.New("no quit handler added")
}

func (m *MPRISHandler) CanRaise() (bool, error) {
	return m.OnRaise != nil, nil
}

func (m *MPRISHandler) Raise() error {
	if m.OnRaise != nil {
		return m.OnRaise()
	}
	return errors.New("no raise handler added")
}

func (m *MPRISHandler) HasTrackList() (bool, error) {
	return false, nil
}

func (m *MPRISHandler) SupportedUriSchemes() ([]string, error) {
	return []string{"file"}, nil
}

func (m *MPRISHandler) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/wav", "audio/flac", "audio/ogg", "video/mp4", "video/x-matroska"}, nil
}

// OrgMprisMediaPlayer2PlayerAdapter implementation

func (m *MPRISHandler) Next() error {
	return m.ctrl.PlayNext()
}

func (m *MPRISHandler) Previous() error {
	return m.ctrl.PlayPrevious()
}

func (m *MPRISHandler) Pause() error {
	return m.ctrl.Pause()
}

func (m *MPRISHandler) PlayPause() error {
	return m.ctrl.TogglePlayPause()
}

func (m *MPRISHandler) Stop() error {
	return m.ctrl.Stop()
}

func (m *MPRISHandler) Play() error {
	return m.ctrl.Play()
}

func (m *MPRISHandler) Seek(offset types.Microseconds) error {
	// MPRIS seek command is relative to current position
	st := m.ctrl.PlayerStatus()
	pos := st.Position + microsecondsToDuration(offset)
	return m.seekTo(st, pos)
}

func (m *MPRISHandler) SetPosition(trackId string, position types.Microseconds) error {
	st := m.ctrl.PlayerStatus()
	if trackObjectPath(st) == trackId {
		return m.seekTo(st, microsecondsToDuration(position))
	}
	return nil
}

func (m *MPRISHandler) seekTo(st PlayerStatus, pos time.Duration) error {
	if !st.DurationKnown || st.Duration <= 0 {
		return errNotSupported
	}
	return m.ctrl.Seek(float64(pos) / float64(st.Duration))
}

// OpenUri appends a local file to the playlist.
func (m *MPRISHandler) OpenUri(uri string) error {
	u, err := url.Parse(uri)
	if err != nil {
		return err
	}
	if u.Scheme != "file" {
		return errNotSupported
	}
	return m.ctrl.AddFiles([]string{u.Path})
}

func (m *MPRISHandler) PlaybackStatus() (types.PlaybackStatus, error) {
	switch m.ctrl.PlayerStatus().State {
	case StatePlaying.String():
		return types.PlaybackStatusPlaying, nil
	case StatePaused.String():
		return types.PlaybackStatusPaused, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (m *MPRISHandler) LoopStatus() (types.LoopStatus, error) {
	switch ParseRepeatMode(m.ctrl.PlayerStatus().RepeatMode) {
	case RepeatOne:
		return types.LoopStatusTrack, nil
	case RepeatNone:
		return types.LoopStatusNone, nil
	}
	return types.LoopStatusPlaylist, nil
}

func (m *MPRISHandler) SetLoopStatus(status types.LoopStatus) error {
	switch status {
	case types.LoopStatusPlaylist:
		return m.ctrl.SetRepeatMode(RepeatAll.String())
	case types.LoopStatusTrack:
		return m.ctrl.SetRepeatMode(RepeatOne.String())
	case types.LoopStatusNone:
		return m.ctrl.SetRepeatMode(RepeatNone.String())
	}
	return errors.New("unknown loop status")
}

func (m *MPRISHandler) Rate() (float64, error) {
	return 1, nil
}

func (m *MPRISHandler) SetRate(float64) error {
	return errNotSupported
}

func (m *MPRISHandler) Metadata() (types.Metadata, error) {
	st := m.ctrl.PlayerStatus()
	return types.Metadata{
		TrackId: dbus.ObjectPath(trackObjectPath(st)),
		Length:  durationToMicroseconds(st.Duration),
		Title:   st.NowPlaying,
	}, nil
}

func (m *MPRISHandler) Volume() (float64, error) {
	st := m.ctrl.PlayerStatus()
	if st.Muted {
		return 0, nil
	}
	return float64(st.Volume) / 100, nil
}

func (m *MPRISHandler) SetVolume(v float64) error {
	return m.ctrl.SetVolume(int(v * 100))
}

func (m *MPRISHandler) Position() (int64, error) {
	return int64(durationToMicroseconds(m.ctrl.PlayerStatus().Position)), nil
}

func (m *MPRISHandler) MinimumRate() (float64, error) {
	return 1, nil
}

func (m *MPRISHandler) MaximumRate() (float64, error) {
	return 1, nil
}

func (m *MPRISHandler) CanGoNext() (bool, error) {
	return true, nil
}

func (m *MPRISHandler) CanGoPrevious() (bool, error) {
	return true, nil
}

func (m *MPRISHandler) CanPlay() (bool, error) {
	return true, nil
}

func (m *MPRISHandler) CanPause() (bool, error) {
	return true, nil
}

func (m *MPRISHandler) CanSeek() (bool, error) {
	return m.ctrl.PlayerStatus().DurationKnown, nil
}

func (m *MPRISHandler) CanControl() (bool, error) {
	return true, nil
}

func trackObjectPath(st PlayerStatus) string {
	if st.Path == "" {
		return noTrackObjectPath
	}
	return dbusTrackIDPrefix + encodeTrackId(st.Path)
}

func microsecondsToDuration(m types.Microseconds) time.Duration {
	return time.Duration(m) * time.Microsecond
}

func durationToMicroseconds(d time.Duration) types.Microseconds {
	return types.Microseconds(d / time.Microsecond)
}

func encodeTrackId(id string) string {
	data := []byte(id)
	return base32.StdEncoding.WithPadding('0').EncodeToString(data)
}
