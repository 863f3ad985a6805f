package ipc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

type PlaybackHandler interface {
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
	Seek(fraction float64) error
	SetRepeatMode(string) error

	SetVolume(int) error
	SetMute(bool) error
	ToggleMute() error
	ToggleVisualization() error

	// Status returns a JSON-marshalable snapshot of the player.
	Status() any
}

type AppHandler interface {
	Quit()
}

type serverImpl struct {
	pbHandler  PlaybackHandler
	appHandler AppHandler
}

func NewServer(pbHandler PlaybackHandler, appHandler AppHandler) *http.Server {
	s := serverImpl{pbHandler: pbHandler, appHandler: appHandler}
	return &http.Server{
		Handler: s.createHandler(),
	}
}

func (s *serverImpl) createHandler() http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("The given path is not valid"))
	})
	m.HandleFunc(PingPath, s.makeSimpleEndpointHandler(func() error { return nil }))
	m.HandleFunc(QuitPath, s.makeSimpleEndpointHandler(func() error {
		go s.appHandler.Quit()
		return nil
	}))
	m.HandleFunc(StatusPath, func(w http.ResponseWriter, r *http.Request) {
		b, err := json.Marshal(s.pbHandler.Status())
		if err != nil {
			s.writeErr(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(b)
	})

	m.HandleFunc(AddPath, func(w http.ResponseWriter, r *http.Request) {
		var a AddFiles
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			s.writeErr(w, err)
			return
		}
		s.writeSimpleResponse(w, s.pbHandler.AddFiles(a.Paths))
	})
	m.HandleFunc(RemovePath, s.makeIndexHandler(s.pbHandler.RemoveAt))
	m.HandleFunc(SelectPath, s.makeIndexHandler(s.pbHandler.PlaySelected))
	m.HandleFunc(ClearPath, s.makeSimpleEndpointHandler(s.pbHandler.ClearPlaylist))
	m.HandleFunc(PruneMissingPath, s.makeSimpleEndpointHandler(s.pbHandler.PruneMissing))

	m.HandleFunc(PlayPath, s.makeSimpleEndpointHandler(s.pbHandler.Play))
	m.HandleFunc(PausePath, s.makeSimpleEndpointHandler(s.pbHandler.Pause))
	m.HandleFunc(PlayPausePath, s.makeSimpleEndpointHandler(s.pbHandler.TogglePlayPause))
	m.HandleFunc(StopPath, s.makeSimpleEndpointHandler(s.pbHandler.Stop))
	m.HandleFunc(PreviousPath, s.makeSimpleEndpointHandler(s.pbHandler.PlayPrevious))
	m.HandleFunc(NextPath, s.makeSimpleEndpointHandler(s.pbHandler.PlayNext))
	m.HandleFunc(SeekPath, func(w http.ResponseWriter, r *http.Request) {
		f, err := strconv.ParseFloat(r.URL.Query().Get("f"), 64)
		if err != nil {
			s.writeErr(w, fmt.Errorf("invalid seek fraction: %w", err))
			return
		}
		s.writeSimpleResponse(w, s.pbHandler.Seek(f))
	})
	m.HandleFunc(RepeatPath, func(w http.ResponseWriter, r *http.Request) {
		s.writeSimpleResponse(w, s.pbHandler.SetRepeatMode(r.URL.Query().Get("m")))
	})

	m.HandleFunc(VolumePath, func(w http.ResponseWriter, r *http.Request) {
		v, err := strconv.Atoi(r.URL.Query().Get("v"))
		if err != nil {
			s.writeErr(w, fmt.Errorf("invalid volume: %w", err))
			return
		}
		s.writeSimpleResponse(w, s.pbHandler.SetVolume(v))
	})
	m.HandleFunc(MutePath, func(w http.ResponseWriter, r *http.Request) {
		muted, err := strconv.ParseBool(r.URL.Query().Get("m"))
		if err != nil {
			s.writeErr(w, fmt.Errorf("invalid mute flag: %w", err))
			return
		}
		s.writeSimpleResponse(w, s.pbHandler.SetMute(muted))
	})
	m.HandleFunc(ToggleMutePath, s.makeSimpleEndpointHandler(s.pbHandler.ToggleMute))
	m.HandleFunc(VisualizationPath, s.makeSimpleEndpointHandler(s.pbHandler.ToggleVisualization))
	return m
}

func (s *serverImpl) makeSimpleEndpointHandler(f func() error) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeSimpleResponse(w, f())
	}
}

func (s *serverImpl) makeIndexHandler(f func(int) error) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		i, err := strconv.Atoi(r.URL.Query().Get("i"))
		if err != nil {
			s.writeErr(w, fmt.Errorf("invalid index: %w", err))
			return
		}
		s.writeSimpleResponse(w, f(i))
	}
}

func (s *serverImpl) writeSimpleResponse(w http.ResponseWriter, err error) {
	if err == nil {
		s.writeOK(w)
	} else {
		s.writeErr(w, err)
	}
}

func (s *serverImpl) writeOK(w http.ResponseWriter) (int, error) {
	var r Response
	b, err := json.Marshal(&r)
	if err != nil {
		return 0, err
	}
	return w.Write(b)
}

func (s *serverImpl) writeErr(w http.ResponseWriter, err error) (int, error) {
	r := Response{Error: err.Error()}
	b, err := json.Marshal(&r)
	if err != nil {
		return 0, err
	}
	w.WriteHeader(http.StatusInternalServerError)
	return w.Write(b)
}
