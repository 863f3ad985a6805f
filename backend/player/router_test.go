package player

import (
	"context"
	"errors"
	"testing"

	"github.com/dweymouth/mediadeck/backend/media"
)

// wavOnly only opens .wav items.
type wavOnly struct {
	*MockBackend
}

func (wavOnly) CanOpen(item media.Item) bool {
	return media.HasExtension(item.Path, ".wav")
}

type refuseAll struct {
	*MockBackend
}

func (refuseAll) CanOpen(media.Item) bool { return false }

func TestRouter_Open(t *testing.T) {
	native, fallback := NewMock(), NewMock()
	r := NewRouter(wavOnly{native}, fallback)

	wav, _ := media.NewItem("/music/a.wav")
	mp4, _ := media.NewItem("/video/b.mp4")
	if _, err := r.Open(context.Background(), wav); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Open(context.Background(), mp4); err != nil {
		t.Fatal(err)
	}
	if len(native.Handles()) != 1 || native.LastHandle().Item != wav {
		t.Errorf("expected wav routed to the first backend, got %v", native.Handles())
	}
	if len(fallback.Handles()) != 1 || fallback.LastHandle().Item != mp4 {
		t.Errorf("expected mp4 routed to the fallback, got %v", fallback.Handles())
	}

	r.Destroy()
	if !native.destroyed || !fallback.destroyed {
		t.Error("expected Destroy to reach every backend")
	}
}

func TestRouter_NoBackend(t *testing.T) {
	r := NewRouter(refuseAll{NewMock()})
	item, _ := media.NewItem("/music/a.mp3")
	if r.CanOpen(item) {
		t.Error("expected CanOpen false")
	}
	if _, err := r.Open(context.Background(), item); !errors.Is(err, ErrUnsupportedOrCorrupt) {
		t.Errorf("expected ErrUnsupportedOrCorrupt, got %v", err)
	}
}
