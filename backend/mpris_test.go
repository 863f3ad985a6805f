package backend

import (
	"strings"
	"testing"
	"time"
)

func TestTrackObjectPath(t *testing.T) {
	if p := trackObjectPath(PlayerStatus{}); p != noTrackObjectPath {
		t.Errorf("expected NoTrack path, got %s", p)
	}
	a := trackObjectPath(PlayerStatus{Path: "/music/a.mp3"})
	b := trackObjectPath(PlayerStatus{Path: "/music/b.mp3"})
	if !strings.HasPrefix(a, dbusTrackIDPrefix) || a == b {
		t.Errorf("unexpected track paths %s %s", a, b)
	}
	// D-Bus object path elements may only contain [A-Za-z0-9_]
	for _, r := range strings.TrimPrefix(a, dbusTrackIDPrefix) {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			t.Fatalf("invalid character %q in %s", r, a)
		}
	}
}

func TestMicrosecondConversion(t *testing.T) {
	d := 90*time.Second + 500*time.Millisecond
	us := durationToMicroseconds(d)
	if us != 90_500_000 {
		t.Errorf("expected 90500000us, got %d", us)
	}
	if microsecondsToDuration(us) != d {
		t.Errorf("round trip mismatch: %v", microsecondsToDuration(us))
	}
}
