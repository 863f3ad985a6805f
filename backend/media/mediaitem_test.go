package media

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestKindForPath(t *testing.T) {
	for _, tt := range []struct {
		path string
		kind Kind
		ok   bool
	}{
		{"song.mp3", KindAudio, true},
		{"SONG.MP3", KindAudio, true},
		{"/a/b/track.Wav", KindAudio, true},
		{"x.aac", KindAudio, true},
		{"x.m4a", KindAudio, true},
		{"movie.mp4", KindVideo, true},
		{"movie.MKV", KindVideo, true},
		{"clip.avi", KindVideo, true},
		{"clip.mov", KindVideo, true},
		{"notes.txt", KindAudio, false},
		{"mp3", KindAudio, false},
		{"", KindAudio, false},
	} {
		kind, ok := KindForPath(tt.path)
		if ok != tt.ok || (ok && kind != tt.kind) {
			t.Errorf("KindForPath(%q) = %v, %v; want %v, %v", tt.path, kind, ok, tt.kind, tt.ok)
		}
	}
}

func TestNewItem(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "Track One.mp3")
	item, err := NewItem(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !filepath.IsAbs(item.Path) {
		t.Errorf("expected absolute path, got %q", item.Path)
	}
	if item.Name() != "Track One.mp3" {
		t.Errorf("unexpected name %q", item.Name())
	}
	if item.Exists() {
		t.Error("item should not exist before the file is created")
	}
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !item.Exists() {
		t.Error("item should exist after the file is created")
	}

	if _, err := NewItem(filepath.Join(dir, "readme.md")); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}

	v, _ := NewItem("video.mov")
	if !v.IsVideo() || v.Kind.String() != "video" {
		t.Errorf("expected video item, got %v", v.Kind)
	}
}

func TestExists_Directory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "folder.mp3")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if Exists(dir) {
		t.Error("a directory should not count as an existing media file")
	}
}
