package media

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/charlievieth/strcase"
)

var (
	ErrNotFound        = errors.New("file not found")
	ErrUnsupported     = errors.New("unsupported file type")
	ErrIndexOutOfRange = errors.New("playlist index out of range")
	ErrPlaylistEmpty   = errors.New("playlist empty")
)

// The kind of media an Item refers to (KindAudio, KindVideo).
type Kind int

const (
	KindAudio Kind = iota
	KindVideo
)

func (k Kind) String() string {
	if k == KindVideo {
		return "video"
	}
	return "audio"
}

var (
	AudioExtensions = []string{".mp3", ".wav", ".aac", ".m4a"}
	VideoExtensions = []string{".mp4", ".avi", ".mkv", ".mov"}
)

// Item is a resolved media file location plus its kind,
// which is derived once from the file extension.
// Items are immutable and compare equal by location.
type Item struct {
	Path string
	Kind Kind
}

// NewItem resolves path to an absolute location and determines its kind.
// It does not check that the file exists.
func NewItem(path string) (Item, error) {
	kind, ok := KindForPath(path)
	if !ok {
		return Item{}, ErrUnsupported
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Item{}, err
	}
	return Item{Path: abs, Kind: kind}, nil
}

// KindForPath returns the media kind for the file extension of path
// (compared case-insensitively), or false if the extension is unsupported.
func KindForPath(path string) (Kind, bool) {
	for _, ext := range AudioExtensions {
		if strcase.HasSuffix(path, ext) {
			return KindAudio, true
		}
	}
	for _, ext := range VideoExtensions {
		if strcase.HasSuffix(path, ext) {
			return KindVideo, true
		}
	}
	return KindAudio, false
}

// HasExtension reports whether path ends in ext, ignoring case.
func HasExtension(path, ext string) bool {
	return strcase.HasSuffix(path, ext)
}

func IsSupported(path string) bool {
	_, ok := KindForPath(path)
	return ok
}

// Name is the display name of the item (its base file name).
func (i Item) Name() string {
	if i.Path == "" {
		return ""
	}
	return filepath.Base(i.Path)
}

func (i Item) IsVideo() bool {
	return i.Kind == KindVideo
}

func (i Item) IsZero() bool {
	return i.Path == ""
}

// Exists reports whether the item's backing file is still present on disk.
func (i Item) Exists() bool {
	return Exists(i.Path)
}

func Exists(path string) bool {
	s, err := os.Stat(path)
	return err == nil && !s.IsDir()
}
