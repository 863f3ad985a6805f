package media

import (
	"slices"
	"strings"

	"github.com/charlievieth/strcase"
	"github.com/deluan/sanitize"
)

// Result of a Playlist.Add call.
type AddResult struct {
	Added   int
	Skipped int // missing, unsupported or (if rejected) duplicate paths

	// true iff the playlist was empty before the call and the cursor
	// now points at the first added item
	Selected bool
}

// Playlist is an ordered list of media items plus a cursor.
// The cursor is always -1 (no current item) or a valid index.
//
// Playlist is not safe for concurrent use; it is owned by the Coordinator
// and only touched from the presentation context.
type Playlist struct {
	items            []Item
	current          int
	rejectDuplicates bool
}

func NewPlaylist(rejectDuplicates bool) *Playlist {
	return &Playlist{current: -1, rejectDuplicates: rejectDuplicates}
}

// Add appends an item for each path that exists and has a supported extension.
// Other paths are skipped and counted in the result.
func (p *Playlist) Add(paths []string) AddResult {
	var res AddResult
	wasEmpty := len(p.items) == 0
	for _, path := range paths {
		item, err := NewItem(path)
		if err != nil || !item.Exists() {
			res.Skipped++
			continue
		}
		if p.rejectDuplicates && p.IndexOf(item.Path) >= 0 {
			res.Skipped++
			continue
		}
		p.items = append(p.items, item)
		res.Added++
	}
	if wasEmpty && res.Added > 0 {
		p.current = 0
		res.Selected = true
	}
	return res
}

// RemoveAt removes the item at index. If it was the current item the cursor
// is reset to -1 and removedCurrent is true. Removing an item before the
// cursor shifts the cursor so it keeps pointing at the same item.
func (p *Playlist) RemoveAt(index int) (removedCurrent bool, err error) {
	if index < 0 || index >= len(p.items) {
		return false, ErrIndexOutOfRange
	}
	p.items = slices.Delete(p.items, index, index+1)
	switch {
	case index == p.current:
		p.current = -1
		removedCurrent = true
	case index < p.current:
		p.current--
	}
	return removedCurrent, nil
}

func (p *Playlist) Clear() {
	p.items = nil
	p.current = -1
}

// NextIndex returns the index Next would move to, without moving the cursor.
func (p *Playlist) NextIndex() (int, error) {
	n := len(p.items)
	if n == 0 {
		return -1, ErrPlaylistEmpty
	}
	if p.current < 0 {
		return 0, nil
	}
	return (p.current + 1) % n, nil
}

// PreviousIndex returns the index Previous would move to, without moving the cursor.
// With no current item, the previous item is the last one.
func (p *Playlist) PreviousIndex() (int, error) {
	n := len(p.items)
	if n == 0 {
		return -1, ErrPlaylistEmpty
	}
	if p.current < 0 {
		return n - 1, nil
	}
	return (p.current - 1 + n) % n, nil
}

// Next advances the cursor with wraparound.
func (p *Playlist) Next() (int, error) {
	idx, err := p.NextIndex()
	if err == nil {
		p.current = idx
	}
	return idx, err
}

// Previous moves the cursor back with wraparound.
func (p *Playlist) Previous() (int, error) {
	idx, err := p.PreviousIndex()
	if err == nil {
		p.current = idx
	}
	return idx, err
}

// Select moves the cursor to index.
func (p *Playlist) Select(index int) error {
	if index < 0 || index >= len(p.items) {
		return ErrIndexOutOfRange
	}
	p.current = index
	return nil
}

// Current returns the item at the cursor, if any.
func (p *Playlist) Current() (Item, bool) {
	if p.current < 0 {
		return Item{}, false
	}
	return p.items[p.current], true
}

func (p *Playlist) CurrentIndex() int {
	return p.current
}

func (p *Playlist) At(index int) (Item, error) {
	if index < 0 || index >= len(p.items) {
		return Item{}, ErrIndexOutOfRange
	}
	return p.items[index], nil
}

func (p *Playlist) Len() int {
	return len(p.items)
}

// Items returns a copy of the playlist contents.
func (p *Playlist) Items() []Item {
	return slices.Clone(p.items)
}

func (p *Playlist) Names() []string {
	names := make([]string, len(p.items))
	for i, it := range p.items {
		names[i] = it.Name()
	}
	return names
}

func (p *Playlist) Paths() []string {
	paths := make([]string, len(p.items))
	for i, it := range p.items {
		paths[i] = it.Path
	}
	return paths
}

// IndexOf returns the index of the first item at path, or -1.
func (p *Playlist) IndexOf(path string) int {
	return slices.IndexFunc(p.items, func(it Item) bool {
		return it.Path == path
	})
}

// Find returns the indexes of items whose name contains every word of query,
// ignoring case and accents.
func (p *Playlist) Find(query string) []int {
	terms := strings.Fields(sanitize.Accents(query))
	if len(terms) == 0 {
		return nil
	}
	var matches []int
	for i, it := range p.items {
		if allTermsMatch(sanitize.Accents(it.Name()), terms) {
			matches = append(matches, i)
		}
	}
	return matches
}

func allTermsMatch(name string, terms []string) bool {
	for _, t := range terms {
		if !strcase.Contains(name, t) {
			return false
		}
	}
	return true
}

// NameMatches reports whether name contains every word of query,
// ignoring case and accents.
func NameMatches(name, query string) bool {
	terms := strings.Fields(sanitize.Accents(query))
	return len(terms) > 0 && allTermsMatch(sanitize.Accents(name), terms)
}
