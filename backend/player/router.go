package player

import (
	"context"
	"fmt"

	"github.com/dweymouth/mediadeck/backend/media"
)

// Router is a Backend which delegates each Open to the first of its
// backends that reports it can open the item. Backends which do not
// implement CanOpener are assumed to open anything.
type Router struct {
	backends []Backend
}

func NewRouter(backends ...Backend) *Router {
	return &Router{backends: backends}
}

func (r *Router) Open(ctx context.Context, item media.Item) (Handle, error) {
	for _, b := range r.backends {
		if c, ok := b.(CanOpener); ok && !c.CanOpen(item) {
			continue
		}
		return b.Open(ctx, item)
	}
	return nil, fmt.Errorf("no backend for %s: %w", item.Name(), ErrUnsupportedOrCorrupt)
}

func (r *Router) CanOpen(item media.Item) bool {
	for _, b := range r.backends {
		if c, ok := b.(CanOpener); !ok || c.CanOpen(item) {
			return true
		}
	}
	return false
}

func (r *Router) Destroy() {
	for _, b := range r.backends {
		b.Destroy()
	}
}
