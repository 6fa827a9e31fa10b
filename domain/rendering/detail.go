package rendering

import (
	"sync"
	"time"
)

// DetailTier is the level of detail nodes should be drawn at
type DetailTier int

const (
	// DetailFull draws node interiors, titles and decorations
	DetailFull DetailTier = iota
	// DetailTitleOnly draws the node frame and title, skipping content
	DetailTitleOnly
	// DetailHidden draws only a placeholder rectangle
	DetailHidden
)

// Zoom thresholds below which detail drops a tier
const (
	titleOnlyScale = 0.5
	hiddenScale    = 0.25
)

func (t DetailTier) String() string {
	switch t {
	case DetailFull:
		return "full"
	case DetailTitleOnly:
		return "title-only"
	default:
		return "hidden"
	}
}

// DetailFor maps a zoom scale to a detail tier. While the user is
// dragging or panning the lowest tier is forced regardless of zoom, so
// frames stay cheap until the interaction ends.
func DetailFor(scale float64, interacting bool) DetailTier {
	if interacting {
		return DetailHidden
	}
	switch {
	case scale < hiddenScale:
		return DetailHidden
	case scale < titleOnlyScale:
		return DetailTitleOnly
	default:
		return DetailFull
	}
}

// Throttler rate-limits viewport recomputation during continuous pan and
// zoom input. Allow reports whether enough time has passed since the
// last permitted call.
type Throttler struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewThrottler creates a throttler with the given minimum interval
func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{interval: interval, now: time.Now}
}

// Allow reports whether a recomputation may run now
func (t *Throttler) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
