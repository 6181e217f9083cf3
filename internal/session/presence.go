package session

import (
	"context"
	"log/slog"
	"time"

	"gametime/internal/clock"
	"gametime/internal/settings"
)

// presenceStaleAfter bounds how long a leftover marker counts as an
// active session. A session process that crashed without clearing its
// marker parks the monitor at most this long.
const presenceStaleAfter = 6 * time.Hour

// Presence reports whether any process on this machine is running a
// session, by reading the session_active_since marker the Tracker
// keeps in the settings store. The monitor consults it so a session
// started from another terminal is not treated as circumvention.
type Presence struct {
	store  *settings.Store
	clock  clock.Clock
	logger *slog.Logger
}

func NewPresence(store *settings.Store, clk clock.Clock, logger *slog.Logger) *Presence {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Presence{store: store, clock: clk, logger: logger}
}

// Active reports whether a fresh session marker exists. A storage read
// failure counts as active: a transient hiccup must not end with the
// screen locked mid-session.
func (p *Presence) Active() bool {
	value, ok, err := p.store.Get(context.Background(), settings.KeySessionActiveSince)
	if err != nil {
		p.logger.Warn("could not read the session marker", "error", err)
		return true
	}
	if !ok || value == "" {
		return false
	}

	since, err := time.Parse(time.RFC3339, value)
	if err != nil {
		p.logger.Warn("malformed session marker", "value", value)
		return false
	}
	return p.clock.Now().Sub(since) < presenceStaleAfter
}
