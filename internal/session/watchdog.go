package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// State is the session state tracked by the Watchdog
type State int

const (
	// Anonymous means no token is configured
	Anonymous State = iota
	// Active means the token is present and not expired
	Active
	// Stale means a suspend/resume was detected; data shown may be outdated
	// and must be reloaded before MarkFresh
	Stale
	// Expired means the token expired or could not be read
	Expired
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Active:
		return "active"
	case Stale:
		return "stale"
	case Expired:
		return "expired"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	defaultInterval = 30 * time.Second
	defaultSkew     = time.Minute

	// a gap between checks larger than resumeFactor intervals means the
	// process was suspended
	resumeFactor = 3
)

// Watchdog checks the session token on a fixed interval and moves between
// states explicitly. Transitions are reported through the OnChange callback.
type Watchdog struct {
	mu       sync.Mutex
	log      *zap.Logger
	now      func() time.Time
	interval time.Duration
	skew     time.Duration
	onChange func(from, to State)

	claims   *Claims
	state    State
	lastTick time.Time

	cron *cron.Cron
}

// Option configures a Watchdog
type Option func(*Watchdog)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(w *Watchdog) { w.now = now }
}

// WithInterval sets how often the token is checked
func WithInterval(d time.Duration) Option {
	return func(w *Watchdog) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithExpirySkew treats tokens expiring within d as expired
func WithExpirySkew(d time.Duration) Option {
	return func(w *Watchdog) {
		if d >= 0 {
			w.skew = d
		}
	}
}

// OnChange registers fn to be called after every state transition
func OnChange(fn func(from, to State)) Option {
	return func(w *Watchdog) { w.onChange = fn }
}

// NewWatchdog creates a watchdog for token. An empty token starts Anonymous.
func NewWatchdog(token string, log *zap.Logger, opts ...Option) *Watchdog {
	if log == nil {
		log = zap.NewNop()
	}
	w := &Watchdog{
		log:      log,
		now:      time.Now,
		interval: defaultInterval,
		skew:     defaultSkew,
	}
	for _, opt := range opts {
		opt(w)
	}

	w.mu.Lock()
	w.state = w.evaluate(token)
	w.mu.Unlock()
	return w
}

// evaluate parses token and returns the state it puts the session in.
// Must be called with mu held.
func (w *Watchdog) evaluate(token string) State {
	w.claims = nil
	if token == "" {
		return Anonymous
	}

	claims, err := ParseToken(token)
	if err != nil {
		w.log.Warn("session token unreadable", zap.Error(err))
		return Expired
	}
	w.claims = claims
	if claims.Expired(w.now(), w.skew) {
		return Expired
	}
	return Active
}

// State returns the current state
func (w *Watchdog) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Claims returns a copy of the current token claims, or nil when there is
// no readable token.
func (w *Watchdog) Claims() *Claims {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.claims == nil {
		return nil
	}
	c := *w.claims
	return &c
}

// ExpiresIn returns the time left before the token expires. ok is false
// when there is no token or it has no expiry.
func (w *Watchdog) ExpiresIn() (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.claims == nil || w.claims.ExpiresAt.IsZero() {
		return 0, false
	}
	left := w.claims.ExpiresAt.Sub(w.now())
	if left < 0 {
		left = 0
	}
	return left, true
}

// SetToken replaces the token, e.g. after login or logout
func (w *Watchdog) SetToken(token string) State {
	w.mu.Lock()
	from := w.state
	w.state = w.evaluate(token)
	w.lastTick = time.Time{}
	to := w.state
	w.mu.Unlock()

	w.notify(from, to)
	return to
}

// Check runs one liveness check. Expiry wins over resume detection.
func (w *Watchdog) Check() State {
	w.mu.Lock()
	from := w.state
	now := w.now()

	resumed := !w.lastTick.IsZero() && now.Sub(w.lastTick) > resumeFactor*w.interval
	w.lastTick = now

	switch {
	case from == Anonymous || from == Expired:
	case w.claims.Expired(now, w.skew):
		w.state = Expired
	case resumed && from == Active:
		w.log.Info("resume detected", zap.Duration("interval", w.interval))
		w.state = Stale
	}
	to := w.state
	w.mu.Unlock()

	w.notify(from, to)
	return to
}

// MarkFresh returns a Stale session to Active once the caller has
// reloaded its data. It has no effect in any other state.
func (w *Watchdog) MarkFresh() State {
	w.mu.Lock()
	from := w.state
	if from == Stale {
		w.state = Active
	}
	to := w.state
	w.mu.Unlock()

	w.notify(from, to)
	return to
}

func (w *Watchdog) notify(from, to State) {
	if from == to {
		return
	}
	w.log.Debug("session state changed", zap.Stringer("from", from), zap.Stringer("to", to))
	if w.onChange != nil {
		w.onChange(from, to)
	}
}

// Start schedules Check every interval
func (w *Watchdog) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron != nil {
		return fmt.Errorf("watchdog already started")
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc("@every "+w.interval.String(), func() { w.Check() }); err != nil {
		return fmt.Errorf("schedule session check: %w", err)
	}
	w.lastTick = w.now()
	w.cron = c
	c.Start()
	return nil
}

// Stop halts the schedule and waits for a running check to finish
func (w *Watchdog) Stop() {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}
