package clock

import (
	"sync"
	"time"
)

// Clock allows injecting time into services and stores.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now, truncated to microseconds so
// values round-trip through Postgres and SQLite unchanged.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Fake is a manually driven clock for tests. Safe for concurrent use.
type Fake struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewFixed returns a clock that always returns the same instant.
func NewFixed(t time.Time) *Fake {
	return &Fake{now: t.UTC()}
}

// NewStepping returns a clock that moves forward by step after every Now call,
// so consecutive records get strictly increasing timestamps.
func NewStepping(start time.Time, step time.Duration) *Fake {
	return &Fake{now: start.UTC(), step: step}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now
	f.now = f.now.Add(f.step)
	return now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
