// Package status keeps the short-lived status lines shown to the player.
//
// Entries expire after a fixed lifetime (3s by default). A Board is safe for
// concurrent use: the session loop posts while renderers read.
package status

import (
	"fmt"
	"sync"
	"time"
)

// Level is the severity of a status line.
type Level string

const (
	Success Level = "success"
	Info    Level = "info"
	Warning Level = "warning"
	Error   Level = "error"
)

// DefaultTTL is how long an entry stays visible.
const DefaultTTL = 3 * time.Second

// Entry is one status line.
type Entry struct {
	Level   Level     `json:"level"`
	Text    string    `json:"text"`
	Posted  time.Time `json:"posted"`
	Expires time.Time `json:"expires"`
}

// Board holds the visible status lines, newest last.
type Board struct {
	ttl   time.Duration
	max   int
	clock func() time.Time

	mu      sync.Mutex
	entries []Entry
}

// Option configures a Board.
type Option func(*Board)

// WithTTL sets the entry lifetime.
func WithTTL(d time.Duration) Option {
	return func(b *Board) {
		b.ttl = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Board) {
		b.clock = now
	}
}

// NewBoard creates an empty board.
func NewBoard(opts ...Option) *Board {
	b := &Board{ttl: DefaultTTL, max: 8, clock: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Post adds a status line. Posting on a nil Board does nothing.
func (b *Board) Post(level Level, text string) {
	if b == nil || text == "" {
		return
	}
	now := b.clock()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneLocked(now)
	b.entries = append(b.entries, Entry{Level: level, Text: text, Posted: now, Expires: now.Add(b.ttl)})
	if len(b.entries) > b.max {
		b.entries = b.entries[len(b.entries)-b.max:]
	}
}

// Postf formats and posts a status line.
func (b *Board) Postf(level Level, format string, args ...any) {
	b.Post(level, fmt.Sprintf(format, args...))
}

// Active returns the unexpired entries, oldest first.
func (b *Board) Active() []Entry {
	if b == nil {
		return nil
	}
	now := b.clock()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneLocked(now)
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Latest returns the newest unexpired entry.
func (b *Board) Latest() (Entry, bool) {
	active := b.Active()
	if len(active) == 0 {
		return Entry{}, false
	}
	return active[len(active)-1], true
}

func (b *Board) pruneLocked(now time.Time) {
	i := 0
	for _, e := range b.entries {
		if now.Before(e.Expires) {
			b.entries[i] = e
			i++
		}
	}
	clear(b.entries[i:])
	b.entries = b.entries[:i]
}
