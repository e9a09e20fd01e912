// Package usage implements the advisory daily generation quota. Counters live in the
// client-local key-value store, one key per identity and calendar day, so clearing
// local state resets them; the gate is a UI guard, not a security boundary.
package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ankitjc/prompt-polish/internal/domain"
	"github.com/ankitjc/prompt-polish/internal/kv"
)

// DailyCeiling is the number of generations allowed per identity per day.
const DailyCeiling = 20

const (
	keyPrefix = "usage:"
	dayLayout = "2006-01-02"
)

// ErrCorruptCounter is returned when a stored counter cannot be parsed.
var ErrCorruptCounter = errors.New("usage: corrupt counter")

// Snapshot is the quota state of one identity for one day.
type Snapshot struct {
	Day       string `json:"day"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	Ceiling   int    `json:"ceiling"`
}

type Option func(*Gate)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLocation sets the timezone that defines a calendar day.
func WithLocation(loc *time.Location) Option {
	return func(g *Gate) {
		if loc != nil {
			g.loc = loc
		}
	}
}

// Gate counts generations per identity per day.
type Gate struct {
	mu      sync.Mutex
	store   kv.Store
	ceiling int
	now     func() time.Time
	loc     *time.Location
}

func NewGate(store kv.Store, opts ...Option) *Gate {
	g := &Gate{
		store:   store,
		ceiling: DailyCeiling,
		now:     time.Now,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RecordUsage adds one generation to today's counter. Stores implementing
// kv.Counter increment in place; others fall back to read and write under the
// gate's lock.
func (g *Gate) RecordUsage(ctx context.Context, id domain.Identity) error {
	key, err := g.key(id, g.today())
	if err != nil {
		return err
	}
	if c, ok := g.store.(kv.Counter); ok {
		if _, err := c.Incr(ctx, key, 1); err != nil {
			if errors.Is(err, kv.ErrNotCounter) {
				return fmt.Errorf("%w: %w", ErrCorruptCounter, err)
			}
			return fmt.Errorf("usage: record: %w", err)
		}
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	count, err := g.read(ctx, key)
	if err != nil {
		return err
	}
	if err := g.store.Put(ctx, key, []byte(strconv.Itoa(count+1))); err != nil {
		return fmt.Errorf("usage: record: %w", err)
	}
	return nil
}

// RemainingQuota returns max(0, ceiling - used) for today.
func (g *Gate) RemainingQuota(ctx context.Context, id domain.Identity) (int, error) {
	snap, err := g.Usage(ctx, id)
	if err != nil {
		return 0, err
	}
	return snap.Remaining, nil
}

// CanProceed reports whether another generation is allowed today.
func (g *Gate) CanProceed(ctx context.Context, id domain.Identity) (bool, error) {
	snap, err := g.Usage(ctx, id)
	if err != nil {
		return false, err
	}
	return snap.Used < snap.Ceiling, nil
}

// Usage returns today's snapshot for id.
func (g *Gate) Usage(ctx context.Context, id domain.Identity) (Snapshot, error) {
	day := g.today()
	key, err := g.key(id, day)
	if err != nil {
		return Snapshot{}, err
	}
	g.mu.Lock()
	count, err := g.read(ctx, key)
	g.mu.Unlock()
	if err != nil {
		return Snapshot{}, err
	}
	remaining := g.ceiling - count
	if remaining < 0 {
		remaining = 0
	}
	return Snapshot{Day: day, Used: count, Remaining: remaining, Ceiling: g.ceiling}, nil
}

// Prune deletes counters of days before today, for every identity, and returns how
// many keys were removed.
func (g *Gate) Prune(ctx context.Context) (int, error) {
	today := g.today()
	g.mu.Lock()
	defer g.mu.Unlock()
	keys, err := g.store.Keys(ctx, keyPrefix)
	if err != nil {
		return 0, fmt.Errorf("usage: list counters: %w", err)
	}
	removed := 0
	for _, key := range keys {
		idx := strings.LastIndex(key, ":")
		if idx < 0 {
			continue
		}
		day := key[idx+1:]
		if _, err := time.Parse(dayLayout, day); err != nil {
			continue
		}
		if day >= today {
			continue
		}
		if err := g.store.Delete(ctx, key); err != nil {
			return removed, fmt.Errorf("usage: prune %q: %w", key, err)
		}
		removed++
	}
	return removed, nil
}

func (g *Gate) today() string {
	return g.now().In(g.loc).Format(dayLayout)
}

func (g *Gate) key(id domain.Identity, day string) (string, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}
	email := strings.ToLower(strings.TrimSpace(id.Email))
	return keyPrefix + email + ":" + day, nil
}

func (g *Gate) read(ctx context.Context, key string) (int, error) {
	raw, ok, err := g.store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("usage: read: %w", err)
	}
	if !ok {
		return 0, nil
	}
	count, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || count < 0 {
		return 0, fmt.Errorf("%w: %q=%q", ErrCorruptCounter, key, raw)
	}
	return count, nil
}
