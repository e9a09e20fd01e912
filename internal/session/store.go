// Package session persists the logged-in identity in the client-local key-value store.
// There is at most one session per store; logging in replaces it and logging out erases it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ankitjc/prompt-polish/internal/domain"
	"github.com/ankitjc/prompt-polish/internal/kv"
)

const sessionKey = "session"

// ErrCorruptSession is returned when the stored record cannot be decoded.
var ErrCorruptSession = errors.New("session: corrupt record")

type record struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	LoggedIn   bool      `json:"logged_in"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// Store reads and writes the session record.
type Store struct {
	kv  kv.Store
	now func() time.Time
}

func NewStore(store kv.Store) *Store {
	return &Store{kv: store, now: time.Now}
}

// Login overwrites any previous session with id. The identity is stored as
// given, so Current returns exactly what was logged in.
func (s *Store) Login(ctx context.Context, id domain.Identity) error {
	if err := id.Validate(); err != nil {
		return err
	}
	rec := record{
		Name:       id.Name,
		Email:      id.Email,
		LoggedIn:   true,
		LoggedInAt: s.now().UTC(),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := s.kv.Put(ctx, sessionKey, raw); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

// Logout erases the session. It is a no-op when nobody is logged in.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.kv.Delete(ctx, sessionKey); err != nil {
		return fmt.Errorf("session: erase: %w", err)
	}
	return nil
}

// Current returns the logged-in identity, or false when there is none.
func (s *Store) Current(ctx context.Context) (domain.Identity, bool, error) {
	raw, ok, err := s.kv.Get(ctx, sessionKey)
	if err != nil {
		return domain.Identity{}, false, fmt.Errorf("session: load: %w", err)
	}
	if !ok {
		return domain.Identity{}, false, nil
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Identity{}, false, fmt.Errorf("%w: %w", ErrCorruptSession, err)
	}
	if !rec.LoggedIn || strings.TrimSpace(rec.Email) == "" {
		return domain.Identity{}, false, nil
	}
	return domain.Identity{Name: rec.Name, Email: rec.Email}, true, nil
}

// Require is Current with a missing session reported as domain.ErrNotLoggedIn.
func (s *Store) Require(ctx context.Context) (domain.Identity, error) {
	id, ok, err := s.Current(ctx)
	if err != nil {
		return domain.Identity{}, err
	}
	if !ok {
		return domain.Identity{}, domain.ErrNotLoggedIn
	}
	return id, nil
}

// Since returns the time of the current login.
func (s *Store) Since(ctx context.Context) (time.Time, bool, error) {
	raw, ok, err := s.kv.Get(ctx, sessionKey)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %w", ErrCorruptSession, err)
	}
	return rec.LoggedInAt, rec.LoggedIn, nil
}
