// Package draft persists in-progress sessions as JSON files guarded by file
// locks, so concurrent fills of the same session never interleave writes.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/goliatone/go-batchform/pkg/submit"
)

// ErrNotFound is returned when no draft exists for a session.
var ErrNotFound = errors.New("draft: not found")

// ErrLockTimeout is returned when the draft lock cannot be acquired in time.
var ErrLockTimeout = errors.New("draft: timeout waiting for lock")

const (
	defaultLockTimeout = 5 * time.Second
	lockRetry          = 50 * time.Millisecond
	fileExt            = ".json"
)

// Draft is the stored form of a session.
type Draft struct {
	SessionID string         `json:"session_id"`
	SavedAt   time.Time      `json:"saved_at"`
	Values    map[string]any `json:"values"`
}

// Store keeps one file per session under Dir.
type Store struct {
	dir         string
	lockTimeout time.Duration
	now         func() time.Time
}

var _ submit.Submitter = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout bounds how long Save and Load wait for the lock.
func WithLockTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.lockTimeout = timeout
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns a store rooted at dir.
func NewStore(dir string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("draft: directory is required")
	}
	s := &Store{dir: dir, lockTimeout: defaultLockTimeout, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// Submit stores draft payloads. Final payloads are rejected so a store cannot
// be mistaken for the outbound endpoint.
func (s *Store) Submit(ctx context.Context, payload submit.Payload) error {
	if payload.Kind != submit.KindDraft {
		return fmt.Errorf("draft: cannot store %s payload", payload.Kind)
	}
	return s.Save(ctx, payload.SessionID, payload.Values)
}

// Save writes values for sessionID, replacing any earlier draft.
func (s *Store) Save(ctx context.Context, sessionID string, values map[string]any) error {
	path, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("draft: create directory: %w", err)
	}

	lock, err := s.lock(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.Unlock()
	}()

	if values == nil {
		values = map[string]any{}
	}
	data, err := json.MarshalIndent(Draft{SessionID: sessionID, SavedAt: s.now().UTC(), Values: values}, "", "  ")
	if err != nil {
		return fmt.Errorf("draft: encode: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("draft: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("draft: replace: %w", err)
	}
	return nil
}

// Load reads the draft of sessionID.
func (s *Store) Load(ctx context.Context, sessionID string) (Draft, error) {
	path, err := s.path(sessionID)
	if err != nil {
		return Draft{}, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Draft{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}

	lock, err := s.lock(ctx, path)
	if err != nil {
		return Draft{}, err
	}
	defer func() {
		_ = lock.Unlock()
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Draft{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}
		return Draft{}, fmt.Errorf("draft: read: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, fmt.Errorf("draft: decode %s: %w", sessionID, err)
	}
	return d, nil
}

// Delete removes the draft of sessionID. Missing drafts are not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	path, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(s.dir); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	lock, err := s.lock(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(path + ".lock")
	}()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("draft: delete: %w", err)
	}
	return nil
}

// List returns the stored session ids in sorted order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("draft: list: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) path(sessionID string) (string, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("draft: invalid session id %q", sessionID)
	}
	return filepath.Join(s.dir, id+fileExt), nil
}

func (s *Store) lock(ctx context.Context, path string) (*flock.Flock, error) {
	lock := flock.New(path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(lockCtx, lockRetry)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("draft: acquire lock: %w", err)
	}
	if !locked {
		return nil, ErrLockTimeout
	}
	return lock, nil
}
