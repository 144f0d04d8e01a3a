// Package lock provides TTL-bounded mutual exclusion for sync runs over the shared KV store.
package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github-dashboard-sync/internal/kv"
	"github-dashboard-sync/internal/model"
)

const (
	DefaultTTL = 30 * time.Minute

	keyPrefix = "sync_lock:"

	// ClassAll guards every full and incremental run.
	ClassAll = "all"
)

// RepoLockName is the sub-lock held while a worker syncs one repository.
func RepoLockName(fullName string) string {
	return "repo:" + fullName
}

// Token proves ownership of an acquired lock.
type Token struct {
	Name  string
	Value string
}

// Meta is stored alongside the token so other callers can see who holds the lock.
type Meta struct {
	RunID string
	Type  model.SyncType
}

type holderRecord struct {
	Token      string         `json:"token"`
	RunID      string         `json:"run_id,omitempty"`
	Type       model.SyncType `json:"type,omitempty"`
	AcquiredAt time.Time      `json:"acquired_at"`
	ExpiresAt  time.Time      `json:"expires_at"`
}

type Locker struct {
	store  kv.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewLocker(store kv.Store, logger *slog.Logger) *Locker {
	return &Locker{store: store, logger: logger, now: time.Now}
}

// Acquire takes the named lock with a single set-if-absent call. A held lock
// is reported through acquired=false, not through err.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration, meta Meta) (Token, bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := l.now()
	rec := holderRecord{
		Token:      uuid.NewString(),
		RunID:      meta.RunID,
		Type:       meta.Type,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return Token{}, false, err
	}

	ok, err := l.store.SetNX(ctx, keyPrefix+name, value, ttl)
	if err != nil {
		return Token{}, false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	if !ok {
		return Token{}, false, nil
	}
	l.logger.Debug("Lock acquired", "lock", name, "ttl", ttl.String())
	return Token{Name: name, Value: string(value)}, true, nil
}

// Release deletes the lock only if tok still owns it. Releasing an expired or
// re-acquired lock is a no-op.
func (l *Locker) Release(ctx context.Context, tok Token) error {
	if tok.Name == "" {
		return nil
	}
	deleted, err := l.store.DelIfEqual(ctx, keyPrefix+tok.Name, []byte(tok.Value))
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", tok.Name, err)
	}
	if !deleted {
		l.logger.Warn("Lock was no longer owned at release", "lock", tok.Name)
	}
	return nil
}

// Holder returns the current holder of name, if any.
func (l *Locker) Holder(ctx context.Context, name string) (model.LockHolder, bool, error) {
	raw, err := l.store.Get(ctx, keyPrefix+name)
	if errors.Is(err, kv.ErrNotFound) {
		return model.LockHolder{}, false, nil
	}
	if err != nil {
		return model.LockHolder{}, false, err
	}
	return decodeHolder(name, raw), true, nil
}

// Held lists every lock currently held, class and repository locks alike.
func (l *Locker) Held(ctx context.Context) ([]model.LockHolder, error) {
	keys, err := l.store.Keys(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	holders := make([]model.LockHolder, 0, len(keys))
	for _, key := range keys {
		name := strings.TrimPrefix(key, keyPrefix)
		h, ok, err := l.Holder(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			holders = append(holders, h)
		}
	}
	return holders, nil
}

func decodeHolder(name string, raw []byte) model.LockHolder {
	var rec holderRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return model.LockHolder{Name: name}
	}
	return model.LockHolder{
		Name:       name,
		RunID:      rec.RunID,
		Type:       rec.Type,
		AcquiredAt: rec.AcquiredAt,
		ExpiresAt:  rec.ExpiresAt,
	}
}
