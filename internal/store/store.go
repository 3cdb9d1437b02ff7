// Package store is the data-access layer: per-entity repositories over
// Postgres composed from a TTL cache in front of reads and a retry executor
// around every store round-trip, plus the authorization resolver and the
// identity reconciler that share the same cache-invalidation contract.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/sync/singleflight"

	"github.com/planora/planora/internal/cache"
	"github.com/planora/planora/internal/retry"
)

// Querier is the subset of pgx query execution shared by *pgxpool.Pool and
// pgx.Tx. Repository functions take it so they run identically inside and
// outside transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is the connection surface the store needs from pgxpool.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Observer receives store telemetry. Implementations must be safe for
// concurrent use. Declared here so the store does not import the metrics
// package directly.
type Observer interface {
	CacheHit(family string)
	CacheMiss(family string)
	Reconciliation(outcome string)
}

// CacheTTLs configures the staleness tolerance per entity family. Families
// differ: user profiles tolerate minutes, per-event task lists should feel
// close to real time.
type CacheTTLs struct {
	Users        time.Duration
	Events       time.Duration
	Tasks        time.Duration
	Documents    time.Duration
	Participants time.Duration
}

// DefaultCacheTTLs returns the baseline staleness budget per family.
func DefaultCacheTTLs() CacheTTLs {
	return CacheTTLs{
		Users:        5 * time.Minute,
		Events:       time.Minute,
		Tasks:        30 * time.Second,
		Documents:    2 * time.Minute,
		Participants: time.Minute,
	}
}

// Caches bundles one cache instance per entity family. The bundle is built
// once at startup and injected into the store; nothing here is global.
type Caches struct {
	Users        *cache.Cache[any]
	Events       *cache.Cache[any]
	Tasks        *cache.Cache[any]
	Documents    *cache.Cache[any]
	Participants *cache.Cache[any]
}

// NewCaches creates the per-family caches. Zero TTLs fall back to defaults.
func NewCaches(ttls CacheTTLs) *Caches {
	def := DefaultCacheTTLs()
	if ttls.Users <= 0 {
		ttls.Users = def.Users
	}
	if ttls.Events <= 0 {
		ttls.Events = def.Events
	}
	if ttls.Tasks <= 0 {
		ttls.Tasks = def.Tasks
	}
	if ttls.Documents <= 0 {
		ttls.Documents = def.Documents
	}
	if ttls.Participants <= 0 {
		ttls.Participants = def.Participants
	}
	return &Caches{
		Users:        cache.New[any](ttls.Users),
		Events:       cache.New[any](ttls.Events),
		Tasks:        cache.New[any](ttls.Tasks),
		Documents:    cache.New[any](ttls.Documents),
		Participants: cache.New[any](ttls.Participants),
	}
}

// Store provides database operations for all planora entities.
type Store struct {
	db       DB
	retry    *retry.Executor
	caches   *Caches
	observer Observer

	// reconciling serializes identity merges per (oldID, newID) pair.
	reconciling singleflight.Group
}

// New creates a Store. observer may be nil.
func New(db DB, exec *retry.Executor, caches *Caches, observer Observer) *Store {
	if exec == nil {
		exec = retry.New(retry.DefaultMaxRetries, retry.DefaultDelay)
	}
	if caches == nil {
		caches = NewCaches(CacheTTLs{})
	}
	return &Store{
		db:       db,
		retry:    exec,
		caches:   caches,
		observer: observer,
	}
}

// Caches exposes the cache bundle, mainly for tests and diagnostics.
func (s *Store) Caches() *Caches { return s.caches }

func (s *Store) cacheHit(family string) {
	if s.observer != nil {
		s.observer.CacheHit(family)
	}
}

func (s *Store) cacheMiss(family string) {
	if s.observer != nil {
		s.observer.CacheMiss(family)
	}
}

// cachedRead is the read path shared by every cache-backed accessor: cache
// hit returns immediately; a miss executes query through the retry executor
// and populates the cache on success. Absent results are cached too — every
// write invalidates the keys it could have affected, so a cached "not found"
// is only ever as stale as the family TTL allows.
func cachedRead[T any](ctx context.Context, s *Store, c *cache.Cache[any], family, key string, query func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if cached, ok := v.(T); ok {
			s.cacheHit(family)
			return cached, nil
		}
	}
	s.cacheMiss(family)

	var out T
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var opErr error
		out, opErr = query(ctx)
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, out)
	return out, nil
}

// execTx runs fn inside a transaction. The rollback in the deferred path is a
// no-op once the commit has succeeded.
func (s *Store) execTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		// Rollback must run even when ctx is already cancelled.
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Cache key conventions. Each family partitions its key space by scope
// prefix so one mutation can invalidate every derived view of an entity.
func idKey(id string) string           { return "id:" + id }
func emailKey(email string) string     { return "email:" + email }
func byUserKey(userID string) string   { return "user:" + userID }
func byEventKey(eventID string) string { return "event:" + eventID }
func byTaskKey(taskID string) string   { return "task:" + taskID }
func memberKey(eventID, userID string) string {
	return "member:" + eventID + ":" + userID
}
