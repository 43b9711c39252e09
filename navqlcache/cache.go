// Package navqlcache is an optional compiled-query cache an embedder can
// wire in front of navql.Compile. The core compiler is pure and
// stateless (spec.md §5: "the core provides content-addressed keys...
// but no built-in cache"); this package is that aid plus a ready-made
// in-process implementation, adapted from the teacher's own generic
// Cache interface.
package navqlcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"
)

// Cache is the interface for caching compiled query results. Embedders
// implement this with their preferred store (Redis, Memcached,
// in-memory); Memo below is a ready-made in-process one.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Key is the content-addressed cache key spec.md §5 describes: a
// compilation is a pure function of its source text, catalog version,
// and parameter domains, so those three together identify a cached
// result.
type Key struct {
	SourceHash     string
	CatalogVersion string
	ParamDomains   string
}

// NewKey hashes source and combines it with the caller-supplied catalog
// version tag and a stable encoding of the parameter-domain map.
func NewKey(source, catalogVersion, paramDomainsDigest string) Key {
	sum := sha256.Sum256([]byte(source))
	return Key{
		SourceHash:     hex.EncodeToString(sum[:]),
		CatalogVersion: catalogVersion,
		ParamDomains:   paramDomainsDigest,
	}
}

// String renders the key's canonical cache-lookup string.
func (k Key) String() string {
	return k.SourceHash + ":" + k.CatalogVersion + ":" + k.ParamDomains
}

// Entry is the msgpack-serialized cached payload.
type Entry struct {
	SQL          string
	Params       []any
	CompiledAt   string
	CorrelationID string
}

// Memo wraps a Cache with in-flight request deduplication: concurrent
// compiles of the same key share one underlying compile call instead of
// racing to fill the cache independently.
type Memo struct {
	backend Cache
	group   singleflight.Group
	logger  Logger
}

// Logger is the minimal structured-logging surface Memo needs, satisfied
// directly by *slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// NewMemo builds a Memo over backend, logging through logger.
func NewMemo(backend Cache, logger Logger) *Memo {
	return &Memo{backend: backend, logger: logger}
}

// Load returns the cached Entry for key, calling compile to produce and
// store it on a miss. Concurrent Load calls for the same key block on
// the same in-flight compile rather than each invoking compile.
func (m *Memo) Load(ctx context.Context, key Key, ttl time.Duration, compile func() (Entry, error)) (Entry, error) {
	correlationID := uuid.NewString()
	keyStr := key.String()

	if raw, err := m.backend.Get(ctx, keyStr); err == nil && raw != nil {
		var entry Entry
		if err := msgpack.Unmarshal(raw, &entry); err == nil {
			m.logger.Info("navqlcache: hit", "key", keyStr, "correlation_id", correlationID)
			return entry, nil
		}
		m.logger.Warn("navqlcache: corrupt entry, recompiling", "key", keyStr, "correlation_id", correlationID)
	}

	v, err, shared := m.group.Do(keyStr, func() (any, error) {
		entry, err := compile()
		if err != nil {
			return Entry{}, err
		}
		entry.CorrelationID = correlationID
		raw, err := msgpack.Marshal(entry)
		if err != nil {
			return Entry{}, fmt.Errorf("navqlcache: marshal entry: %w", err)
		}
		if err := m.backend.Set(ctx, keyStr, raw, ttl); err != nil {
			m.logger.Warn("navqlcache: set failed", "key", keyStr, "err", err)
		}
		return entry, nil
	})
	if err != nil {
		return Entry{}, err
	}
	entry := v.(Entry)
	if shared {
		m.logger.Info("navqlcache: coalesced concurrent compile", "key", keyStr, "correlation_id", correlationID)
	}
	return entry, nil
}
