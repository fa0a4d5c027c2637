// Package diffstore is a content-addressed cache of diffs: a Pebble-backed
// persistent store fronted by an LRU, with an xsync map deduplicating
// concurrent Combine calls for the same pair. It models how a
// format-specific wrapper (the PSD-diff/ZIP-diff containers spec.md's
// GLOSSARY mentions) would avoid recomputing a Combine chain it has
// already paid for once.
//
// Grounded on the teacher's index_manager.go: classCache/hashIndexCache
// are lru.Cache fronting pebble.Reader.Get, keyed by xxhash.Sum64 of the
// indexed value.
package diffstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Reeywhaar/bin-diff/bindiff"
	"github.com/Reeywhaar/bin-diff/bindifflog"
	"github.com/cespare/xxhash"
	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/puzpuzpuz/xsync/v3"
)

// ErrNotFound is returned by Get when no diff is stored under the
// requested key.
var ErrNotFound = errors.New("diffstore: not found")

// Options configures a Store. The zero value is usable: an empty Dir
// opens an on-disk Pebble database in the current directory, with a
// modest front cache, mirroring the teacher's Options{RelaxedOrder,
// MaxLogLen} zero-value-is-usable style.
type Options struct {
	// Dir is the Pebble database directory.
	Dir string
	// FrontCacheSize is the LRU entry count fronting Pebble. Defaults
	// to 1024 when zero.
	FrontCacheSize int
	// Logger receives store activity logs. A nil Logger is replaced by
	// a discard logger.
	Logger bindifflog.Logger
}

func (o Options) frontCacheSize() int {
	if o.FrontCacheSize > 0 {
		return o.FrontCacheSize
	}
	return 1024
}

// Store is a content-addressed, persistent cache of encoded diffs, with
// an in-memory front cache and in-flight Combine deduplication.
type Store struct {
	db       *pebble.DB
	front    *lru.Cache[uint64, bindiff.Diff]
	inflight *xsync.MapOf[uint64, chan combineResult]
	log      bindifflog.Logger
}

type combineResult struct {
	diff bindiff.Diff
	err  error
}

// Open opens (creating if absent) the Pebble database at opts.Dir.
func Open(opts Options) (*Store, error) {
	db, err := pebble.Open(opts.Dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("diffstore: opening pebble: %s", err)
	}
	front, err := lru.New[uint64, bindiff.Diff](opts.frontCacheSize())
	if err != nil {
		return nil, fmt.Errorf("diffstore: building front cache: %s", err)
	}
	return &Store{
		db:       db,
		front:    front,
		inflight: xsync.NewMapOf[uint64, chan combineResult](),
		log:      bindifflog.Or(opts.Logger),
	}, nil
}

// Close releases the underlying Pebble handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Hash returns the content-address of a diff: the key Put stores it
// under and Get retrieves it by.
func Hash(d bindiff.Diff) uint64 {
	return xxhash.Sum64(d.Bytes())
}

func storeKey(hash uint64) []byte {
	key := []byte{'D'}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], hash)
	return append(key, buf[:]...)
}

// Put stores d under its content hash, returning the hash for later
// Get/CombineCached lookups.
func (s *Store) Put(d bindiff.Diff) (uint64, error) {
	hash := Hash(d)
	s.front.Add(hash, d)
	if err := s.db.Set(storeKey(hash), d.Bytes(), pebble.Sync); err != nil {
		return 0, fmt.Errorf("diffstore: writing diff: %s", err)
	}
	return hash, nil
}

// Get retrieves the diff stored under hash, checking the front cache
// before falling through to Pebble.
func (s *Store) Get(hash uint64) (bindiff.Diff, error) {
	if d, ok := s.front.Get(hash); ok {
		return d, nil
	}
	raw, closer, err := s.db.Get(storeKey(hash))
	if err == pebble.ErrNotFound {
		return bindiff.Diff{}, ErrNotFound
	}
	if err != nil {
		return bindiff.Diff{}, fmt.Errorf("diffstore: reading diff: %s", err)
	}
	defer closer.Close()
	d, err := bindiff.ReadDiff(bytes.NewReader(raw))
	if err != nil {
		return bindiff.Diff{}, fmt.Errorf("diffstore: decoding stored diff: %s", err)
	}
	s.front.Add(hash, d)
	return d, nil
}

// combineKey mixes two diff hashes into the cache key for their
// Combine result. Order matters: Combine is not commutative.
func combineKey(h1, h2 uint64) uint64 {
	return xxhash.Sum64(append(uint64Bytes(h1), uint64Bytes(h2)...))
}

func uint64Bytes(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// CombineCached returns d1.Combine(d2), computing it at most once per
// distinct pair: concurrent callers for the same pair share the single
// in-flight computation via the xsync map, and the result is cached
// under combineKey for future calls regardless of concurrency.
func (s *Store) CombineCached(ctx context.Context, d1, d2 bindiff.Diff) (bindiff.Diff, error) {
	key := combineKey(Hash(d1), Hash(d2))
	reqID := uuid.Must(uuid.NewRandom()).String()
	ctx = bindifflog.WithDefaultArgs(ctx, "request_id", reqID)

	if cached, err := s.Get(key); err == nil {
		s.log.DebugCtx(ctx, "combine cache hit")
		return cached, nil
	} else if !errors.Is(err, ErrNotFound) {
		return bindiff.Diff{}, err
	}

	wait := make(chan combineResult, 1)
	actual, loaded := s.inflight.LoadOrStore(key, wait)
	if loaded {
		s.log.DebugCtx(ctx, "awaiting in-flight combine")
		res := <-actual
		// Hand the result on to the next waiter of the same computation.
		actual <- res
		return res.diff, res.err
	}

	s.log.InfoCtx(ctx, "computing combine")
	result, err := d1.Combine(d2)
	if err == nil {
		s.front.Add(key, result)
		if setErr := s.db.Set(storeKey(key), result.Bytes(), pebble.Sync); setErr != nil {
			err = fmt.Errorf("diffstore: writing diff: %s", setErr)
		}
	}
	s.inflight.Delete(key)
	wait <- combineResult{diff: result, err: err}
	if err != nil {
		return bindiff.Diff{}, err
	}
	return result, nil
}
