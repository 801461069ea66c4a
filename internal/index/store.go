package index

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/phuslu/log"

	"github.com/slidesage/slidesage/internal/blob"
)

// Merge outcomes that callers route on.
var (
	// ErrNotIndexed means the session has no index artifact yet. A distinct
	// condition so callers can poll-and-retry instead of treating it as fatal.
	ErrNotIndexed = errors.New("index: session not indexed yet")

	// ErrGone means the merge target's session namespace no longer exists;
	// in-flight merges must fail closed rather than recreate it.
	ErrGone = errors.New("index: merge target no longer exists")

	// ErrConflictExhausted means the optimistic merge lost the write race on
	// every attempt. Transient: the event's redelivery supplies a fresh try.
	ErrConflictExhausted = errors.New("index: merge retries exhausted")
)

const (
	defaultMaxAttempts = 5
	defaultBackoff     = 25 * time.Millisecond
)

// Store reads and merges per-session index artifacts on top of the object
// store. The artifact has no atomic append, so every writer goes through an
// optimistic read-version / apply / conditional-write loop.
type Store struct {
	blobs       blob.Store
	maxAttempts int
	backoff     time.Duration
}

// NewStore creates an index store with the default retry budget.
func NewStore(blobs blob.Store) *Store {
	return &Store{
		blobs:       blobs,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
	}
}

// Load reads the artifact at key, returning the decoded index and the
// version token to use for a subsequent conditional write.
func (s *Store) Load(ctx context.Context, key string) (*Index, int64, error) {
	data, version, err := s.blobs.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, 0, ErrNotIndexed
	}
	if err != nil {
		return nil, 0, fmt.Errorf("loading index %s: %w", key, err)
	}
	ix, err := Decode(data)
	if err != nil {
		return nil, 0, err
	}
	return ix, version, nil
}

// Merge applies a mutation to the artifact at key under optimistic
// concurrency control: read the current index and version token, apply,
// bump the generation, and attempt a conditional write. On conflict the
// now-current index is re-read and the mutation re-applied, bounded by the
// retry budget with jittered backoff. An absent artifact starts from an
// empty index guarded by "must not exist".
//
// guardKey, when non-empty, must exist for the merge to proceed; this is
// how merges into a deleted session namespace fail closed.
func (s *Store) Merge(ctx context.Context, key, guardKey string, apply func(*Index) error) (*Index, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if guardKey != "" {
			ok, err := s.blobs.Exists(ctx, guardKey)
			if err != nil {
				return nil, fmt.Errorf("checking merge guard %s: %w", guardKey, err)
			}
			if !ok {
				return nil, ErrGone
			}
		}

		ix, version, err := s.Load(ctx, key)
		if errors.Is(err, ErrNotIndexed) {
			ix, version = New(0), 0
		} else if err != nil {
			return nil, err
		}

		if err := apply(ix); err != nil {
			return nil, err
		}
		ix.Generation++

		data, err := ix.Encode()
		if err != nil {
			return nil, err
		}

		_, err = s.blobs.PutIf(ctx, key, data, version)
		if err == nil {
			return ix, nil
		}
		if !errors.Is(err, blob.ErrVersionConflict) {
			return nil, fmt.Errorf("writing index %s: %w", key, err)
		}

		log.Debug().Str("key", key).Int("attempt", attempt).Msg("index merge conflict, retrying")
		if attempt < s.maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.jitteredBackoff(attempt)):
			}
		}
	}
	return nil, fmt.Errorf("%w after %d attempts for %s", ErrConflictExhausted, s.maxAttempts, key)
}

func (s *Store) jitteredBackoff(attempt int) time.Duration {
	base := s.backoff * time.Duration(attempt)
	return base/2 + rand.N(base)
}
