package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"github.com/slidesage/slidesage/internal/blob"
	"github.com/slidesage/slidesage/internal/embeddings"
	"github.com/slidesage/slidesage/internal/index"
	"github.com/slidesage/slidesage/internal/session"
)

// ErrImageMissing indicates the page image referenced by an event is not
// readable yet. A recoverable precondition: redelivery retries it once the
// renderer's write lands.
var ErrImageMissing = errors.New("ingest: page image not readable")

// PageCreated identifies one newly rendered page image. Delivery is
// at-least-once, so handling must be idempotent.
type PageCreated struct {
	SessionID  string
	DocumentID string
	PageNumber int
	ImageKey   string
}

// Builder turns page-created events into embedding records and merges them
// into the session's index. One invocation per event; no state is held
// between invocations beyond what lives in the object store.
type Builder struct {
	blobs        blob.Store
	indexes      *index.Store
	embedder     embeddings.Embedder
	embedTimeout time.Duration
}

// NewBuilder creates an index builder. embedTimeout bounds each embedding
// call so an invocation can never block indefinitely.
func NewBuilder(blobs blob.Store, indexes *index.Store, embedder embeddings.Embedder, embedTimeout time.Duration) *Builder {
	if embedTimeout <= 0 {
		embedTimeout = 30 * time.Second
	}
	return &Builder{
		blobs:        blobs,
		indexes:      indexes,
		embedder:     embedder,
		embedTimeout: embedTimeout,
	}
}

// HandlePageCreated embeds the page image and merges the record into the
// session index under optimistic concurrency control. Embedding failures
// are not retried here; the event's redelivery supplies the fresh attempt,
// and a failed page never corrupts other pages' entries.
func (b *Builder) HandlePageCreated(ctx context.Context, ev PageCreated) error {
	img, _, err := b.blobs.Get(ctx, ev.ImageKey)
	if errors.Is(err, blob.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrImageMissing, ev.ImageKey)
	}
	if err != nil {
		return fmt.Errorf("reading page image %s: %w", ev.ImageKey, err)
	}

	embedCtx, cancel := context.WithTimeout(ctx, b.embedTimeout)
	defer cancel()
	vec, err := b.embedder.EmbedImage(embedCtx, img)
	if err != nil {
		return fmt.Errorf("embedding %s page %d: %w", ev.DocumentID, ev.PageNumber, err)
	}
	index.Normalize(vec)

	rec := index.Record{
		DocumentID: ev.DocumentID,
		PageNumber: ev.PageNumber,
		SourceKey:  ev.ImageKey,
		Vector:     vec,
	}
	_, err = b.indexes.Merge(ctx, session.IndexKey(ev.SessionID), session.MarkerKey(ev.SessionID), func(ix *index.Index) error {
		return ix.Upsert(rec)
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("session", ev.SessionID).
		Str("document", ev.DocumentID).
		Int("page", ev.PageNumber).
		Msg("page merged into index")
	return nil
}
