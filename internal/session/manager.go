package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"

	"github.com/slidesage/slidesage/internal/blob"
	"github.com/slidesage/slidesage/internal/index"
)

// ErrNotFound indicates the session does not exist (never created, expired,
// or deleted).
var ErrNotFound = errors.New("session: not found")

// Marker is the lifecycle record written when a session is created.
type Marker struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager owns session lifecycle: creation, cascade deletion, readiness,
// and TTL expiry. Sessions are ephemeral; every derived artifact lives
// under the session's namespace prefix.
type Manager struct {
	blobs   blob.Store
	indexes *index.Store
	ttl     time.Duration
	cron    *cron.Cron
}

// NewManager creates a session manager. ttl <= 0 disables expiry.
func NewManager(blobs blob.Store, indexes *index.Store, ttl time.Duration) *Manager {
	return &Manager{blobs: blobs, indexes: indexes, ttl: ttl}
}

// Create allocates a new session and writes its marker. Session IDs are
// UUIDv7: opaque, globally unique, and time-ordered.
func (m *Manager) Create(ctx context.Context) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	sid := id.String()

	data, err := json.Marshal(Marker{SessionID: sid, CreatedAt: time.Now().UTC()})
	if err != nil {
		return "", fmt.Errorf("encoding session marker: %w", err)
	}
	if _, err := m.blobs.PutIf(ctx, MarkerKey(sid), data, 0); err != nil {
		return "", fmt.Errorf("creating session %s: %w", sid, err)
	}

	log.Info().Str("session", sid).Msg("session created")
	return sid, nil
}

// Exists reports whether the session's marker is present.
func (m *Manager) Exists(ctx context.Context, sid string) (bool, error) {
	return m.blobs.Exists(ctx, MarkerKey(sid))
}

// Delete tears down the session by removing every artifact under its
// namespace. The marker goes first so in-flight index merges fail closed
// before the rest of the namespace disappears. Safe to call for sessions
// that never existed.
func (m *Manager) Delete(ctx context.Context, sid string) error {
	if err := m.blobs.Delete(ctx, MarkerKey(sid)); err != nil {
		return fmt.Errorf("deleting session marker %s: %w", sid, err)
	}
	if err := m.blobs.DeletePrefix(ctx, Prefix(sid)); err != nil {
		return fmt.Errorf("deleting session namespace %s: %w", sid, err)
	}
	log.Info().Str("session", sid).Msg("session deleted")
	return nil
}

// UploadDocument stores a raw upload under the session's documents/ path
// and returns the derived document ID. Rendering to page images happens
// externally; indexing starts when rendered pages arrive.
func (m *Manager) UploadDocument(ctx context.Context, sid, filename string, data []byte) (string, error) {
	ok, err := m.Exists(ctx, sid)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotFound
	}

	docID := DocumentIDFromFilename(filename)
	if docID == "" {
		return "", fmt.Errorf("cannot derive document id from filename %q", filename)
	}
	if err := m.blobs.Put(ctx, DocumentKey(sid, filename), data); err != nil {
		return "", fmt.Errorf("storing document %s: %w", filename, err)
	}
	log.Info().Str("session", sid).Str("document", docID).Int("bytes", len(data)).Msg("document uploaded")
	return docID, nil
}

// DeleteDocument cascades: page images, the raw upload, and the document's
// index records are all removed. The index mutation goes through the same
// optimistic merge protocol as page writes.
func (m *Manager) DeleteDocument(ctx context.Context, sid, docID string) error {
	ok, err := m.Exists(ctx, sid)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}

	if err := m.blobs.DeletePrefix(ctx, DocumentImagePrefix(sid, docID)); err != nil {
		return fmt.Errorf("deleting images for %s: %w", docID, err)
	}

	uploads, err := m.blobs.List(ctx, DocumentPrefix(sid))
	if err != nil {
		return fmt.Errorf("listing uploads: %w", err)
	}
	for _, key := range uploads {
		filename := strings.TrimPrefix(key, DocumentPrefix(sid))
		if DocumentIDFromFilename(filename) == docID {
			if err := m.blobs.Delete(ctx, key); err != nil {
				return fmt.Errorf("deleting upload %s: %w", key, err)
			}
		}
	}

	_, err = m.indexes.Merge(ctx, IndexKey(sid), MarkerKey(sid), func(ix *index.Index) error {
		ix.RemoveDocument(docID)
		return nil
	})
	if err != nil && !errors.Is(err, index.ErrGone) {
		return fmt.Errorf("removing %s from index: %w", docID, err)
	}

	log.Info().Str("session", sid).Str("document", docID).Msg("document deleted")
	return nil
}

// Ready is the derived readiness signal: true iff the index artifact exists
// and covers at least as many records as there are page images currently in
// the namespace. It transitions false to true as merges land and resets
// only when a new upload adds pages.
func (m *Manager) Ready(ctx context.Context, sid string) (bool, error) {
	ok, err := m.Exists(ctx, sid)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrNotFound
	}

	images, err := m.blobs.List(ctx, ImagePrefix(sid))
	if err != nil {
		return false, fmt.Errorf("listing images: %w", err)
	}
	pages := 0
	for _, key := range images {
		if strings.HasSuffix(key, ".png") {
			pages++
		}
	}
	if pages == 0 {
		return false, nil
	}

	ix, _, err := m.indexes.Load(ctx, IndexKey(sid))
	if errors.Is(err, index.ErrNotIndexed) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ix.Len() >= pages, nil
}
