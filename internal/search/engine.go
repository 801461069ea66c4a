package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"github.com/slidesage/slidesage/internal/answer"
	"github.com/slidesage/slidesage/internal/blob"
	"github.com/slidesage/slidesage/internal/embeddings"
	"github.com/slidesage/slidesage/internal/index"
	"github.com/slidesage/slidesage/internal/session"
)

// Caller-routable failure conditions.
var (
	// ErrEmptyQuery is a malformed request; retrying the same request
	// cannot help.
	ErrEmptyQuery = errors.New("search: query must not be empty")

	// ErrUnknownSession means the session does not exist.
	ErrUnknownSession = errors.New("search: unknown session")

	// ErrNotIndexed means the session exists but has nothing searchable
	// yet. Callers should poll readiness and retry rather than fail.
	ErrNotIndexed = index.ErrNotIndexed
)

const (
	// DefaultTopK is used when the caller does not request a result count.
	DefaultTopK = 5

	// maxAnswerImages caps how many page images are handed to the answer
	// generator regardless of top_k.
	maxAnswerImages = 3
)

// Fallback answers, used when there is nothing to ground on or the
// generator is unavailable. Retrieval still succeeds in both cases.
const noResultsAnswer = "No relevant pages found to answer your query."

// Source identifies one retrieved page and its similarity score.
type Source struct {
	DocumentID string  `json:"document_id"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"score"`
}

// Result is the answer to one query. TotalResults counts the records that
// were scored, not the ones returned.
type Result struct {
	Answer       string   `json:"answer"`
	Sources      []Source `json:"sources"`
	TotalResults int      `json:"total_results"`
}

// Engine answers natural-language queries against one session's index:
// embed the query, rank every record by cosine similarity, fetch the top
// pages, and ask the generator for a grounded answer. Ranking is fully
// deterministic for a fixed index; only the generated prose may vary.
type Engine struct {
	blobs         blob.Store
	indexes       *index.Store
	embedder      embeddings.Embedder
	generator     answer.Generator
	requestBudget time.Duration
}

// NewEngine creates a retrieval engine. requestBudget bounds the embedding
// and generation calls of a single query.
func NewEngine(blobs blob.Store, indexes *index.Store, embedder embeddings.Embedder, generator answer.Generator, requestBudget time.Duration) *Engine {
	if requestBudget <= 0 {
		requestBudget = 30 * time.Second
	}
	return &Engine{
		blobs:         blobs,
		indexes:       indexes,
		embedder:      embedder,
		generator:     generator,
		requestBudget: requestBudget,
	}
}

// Search answers the query against the session's current index snapshot.
// topK <= 0 selects DefaultTopK. An existing but empty index yields a valid
// empty-sources result, not an error.
func (e *Engine) Search(ctx context.Context, sid, query string, topK int) (*Result, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	ok, err := e.blobs.Exists(ctx, session.MarkerKey(sid))
	if err != nil {
		return nil, fmt.Errorf("checking session %s: %w", sid, err)
	}
	if !ok {
		return nil, ErrUnknownSession
	}

	ix, _, err := e.indexes.Load(ctx, session.IndexKey(sid))
	if err != nil {
		return nil, err
	}
	if ix.Len() == 0 {
		return &Result{Answer: noResultsAnswer, Sources: []Source{}}, nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, e.requestBudget)
	defer cancel()
	qvec, err := e.embedder.EmbedText(embedCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(qvec) != ix.Dimension {
		return nil, fmt.Errorf("%w: query model produced %d dims, index has %d",
			index.ErrDimensionMismatch, len(qvec), ix.Dimension)
	}
	index.Normalize(qvec)

	matches, err := ix.Search(qvec, topK)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Sources:      make([]Source, 0, len(matches)),
		TotalResults: ix.Len(),
	}
	for _, m := range matches {
		result.Sources = append(result.Sources, Source{
			DocumentID: m.DocumentID,
			PageNumber: m.PageNumber,
			Score:      m.Score,
		})
	}

	result.Answer = e.generate(ctx, query, matches)
	return result, nil
}

// generate fetches the top pages' images and asks the generator. Generation
// is best-effort: a degraded answer never fails a successful retrieval.
func (e *Engine) generate(ctx context.Context, query string, matches []index.Match) string {
	var images [][]byte
	for _, m := range matches {
		if len(images) == maxAnswerImages {
			break
		}
		img, _, err := e.blobs.Get(ctx, m.SourceKey)
		if err != nil {
			log.Warn().Err(err).Str("key", m.SourceKey).Msg("skipping unreadable source image")
			continue
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		return noResultsAnswer
	}

	genCtx, cancel := context.WithTimeout(ctx, e.requestBudget)
	defer cancel()
	text, err := e.generator.GenerateAnswer(genCtx, query, images)
	if err != nil {
		log.Error().Err(err).Msg("answer generation failed, returning fallback")
		return fmt.Sprintf("I found %d relevant pages for your query %q, but could not generate a detailed answer at this moment.", len(matches), query)
	}
	return text
}
