package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/chunkline/ai"
	"github.com/poiesic/chunkline/core"
	"github.com/poiesic/chunkline/storage"
	"golang.org/x/time/rate"
)

// DefaultDelay is the minimum spacing between embedder calls.
const DefaultDelay = 100 * time.Millisecond

// Predicate reports whether a record still needs an embedding.
type Predicate func(rec *core.ChunkRecord) bool

// NeedsEmbedding is the default Predicate. It is true when the embedding is
// absent or null.
func NeedsEmbedding(rec *core.ChunkRecord) bool {
	return !rec.HasEmbedding()
}

// Enricher computes embeddings for records that lack them.
// It is safe for concurrent use. Concurrent runs share one rate limit, and at
// most one embedder call is in flight at a time.
type Enricher struct {
	embedder   ai.Embedder
	calls      sync.Mutex
	limiter    *rate.Limiter
	delay      time.Duration
	cache      storage.EmbeddingCache
	model      string
	dimensions int
	needs      Predicate
	logger     *slog.Logger
}

// Option configures an Enricher.
type Option func(*Enricher) error

// WithDelay sets the minimum delay between embedder calls.
// Default is DefaultDelay. Zero disables rate limiting.
func WithDelay(delay time.Duration) Option {
	return func(e *Enricher) error {
		if delay < 0 {
			return fmt.Errorf("%w: %s", ErrInvalidDelay, delay)
		}
		e.delay = delay
		return nil
	}
}

// WithCache looks up and stores vectors in cache, keyed by content and model.
func WithCache(cache storage.EmbeddingCache, model string) Option {
	return func(e *Enricher) error {
		e.cache = cache
		e.model = model
		return nil
	}
}

// WithDimensions rejects embeddings whose length differs from n.
// Zero accepts any non-empty length.
func WithDimensions(n int) Option {
	return func(e *Enricher) error {
		if n < 0 {
			return fmt.Errorf("dimensions cannot be negative: %d", n)
		}
		e.dimensions = n
		return nil
	}
}

// WithPredicate replaces NeedsEmbedding.
func WithPredicate(p Predicate) Option {
	return func(e *Enricher) error {
		if p == nil {
			p = NeedsEmbedding
		}
		e.needs = p
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// New creates an Enricher around embedder.
func New(embedder ai.Embedder, opts ...Option) (*Enricher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	e := &Enricher{
		embedder: embedder,
		delay:    DefaultDelay,
		needs:    NeedsEmbedding,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	limit := rate.Inf
	if e.delay > 0 {
		limit = rate.Every(e.delay)
	}
	e.limiter = rate.NewLimiter(limit, 1)
	e.logger = e.logger.With("component", "enricher")

	return e, nil
}

// Enrich attaches an embedding to rec when the predicate says it needs one.
// The returned error is set only for core.OutcomeErrored, and rec is left
// unchanged in that case.
func (e *Enricher) Enrich(ctx context.Context, rec *core.ChunkRecord) (core.Outcome, error) {
	if rec == nil {
		return core.OutcomeErrored, core.ValidateContent(nil)
	}
	if !e.needs(rec) {
		return core.OutcomeSkipped, nil
	}
	if err := core.ValidateContent(rec); err != nil {
		return core.OutcomeErrored, err
	}

	key := core.IDFromContent(rec.Content)
	if vector, ok := e.cached(ctx, key, rec.Line); ok {
		if encoded, err := core.NewVector(vector); err == nil {
			rec.Embedding = encoded
			return core.OutcomeProcessed, nil
		}
	}

	vector, err := e.embed(ctx, rec.Content)
	if err != nil {
		return core.OutcomeErrored, err
	}
	if err := core.ValidateEmbedding(vector, e.dimensions); err != nil {
		return core.OutcomeErrored, err
	}
	encoded, err := core.NewVector(vector)
	if err != nil {
		return core.OutcomeErrored, err
	}

	rec.Embedding = encoded
	e.store(ctx, key, vector, rec.Line)
	return core.OutcomeProcessed, nil
}

// embed waits for the rate limiter and calls the embedder, one call at a time.
func (e *Enricher) embed(ctx context.Context, content string) ([]float32, error) {
	e.calls.Lock()
	defer e.calls.Unlock()

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	vector, err := e.embedder.EmbedText(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	return vector, nil
}

func (e *Enricher) cached(ctx context.Context, key core.ID, line int) ([]float32, bool) {
	if e.cache == nil {
		return nil, false
	}
	vector, err := e.cache.GetEmbedding(ctx, key, e.model)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			e.logger.Warn("embedding cache lookup failed", "line", line, "err", err)
		}
		return nil, false
	}
	if err := core.ValidateEmbedding(vector, e.dimensions); err != nil {
		e.logger.Warn("ignoring unusable cached embedding", "line", line, "err", err)
		return nil, false
	}
	e.logger.Debug("embedding cache hit", "line", line)
	return vector, true
}

func (e *Enricher) store(ctx context.Context, key core.ID, vector []float32, line int) {
	if e.cache == nil {
		return
	}
	if err := e.cache.PutEmbedding(ctx, key, e.model, vector); err != nil {
		e.logger.Warn("embedding cache store failed", "line", line, "err", err)
	}
}
