package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/paperdex/internal/domain"
	"github.com/kailas-cloud/paperdex/internal/domain/search/request"
	"github.com/kailas-cloud/paperdex/internal/domain/search/result"
	"github.com/kailas-cloud/paperdex/internal/domain/visibility"
	"github.com/kailas-cloud/paperdex/internal/metrics"
)

// Metric mode labels.
const (
	modeHybrid          = "hybrid"
	modeDegradedLexical = "degraded_lexical"
)

// Service is the hybrid search entry point: it fans the query out to the
// lexical and vector legs, fuses the two rankings via RRF, and applies the
// final limit.
type Service struct {
	lex    LexicalSearcher
	vec    VectorSearcher
	embed  domain.Embedder
	rrfK   int
	logger *zap.Logger
}

// New creates a hybrid search service. embed must be the query-mode embedder.
func New(lex LexicalSearcher, vec VectorSearcher, embed domain.Embedder, logger *zap.Logger) *Service {
	return &Service{lex: lex, vec: vec, embed: embed, rrfK: DefaultRRFK, logger: logger}
}

// WithRRFK overrides the fusion smoothing constant.
func (s *Service) WithRRFK(k int) *Service {
	if k > 0 {
		s.rrfK = k
	}
	return s
}

// Search runs the hybrid query. The two retrieval legs run concurrently and
// each leg shares the final limit, bounding the candidate pool per method.
// When the embedding provider is unavailable the query degrades to
// lexical-only results instead of failing; storage errors propagate.
func (s *Service) Search(
	ctx context.Context, req request.Request, vis visibility.Context,
) ([]result.Result, error) {
	start := time.Now()

	var (
		lexIDs   []int64
		hits     []result.Hit
		degraded bool
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ids, err := s.lex.SearchLexical(gctx, req.Query(), vis, req.Limit())
		if err != nil {
			return fmt.Errorf("lexical search: %w", err)
		}
		lexIDs = ids
		return nil
	})

	g.Go(func() error {
		emb, err := s.embed.Embed(gctx, req.Query())
		if err != nil {
			if errors.Is(err, domain.ErrProviderUnavailable) {
				// The FTS leg still answers; serve lexical-only.
				degraded = true
				return nil
			}
			return fmt.Errorf("embed query: %w", err)
		}

		found, err := s.vec.SearchVector(gctx, emb.Embedding, vis, req.Limit())
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		hits = found
		return nil
	})

	if err := g.Wait(); err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(modeHybrid, "error").Inc()
		return nil, err
	}

	mode := modeHybrid
	if degraded {
		mode = modeDegradedLexical
		s.logger.Warn("embedding provider unavailable, serving lexical-only results",
			zap.Int("query_len", len(req.Query())))
	}

	fused := fuse(lexIDs, hits, s.rrfK)
	if len(fused) > req.Limit() {
		fused = fused[:req.Limit()]
	}

	metrics.SearchRequestsTotal.WithLabelValues(mode, "ok").Inc()
	metrics.SearchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	return fused, nil
}
