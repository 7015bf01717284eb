package search

import (
	"context"

	"github.com/kailas-cloud/paperdex/internal/domain/search/result"
	"github.com/kailas-cloud/paperdex/internal/domain/visibility"
)

// LexicalSearcher returns paper ids ordered by lexical relevance, best first,
// restricted to the caller's visibility scope.
type LexicalSearcher interface {
	SearchLexical(ctx context.Context, query string, vis visibility.Context, limit int) ([]int64, error)
}

// VectorSearcher returns nearest neighbors by cosine distance over the
// visibility-eligible embeddings, ascending distance. Backends range from the
// in-process brute-force scan to an index-accelerated store; the contract is
// identical.
type VectorSearcher interface {
	SearchVector(ctx context.Context, vector []float32, vis visibility.Context, limit int) ([]result.Hit, error)
}
