package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/paperdex/internal/domain"
	"github.com/kailas-cloud/paperdex/internal/domain/search/result"
	"github.com/kailas-cloud/paperdex/internal/domain/visibility"
)

// ctxCheckInterval is how many rows the scan processes between cancellation
// checks.
const ctxCheckInterval = 128

// SearchVector is the reference nearest-neighbors backend: a brute-force scan
// over every visibility-eligible embedding, ranked by ascending cosine
// distance in process. O(N) per query is fine at personal-collection scale;
// larger deployments plug the index-accelerated backend behind the same
// contract. Papers without an embedding row never appear.
func (r *Repo) SearchVector(
	ctx context.Context, vector []float32, vis visibility.Context, limit int,
) ([]result.Hit, error) {
	sqlQuery := `
		SELECT e.paper_id, e.vector
		FROM embeddings e
		JOIN papers p ON p.id = e.paper_id`
	var args []any

	if principal, ok := vis.PrincipalID(); ok {
		sqlQuery += ` WHERE p.is_private = 0 OR p.owner_id = ?`
		args = append(args, principal)
	} else {
		sqlQuery += ` WHERE p.is_private = 0`
	}

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []result.Hit
	for n := 0; rows.Next(); n++ {
		if n%ctxCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		var (
			id   int64
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scan embedding row: %w", err)
		}

		vec, err := domain.DecodeVector(blob, r.dims)
		if err != nil {
			return nil, fmt.Errorf("paper %d: %w", id, err)
		}

		hits = append(hits, result.Hit{ID: id, Distance: domain.CosineDistance(vector, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("embedding rows: %w", err)
	}

	// Ascending distance; ties break on id so repeated queries over the same
	// state order identically.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
