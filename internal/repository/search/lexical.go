// Package search serves the two retrieval legs of hybrid search from the
// relational store: the FTS5 lexical leg and the reference brute-force vector
// leg. Both are read-only views over the paper/embedding tables and evaluate
// the visibility predicate inside the same query that produces the ranking.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kailas-cloud/paperdex/internal/db/sqlite"
	"github.com/kailas-cloud/paperdex/internal/domain/visibility"
)

// bm25 column weights for (title, authors, abstract, summary). Title counts
// the most, authors next, abstract and summary equally.
const bm25Weights = "4.0, 2.0, 1.0, 1.0"

// Repo serves lexical and vector searches from the sqlite store.
type Repo struct {
	db   *sql.DB
	dims int
}

// New creates a search repository. dims is the provider's embedding
// dimensionality, enforced when vectors are read during the scan.
func New(store *sqlite.Store, dims int) *Repo {
	return &Repo{db: store.DB(), dims: dims}
}

// SearchLexical returns paper ids ordered by field-weighted bm25 relevance,
// best first, restricted to the caller's visibility scope. Queries matching
// nothing return an empty list.
func (r *Repo) SearchLexical(
	ctx context.Context, query string, vis visibility.Context, limit int,
) ([]int64, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	sqlQuery := `
		SELECT f.rowid
		FROM papers_fts f
		JOIN papers p ON p.id = f.rowid
		WHERE papers_fts MATCH ?`
	args := []any{match}

	if principal, ok := vis.PrincipalID(); ok {
		sqlQuery += ` AND (p.is_private = 0 OR p.owner_id = ?)`
		args = append(args, principal)
	} else {
		sqlQuery += ` AND p.is_private = 0`
	}

	sqlQuery += ` ORDER BY bm25(papers_fts, ` + bm25Weights + `) LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("fts search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan fts row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fts rows: %w", err)
	}
	return ids, nil
}

// ftsQuery turns free text into an FTS5 MATCH expression: each token is
// quoted (neutralizing operators and punctuation) and tokens combine with the
// implicit AND. Returns "" when the text carries no tokens.
func ftsQuery(query string) string {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return ""
	}

	quoted := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.ReplaceAll(tok, `"`, `""`)
		quoted = append(quoted, `"`+tok+`"`)
	}
	return strings.Join(quoted, " ")
}
