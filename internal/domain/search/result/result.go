package result

// Result is a single fused search hit. The score has no fixed upper bound and
// is meaningful only relative to other results of the same query.
type Result struct {
	id    int64
	score float64
}

// New creates a search result.
func New(id int64, score float64) Result {
	return Result{id: id, score: score}
}

// ID returns the paper identifier.
func (r *Result) ID() int64 { return r.id }

// Score returns the fused relevance score (higher is more relevant).
func (r *Result) Score() float64 { return r.score }

// Hit is a vector-search candidate: ascending Distance means most similar
// first. The distance is cosine distance, 1 - cosine_similarity.
type Hit struct {
	ID       int64
	Distance float64
}
