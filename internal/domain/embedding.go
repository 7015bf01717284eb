package domain

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
)

// SourceAbstractSummary is the provenance tag for embeddings derived from a
// paper's abstract and summary text.
const SourceAbstractSummary = "abstract_summary"

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the
// decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// DocumentText builds the text a paper embedding is derived from: abstract
// first (when present) so its terms weigh into the vector, then the summary.
func DocumentText(abstract, summary string) string {
	if abstract == "" {
		return summary
	}
	return abstract + "\n\n" + summary
}

// InstructionEmbedder is a domain decorator that prepends instruction text
// before embedding, used to split a single provider into query and document
// modes for asymmetric retrieval.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends the instruction and delegates to the inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (e *InstructionEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// EncodeVector serializes a vector as fixed-width little-endian float32
// bytes. The encoding is exact: DecodeVector returns a bit-identical vector,
// so distance computations are reproducible across reads.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector parses little-endian float32 bytes. When dim > 0 the vector
// must have exactly that many dimensions; anything else is a storage contract
// violation reported as ErrVectorDimMismatch.
func DecodeVector(data []byte, dim int) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4: %w",
			len(data), ErrVectorDimMismatch)
	}
	n := len(data) / 4
	if dim > 0 && n != dim {
		return nil, fmt.Errorf("embedding has %d dimensions, want %d: %w",
			n, dim, ErrVectorDimMismatch)
	}
	vec := make([]float32, n)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

// CosineDistance returns 1 - cosine_similarity(a, b). Range [0, 2]; zero or
// mismatched vectors have no comparable direction and yield the neutral
// distance 1.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1
	}

	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
