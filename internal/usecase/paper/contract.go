package paper

import (
	"context"

	"github.com/kailas-cloud/paperdex/internal/domain"
)

// Repository persists papers and their derived embedding vectors.
type Repository interface {
	Create(ctx context.Context, p *domain.Paper) error
	Get(ctx context.Context, id int64) (domain.Paper, error)
	Update(ctx context.Context, p *domain.Paper) error
	Delete(ctx context.Context, id int64) error

	SaveEmbedding(ctx context.Context, paperID int64, vector []float32, source string) error
	DeleteEmbedding(ctx context.Context, paperID int64) error
	GetEmbedding(ctx context.Context, paperID int64) ([]float32, bool, error)
}

// Mirror receives embedding and visibility updates for an accelerated vector
// index. Mirror failures are logged, never surfaced: the relational store
// stays authoritative.
type Mirror interface {
	Upsert(ctx context.Context, p domain.Paper, vector []float32) error
	Remove(ctx context.Context, paperID int64) error
}
