// Package paper implements the paper lifecycle around the embedding
// invariant: the vector is derived state, created with the paper, regenerated
// when the source text changes, and never allowed to outlive it.
package paper

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/paperdex/internal/domain"
	"github.com/kailas-cloud/paperdex/internal/domain/visibility"
)

// Service handles paper creation, updates, and deletion.
type Service struct {
	repo   Repository
	embed  domain.Embedder
	mirror Mirror
	logger *zap.Logger
}

// New creates a paper service. embed must be the document-mode embedder.
func New(repo Repository, embed domain.Embedder, logger *zap.Logger) *Service {
	return &Service{repo: repo, embed: embed, logger: logger}
}

// WithMirror attaches an accelerated vector-index mirror.
func (s *Service) WithMirror(m Mirror) *Service {
	s.mirror = m
	return s
}

// Create persists the paper, then derives its embedding. A provider failure
// is non-fatal: the paper persists without an embedding and remains
// discoverable through lexical search.
func (s *Service) Create(ctx context.Context, p *domain.Paper) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("create paper: %w", err)
	}

	s.refreshEmbedding(ctx, *p)
	return nil
}

// Get fetches a paper within the caller's visibility scope. Private papers
// outside the scope read as not found, hiding their existence.
func (s *Service) Get(ctx context.Context, vis visibility.Context, id int64) (domain.Paper, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Paper{}, err
	}
	if !vis.CanSee(p.OwnerID, p.IsPrivate) {
		return domain.Paper{}, domain.ErrPaperNotFound
	}
	return p, nil
}

// Update applies changes on behalf of the owner. When the embedding source
// text (abstract or summary) changed, the stale vector is dropped first and a
// new one derived from the current text; when only ownership-visible metadata
// changed, the accelerated index tags are refreshed instead.
func (s *Service) Update(ctx context.Context, principal int64, p *domain.Paper) error {
	current, err := s.repo.Get(ctx, p.ID)
	if err != nil {
		return err
	}
	if current.OwnerID != principal {
		return domain.ErrForbidden
	}

	p.OwnerID = current.OwnerID
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("update paper %d: %w", p.ID, err)
	}

	switch {
	case sourceTextChanged(current, *p):
		// Derived state must not outlive its source text: drop first, so a
		// failed regeneration leaves no vector rather than a stale one.
		if err := s.repo.DeleteEmbedding(ctx, p.ID); err != nil {
			s.logger.Warn("failed to drop stale embedding",
				zap.Int64("paper_id", p.ID), zap.Error(err))
		}
		s.removeFromMirror(ctx, p.ID)
		s.refreshEmbedding(ctx, *p)

	case current.IsPrivate != p.IsPrivate:
		s.refreshMirrorTags(ctx, *p)
	}

	return nil
}

// Delete removes a paper on behalf of the owner; the embedding row cascades
// in the store and the mirror entry is removed.
func (s *Service) Delete(ctx context.Context, principal, id int64) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.OwnerID != principal {
		return domain.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete paper %d: %w", id, err)
	}

	s.removeFromMirror(ctx, id)
	return nil
}

// refreshEmbedding derives and stores the paper's vector. Every failure path
// is absorbed: embedding absence is a valid, recoverable state.
func (s *Service) refreshEmbedding(ctx context.Context, p domain.Paper) {
	res, err := s.embed.Embed(ctx, domain.DocumentText(p.Abstract, p.Summary))
	if err != nil {
		s.logger.Warn("embedding generation failed, paper stored without embedding",
			zap.Int64("paper_id", p.ID), zap.Error(err))
		return
	}

	if err := s.repo.SaveEmbedding(ctx, p.ID, res.Embedding, domain.SourceAbstractSummary); err != nil {
		s.logger.Warn("failed to store embedding",
			zap.Int64("paper_id", p.ID), zap.Error(err))
		return
	}

	if s.mirror != nil {
		if err := s.mirror.Upsert(ctx, p, res.Embedding); err != nil {
			s.logger.Warn("failed to mirror embedding",
				zap.Int64("paper_id", p.ID), zap.Error(err))
		}
	}
}

// refreshMirrorTags re-upserts the existing vector so the accelerated index
// sees the paper's current visibility.
func (s *Service) refreshMirrorTags(ctx context.Context, p domain.Paper) {
	if s.mirror == nil {
		return
	}

	vec, ok, err := s.repo.GetEmbedding(ctx, p.ID)
	if err != nil {
		s.logger.Warn("failed to read embedding for mirror refresh",
			zap.Int64("paper_id", p.ID), zap.Error(err))
		return
	}
	if !ok {
		return
	}

	if err := s.mirror.Upsert(ctx, p, vec); err != nil {
		s.logger.Warn("failed to refresh mirror tags",
			zap.Int64("paper_id", p.ID), zap.Error(err))
	}
}

func (s *Service) removeFromMirror(ctx context.Context, id int64) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Remove(ctx, id); err != nil {
		s.logger.Warn("failed to remove mirror entry",
			zap.Int64("paper_id", id), zap.Error(err))
	}
}

// sourceTextChanged reports whether the fields the embedding derives from
// (the abstract_summary provenance) differ.
func sourceTextChanged(a, b domain.Paper) bool {
	return a.Abstract != b.Abstract || a.Summary != b.Summary
}
