package paper

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/paperdex/internal/db/sqlite"
	"github.com/kailas-cloud/paperdex/internal/domain"
)

const testDims = 4

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(store, testDims)
}

func samplePaper() domain.Paper {
	return domain.Paper{
		Title:    "Attention Is All You Need",
		Authors:  "Vaswani et al.",
		ArxivID:  "1706.03762",
		DOI:      "10.48550/arXiv.1706.03762",
		PaperURL: "https://arxiv.org/abs/1706.03762",
		Abstract: "The dominant sequence transduction models are based on RNNs.",
		Summary:  "Introduces the transformer architecture.",
		OwnerID:  1,
	}
}

func TestCreateGet_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p := samplePaper()
	if err := repo.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		t.Error("expected timestamps filled")
	}

	got, err := repo.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Title != p.Title || got.Authors != p.Authors || got.Summary != p.Summary {
		t.Errorf("core fields differ: %+v", got)
	}
	if got.ArxivID != p.ArxivID || got.DOI != p.DOI || got.PaperURL != p.PaperURL {
		t.Errorf("optional fields differ: %+v", got)
	}
	if got.Abstract != p.Abstract || got.IsPrivate != p.IsPrivate || got.OwnerID != p.OwnerID {
		t.Errorf("fields differ: %+v", got)
	}
	if !got.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("created_at %v, want %v", got.CreatedAt, p.CreatedAt)
	}
}

func TestCreateGet_EmptyOptionals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p := domain.Paper{Title: "T", Authors: "A", Summary: "S", OwnerID: 1}
	if err := repo.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ArxivID != "" || got.DOI != "" || got.PaperURL != "" || got.Abstract != "" {
		t.Errorf("NULL optionals should read back empty: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), 42)
	if !errors.Is(err, domain.ErrPaperNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p := samplePaper()
	if err := repo.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}

	p.Summary = "Rewritten notes."
	p.IsPrivate = true
	if err := repo.Update(ctx, &p); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Summary != "Rewritten notes." || !got.IsPrivate {
		t.Errorf("update not persisted: %+v", got)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	p := samplePaper()
	p.ID = 42
	if err := repo.Update(context.Background(), &p); !errors.Is(err, domain.ErrPaperNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDelete_CascadesEmbedding(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p := samplePaper()
	if err := repo.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.SaveEmbedding(ctx, p.ID, []float32{1, 2, 3, 4}, domain.SourceAbstractSummary); err != nil {
		t.Fatalf("save embedding: %v", err)
	}

	if err := repo.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := repo.Get(ctx, p.ID); !errors.Is(err, domain.ErrPaperNotFound) {
		t.Fatalf("paper should be gone, got %v", err)
	}
	_, ok, err := repo.GetEmbedding(ctx, p.ID)
	if err != nil {
		t.Fatalf("get embedding: %v", err)
	}
	if ok {
		t.Error("embedding must cascade with the paper")
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	if err := repo.Delete(context.Background(), 42); !errors.Is(err, domain.ErrPaperNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSaveEmbedding_UpsertAndRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p := samplePaper()
	if err := repo.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}

	first := []float32{0.1, -0.2, 0.3, float32(math.Pi)}
	if err := repo.SaveEmbedding(ctx, p.ID, first, domain.SourceAbstractSummary); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := repo.GetEmbedding(ctx, p.ID)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	for i := range first {
		if math.Float32bits(got[i]) != math.Float32bits(first[i]) {
			t.Errorf("component %d not bit-exact", i)
		}
	}

	second := []float32{1, 1, 1, 1}
	if err := repo.SaveEmbedding(ctx, p.ID, second, domain.SourceAbstractSummary); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, _, err = repo.GetEmbedding(ctx, p.ID)
	if err != nil {
		t.Fatalf("get after upsert: %v", err)
	}
	if got[0] != 1 {
		t.Errorf("upsert should overwrite, got %v", got)
	}
}

func TestGetEmbedding_Missing(t *testing.T) {
	repo := newTestRepo(t)

	_, ok, err := repo.GetEmbedding(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no embedding")
	}
}

func TestGetEmbedding_DimMismatch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p := samplePaper()
	if err := repo.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Stored with the wrong width; the read must refuse it.
	if err := repo.SaveEmbedding(ctx, p.ID, []float32{1, 2}, domain.SourceAbstractSummary); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, _, err := repo.GetEmbedding(ctx, p.ID)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected dim mismatch, got %v", err)
	}
}

func TestDeleteEmbedding_AbsentIsNotError(t *testing.T) {
	repo := newTestRepo(t)

	if err := repo.DeleteEmbedding(context.Background(), 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
