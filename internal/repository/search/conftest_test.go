package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/paperdex/internal/db/sqlite"
	"github.com/kailas-cloud/paperdex/internal/domain"
	paperrepo "github.com/kailas-cloud/paperdex/internal/repository/paper"
)

const testDims = 3

// testFixture holds the search repo plus the paper repo used to seed it.
type testFixture struct {
	search *Repo
	papers *paperrepo.Repo
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return &testFixture{
		search: New(store, testDims),
		papers: paperrepo.New(store, testDims),
	}
}

type seed struct {
	title     string
	authors   string
	abstract  string
	summary   string
	isPrivate bool
	ownerID   int64
	vector    []float32 // nil = no embedding
}

func (f *testFixture) seedPaper(t *testing.T, s seed) int64 {
	t.Helper()

	if s.authors == "" {
		s.authors = "Doe"
	}
	if s.summary == "" {
		s.summary = "notes"
	}
	if s.ownerID == 0 {
		s.ownerID = 1
	}

	p := domain.Paper{
		Title:     s.title,
		Authors:   s.authors,
		Abstract:  s.abstract,
		Summary:   s.summary,
		IsPrivate: s.isPrivate,
		OwnerID:   s.ownerID,
	}
	if err := f.papers.Create(context.Background(), &p); err != nil {
		t.Fatalf("seed paper %q: %v", s.title, err)
	}

	if s.vector != nil {
		if err := f.papers.SaveEmbedding(
			context.Background(), p.ID, s.vector, domain.SourceAbstractSummary,
		); err != nil {
			t.Fatalf("seed embedding for %q: %v", s.title, err)
		}
	}
	return p.ID
}
