// Package paper persists papers and their derived embedding vectors.
package paper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/paperdex/internal/db/sqlite"
	"github.com/kailas-cloud/paperdex/internal/domain"
)

const timeLayout = time.RFC3339Nano

// Repo is the sqlite-backed paper repository.
type Repo struct {
	db   *sql.DB
	dims int
}

// New creates a paper repository. dims is the provider's embedding
// dimensionality, enforced when vectors are read back.
func New(store *sqlite.Store, dims int) *Repo {
	return &Repo{db: store.DB(), dims: dims}
}

// Create inserts the paper and fills its ID and timestamps.
func (r *Repo) Create(ctx context.Context, p *domain.Paper) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO papers (title, authors, arxiv_id, doi, paper_url, abstract, summary,
		                    is_private, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Authors, nullable(p.ArxivID), nullable(p.DOI), nullable(p.PaperURL),
		nullable(p.Abstract), p.Summary, boolToInt(p.IsPrivate), p.OwnerID,
		now.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert paper: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("paper id: %w", err)
	}
	p.ID = id
	return nil
}

// Get fetches a paper by id.
func (r *Repo) Get(ctx context.Context, id int64) (domain.Paper, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, authors, arxiv_id, doi, paper_url, abstract, summary,
		       is_private, owner_id, created_at, updated_at
		FROM papers WHERE id = ?`, id)

	return scanPaper(row)
}

// Update rewrites all mutable fields of an existing paper.
func (r *Repo) Update(ctx context.Context, p *domain.Paper) error {
	p.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE papers
		SET title = ?, authors = ?, arxiv_id = ?, doi = ?, paper_url = ?,
		    abstract = ?, summary = ?, is_private = ?, updated_at = ?
		WHERE id = ?`,
		p.Title, p.Authors, nullable(p.ArxivID), nullable(p.DOI), nullable(p.PaperURL),
		nullable(p.Abstract), p.Summary, boolToInt(p.IsPrivate),
		p.UpdatedAt.Format(timeLayout), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update paper %d: %w", p.ID, err)
	}
	return checkAffected(res, p.ID)
}

// Delete removes a paper; the embedding row cascades via foreign key.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM papers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete paper %d: %w", id, err)
	}
	return checkAffected(res, id)
}

// SaveEmbedding upserts the paper's derived vector. The blob is an exact
// little-endian float32 encoding, recoverable byte-for-byte.
func (r *Repo) SaveEmbedding(ctx context.Context, paperID int64, vector []float32, source string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO embeddings (paper_id, vector, source, dimensions)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(paper_id) DO UPDATE SET
		    vector = excluded.vector,
		    source = excluded.source,
		    dimensions = excluded.dimensions`,
		paperID, domain.EncodeVector(vector), source, len(vector),
	)
	if err != nil {
		return fmt.Errorf("save embedding for paper %d: %w", paperID, err)
	}
	return nil
}

// DeleteEmbedding removes the paper's vector. Absence is not an error.
func (r *Repo) DeleteEmbedding(ctx context.Context, paperID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM embeddings WHERE paper_id = ?`, paperID); err != nil {
		return fmt.Errorf("delete embedding for paper %d: %w", paperID, err)
	}
	return nil
}

// GetEmbedding reads the paper's vector. The second return is false when the
// paper has no embedding.
func (r *Repo) GetEmbedding(ctx context.Context, paperID int64) ([]float32, bool, error) {
	var blob []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT vector FROM embeddings WHERE paper_id = ?`, paperID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get embedding for paper %d: %w", paperID, err)
	}

	vec, err := domain.DecodeVector(blob, r.dims)
	if err != nil {
		return nil, false, fmt.Errorf("paper %d: %w", paperID, err)
	}
	return vec, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row rowScanner) (domain.Paper, error) {
	var (
		p                                   domain.Paper
		arxivID, doi, paperURL, abstract    sql.NullString
		isPrivate                           int
		createdAt, updatedAt                string
	)
	err := row.Scan(&p.ID, &p.Title, &p.Authors, &arxivID, &doi, &paperURL, &abstract,
		&p.Summary, &isPrivate, &p.OwnerID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Paper{}, domain.ErrPaperNotFound
	}
	if err != nil {
		return domain.Paper{}, fmt.Errorf("scan paper: %w", err)
	}

	p.ArxivID = arxivID.String
	p.DOI = doi.String
	p.PaperURL = paperURL.String
	p.Abstract = abstract.String
	p.IsPrivate = isPrivate != 0

	if p.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return domain.Paper{}, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return domain.Paper{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return p, nil
}

func checkAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for paper %d: %w", id, err)
	}
	if n == 0 {
		return domain.ErrPaperNotFound
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
