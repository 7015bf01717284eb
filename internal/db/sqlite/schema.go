package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied on open; every statement is idempotent. The FTS5 index is
// an external-content table kept in sync with papers by triggers, so the
// lexical relevance ranking always reflects the authoritative rows.
const schema = `
CREATE TABLE IF NOT EXISTS papers (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    title       TEXT NOT NULL,
    authors     TEXT NOT NULL,
    arxiv_id    TEXT,
    doi         TEXT,
    paper_url   TEXT,
    abstract    TEXT,
    summary     TEXT NOT NULL,
    is_private  INTEGER NOT NULL DEFAULT 0,
    owner_id    INTEGER NOT NULL,
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_papers_is_private ON papers(is_private);
CREATE INDEX IF NOT EXISTS idx_papers_owner ON papers(owner_id);

CREATE VIRTUAL TABLE IF NOT EXISTS papers_fts USING fts5(
    title, authors, abstract, summary,
    content='papers', content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS papers_fts_insert AFTER INSERT ON papers BEGIN
    INSERT INTO papers_fts(rowid, title, authors, abstract, summary)
    VALUES (new.id, new.title, new.authors, coalesce(new.abstract, ''), new.summary);
END;

CREATE TRIGGER IF NOT EXISTS papers_fts_delete AFTER DELETE ON papers BEGIN
    INSERT INTO papers_fts(papers_fts, rowid, title, authors, abstract, summary)
    VALUES ('delete', old.id, old.title, old.authors, coalesce(old.abstract, ''), old.summary);
END;

CREATE TRIGGER IF NOT EXISTS papers_fts_update AFTER UPDATE ON papers BEGIN
    INSERT INTO papers_fts(papers_fts, rowid, title, authors, abstract, summary)
    VALUES ('delete', old.id, old.title, old.authors, coalesce(old.abstract, ''), old.summary);
    INSERT INTO papers_fts(rowid, title, authors, abstract, summary)
    VALUES (new.id, new.title, new.authors, coalesce(new.abstract, ''), new.summary);
END;

CREATE TABLE IF NOT EXISTS embeddings (
    paper_id   INTEGER PRIMARY KEY REFERENCES papers(id) ON DELETE CASCADE,
    vector     BLOB NOT NULL,
    source     TEXT NOT NULL DEFAULT 'abstract_summary',
    dimensions INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS kv (
    key   TEXT PRIMARY KEY,
    value BLOB NOT NULL
);
`

func applySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}
