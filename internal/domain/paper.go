package domain

import (
	"fmt"
	"strings"
	"time"
)

// Field length limits, matching the relational schema.
const (
	MaxTitleLength   = 500
	MaxAuthorsLength = 500
)

// Paper is a tracked publication. Abstract is the published abstract and may
// be absent; Summary is the reader's own notes and is always present. Every
// paper has exactly one owner and one binary visibility state.
type Paper struct {
	ID        int64
	Title     string
	Authors   string
	ArxivID   string
	DOI       string
	PaperURL  string
	Abstract  string
	Summary   string
	IsPrivate bool
	OwnerID   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the fields required before persisting.
func (p *Paper) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if len(p.Title) > MaxTitleLength {
		return fmt.Errorf("%w: title too long (max %d chars)", ErrValidation, MaxTitleLength)
	}
	if strings.TrimSpace(p.Authors) == "" {
		return fmt.Errorf("%w: authors is required", ErrValidation)
	}
	if len(p.Authors) > MaxAuthorsLength {
		return fmt.Errorf("%w: authors too long (max %d chars)", ErrValidation, MaxAuthorsLength)
	}
	if strings.TrimSpace(p.Summary) == "" {
		return fmt.Errorf("%w: summary is required", ErrValidation)
	}
	if p.OwnerID <= 0 {
		return fmt.Errorf("%w: owner is required", ErrValidation)
	}
	return nil
}
