package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by stores when a keyed item does not exist.
var ErrNotFound = errors.New("not found")

// StandardsCatalog persists one Ruleset per license category.
type StandardsCatalog interface {
	Get(ctx context.Context, category string) (*Ruleset, error)
	List(ctx context.Context) ([]*Ruleset, error)
	// Put inserts or replaces the ruleset and reports whether it was new.
	Put(ctx context.Context, rs *Ruleset) (created bool, err error)
	Delete(ctx context.Context, category string) error
}

// ScoreStore persists imported scores keyed by registration code.
// Upsert is insert-or-replace, so repeating it leaves one row per code.
type ScoreStore interface {
	Upsert(ctx context.Context, row ScoreRow) (inserted bool, err error)
	BulkGet(ctx context.Context, codes []string) (map[string]ScoreRow, error)
}

// ImportLog keeps a history of score imports.
type ImportLog interface {
	RecordImport(ctx context.Context, rec ImportRecord) error
	ListImports(ctx context.Context, limit int) ([]ImportRecord, error)
	PurgeImports(ctx context.Context, before time.Time) (int64, error)
}

// PracticePage is one page of the task-tracking API roster. An empty page
// ends pagination.
type PracticePage struct {
	Items []PracticeRecord `json:"items"`
}

// PracticeSource fetches practice records page by page.
type PracticeSource interface {
	FetchPage(ctx context.Context, courseID string, page int) (PracticePage, error)
}

// TheorySource downloads the LMS theory report workbook for a course.
type TheorySource interface {
	FetchReport(ctx context.Context, courseID string) ([]byte, error)
}

// Course is a training course as listed by the task-tracking API.
type Course struct {
	ID       string `json:"id"`
	Code     string `json:"code,omitempty"`
	Name     string `json:"name"`
	Category string `json:"ma_hang,omitempty"`
}

// CourseSource lists courses.
type CourseSource interface {
	ListCourses(ctx context.Context, page int) ([]Course, error)
}

// ImportRecord is one row of score import history.
type ImportRecord struct {
	ID         uuid.UUID `json:"id"`
	FileName   string    `json:"file_name"`
	Total      int       `json:"total"`
	Processed  int       `json:"processed"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	ImportedBy string    `json:"imported_by,omitempty"`
	ImportedAt time.Time `json:"imported_at"`
}
