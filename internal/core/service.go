package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Default pipeline limits.
const (
	DefaultUpstreamTimeout = 30 * time.Second
	DefaultMaxPages        = 50
)

// Deps are the collaborators a Service works with. Imports, Courses,
// Theory and Practice may be nil; the matching operations then report the
// source as unavailable.
type Deps struct {
	Standards StandardsCatalog
	Scores    ScoreStore
	Imports   ImportLog
	Theory    TheorySource
	Practice  PracticeSource
	Courses   CourseSource
}

// Options tune upstream calls and import concurrency.
type Options struct {
	UpstreamTimeout time.Duration
	MaxPages        int
	MaxImports      int
	ImportWait      time.Duration
}

// Service provides the training-progress operations used by the web
// layer and the report command.
type Service struct {
	deps    Deps
	opts    Options
	limiter *ImportLimiter
}

// NewService creates a Service. Standards and Scores are required.
func NewService(deps Deps, opts Options) (*Service, error) {
	if deps.Standards == nil {
		return nil, errors.New("standards catalog is required")
	}
	if deps.Scores == nil {
		return nil, errors.New("score store is required")
	}
	if opts.UpstreamTimeout <= 0 {
		opts.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}

	return &Service{
		deps:    deps,
		opts:    opts,
		limiter: NewImportLimiter(opts.MaxImports, opts.ImportWait),
	}, nil
}

// ImportLimiterStatus returns the current import slot usage.
func (s *Service) ImportLimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// ----------------------------------------------------------------------------
// Standards catalog
// ----------------------------------------------------------------------------

// ListStandards returns every ruleset with defaults filled in.
func (s *Service) ListStandards(ctx context.Context) ([]*Ruleset, error) {
	list, err := s.deps.Standards.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list standards: %w", err)
	}
	for i, rs := range list {
		list[i] = rs.WithDefaults()
	}
	return list, nil
}

// GetStandard returns the ruleset for category, or ErrNotFound.
func (s *Service) GetStandard(ctx context.Context, category string) (*Ruleset, error) {
	rs, err := s.deps.Standards.Get(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, err
	}
	return rs.WithDefaults(), nil
}

// PutStandard validates rs, fills defaults and stores it.
func (s *Service) PutStandard(ctx context.Context, rs *Ruleset) (*Ruleset, bool, error) {
	rs.Category = strings.TrimSpace(rs.Category)
	full := rs.WithDefaults()
	if err := full.Validate(); err != nil {
		return nil, false, err
	}

	created, err := s.deps.Standards.Put(ctx, full)
	if err != nil {
		return nil, false, fmt.Errorf("save standards %s: %w", full.Category, err)
	}

	slog.Info("standards saved",
		"ma_hang", full.Category,
		"created", created,
		"actor", ActorFromContext(ctx),
	)
	return full, created, nil
}

// DeleteStandard removes the ruleset for category.
func (s *Service) DeleteStandard(ctx context.Context, category string) error {
	if err := s.deps.Standards.Delete(ctx, strings.TrimSpace(category)); err != nil {
		return err
	}
	slog.Info("standards deleted", "ma_hang", category, "actor", ActorFromContext(ctx))
	return nil
}

// SeedStandards stores the built-in rulesets when the catalog is empty.
// It returns how many rulesets were written.
func (s *Service) SeedStandards(ctx context.Context) (int, error) {
	existing, err := s.deps.Standards.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list standards: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	seed, err := SeedRulesets()
	if err != nil {
		return 0, err
	}
	for _, rs := range seed {
		if _, err := s.deps.Standards.Put(ctx, rs); err != nil {
			return 0, fmt.Errorf("seed standards %s: %w", rs.Category, err)
		}
	}
	return len(seed), nil
}

// ----------------------------------------------------------------------------
// Scores and courses
// ----------------------------------------------------------------------------

// BulkScores returns stored scores for the given codes keyed by
// normalized code.
func (s *Service) BulkScores(ctx context.Context, codes []string) (map[string]ScoreRow, error) {
	normalized := make([]string, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		if c = NormalizeCode(c); c != "" && !seen[c] {
			seen[c] = true
			normalized = append(normalized, c)
		}
	}
	if len(normalized) == 0 {
		return map[string]ScoreRow{}, nil
	}
	return s.deps.Scores.BulkGet(ctx, normalized)
}

// ListCourses returns one page of courses from the task-tracking API.
func (s *Service) ListCourses(ctx context.Context, page int) ([]Course, error) {
	if s.deps.Courses == nil {
		return nil, errors.New("course source not configured")
	}
	if page < 1 {
		page = 1
	}
	callCtx, cancel := context.WithTimeout(ctx, s.opts.UpstreamTimeout)
	defer cancel()
	return s.deps.Courses.ListCourses(callCtx, page)
}

// ListImports returns the most recent score imports.
func (s *Service) ListImports(ctx context.Context, limit int) ([]ImportRecord, error) {
	if s.deps.Imports == nil {
		return nil, nil
	}
	return s.deps.Imports.ListImports(ctx, limit)
}
