package core

// pipeline.go is the course progress entry point.
//
// Flow for one request:
//  1. fetch the LMS report and the task-API roster concurrently, each call
//     under its own timeout
//  2. extract theory records from the report
//  3. look up stored scores for the theory roster
//  4. Merge, then Evaluate each student against their category's ruleset
//
// A failed source contributes nothing and is reported in Sources; the
// request only fails when every source failed.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/traintrack/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Source names reported in SourceStatus.
const (
	SourcePractice   = "task_api"
	SourceScoreStore = "score_store"
)

// CourseRequest identifies the course to load. Category overrides the
// per-student category; CourseName is used as the last category fallback.
type CourseRequest struct {
	CourseID   string `json:"course_id"`
	Category   string `json:"ma_hang,omitempty"`
	CourseName string `json:"course_name,omitempty"`
}

// SourceStatus reports how one upstream source fared.
type SourceStatus struct {
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	Records    int    `json:"records"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// StudentProgress is one evaluated student.
type StudentProgress struct {
	Student    StudentRecord     `json:"student"`
	Record     Record            `json:"record"`
	Category   string            `json:"ma_hang"`
	Compliance Compliance        `json:"compliance"`
	Complete   bool              `json:"complete"`
	Fields     map[string]string `json:"fields"`
}

// CourseDiagnostics collects the side-channel counters of a course load.
type CourseDiagnostics struct {
	Theory            *Diagnostics `json:"theory,omitempty"`
	PracticePages     int          `json:"practice_pages"`
	PracticeTruncated bool         `json:"practice_truncated"`
	PracticeRecords   int          `json:"practice_records"`
	ScoresFound       int          `json:"scores_found"`
	Excluded          []string     `json:"excluded,omitempty"`
	MissingStandards  []string     `json:"missing_standards,omitempty"`
}

// CourseResult is the merged and evaluated course.
type CourseResult struct {
	Success     bool              `json:"success"`
	Partial     bool              `json:"partial"`
	Reason      string            `json:"reason,omitempty"`
	Course      CourseRequest     `json:"course"`
	Sources     []SourceStatus    `json:"sources"`
	Students    []StudentProgress `json:"students"`
	Stats       Stats             `json:"stats"`
	Diagnostics CourseDiagnostics `json:"diagnostics"`
}

// EvaluatedFields lists the record fields a ruleset can constrain, in
// display order.
var EvaluatedFields = []string{
	FieldLaw, FieldEthics, FieldMechanics, FieldTechnique, FieldUpgrade, FieldSimulation,
	FieldCabinHours, FieldCabinLesson,
	FieldOutdoorSeconds, FieldOutdoorMeters, FieldNightSeconds, FieldAutoSeconds,
	FieldExamTheory, FieldExamSim, FieldExamPrac,
}

// LoadCourse runs the full pipeline for one course. It never returns an
// error; failures are reported through Success, Partial and Sources.
func (s *Service) LoadCourse(ctx context.Context, req CourseRequest) CourseResult {
	logger := logging.WithCourse(ctx, req.CourseID, req.Category)
	start := time.Now()

	result := CourseResult{Course: req, Students: []StudentProgress{}}
	if req.CourseID == "" {
		result.Reason = "course id is required"
		return result
	}

	var (
		theory    []Record
		practice  []Record
		theoryRes = SourceStatus{Name: SourceTheory}
		pracRes   = SourceStatus{Name: SourcePractice}
	)

	var g errgroup.Group
	g.Go(func() error {
		begin := time.Now()
		sheet, err := s.fetchTheory(ctx, req.CourseID)
		theoryRes.DurationMS = time.Since(begin).Milliseconds()
		if err != nil {
			theoryRes.Error = err.Error()
			return nil
		}
		theory = sheet.Records()
		theoryRes.OK = true
		theoryRes.Records = len(theory)
		result.Diagnostics.Theory = sheet.Diagnostics
		return nil
	})
	g.Go(func() error {
		begin := time.Now()
		fetched, err := s.fetchPractice(ctx, req.CourseID)
		pracRes.DurationMS = time.Since(begin).Milliseconds()
		result.Diagnostics.PracticePages = fetched.Pages
		result.Diagnostics.PracticeTruncated = fetched.Truncated
		if err != nil {
			pracRes.Error = err.Error()
			return nil
		}
		practice = make([]Record, len(fetched.Records))
		for i, p := range fetched.Records {
			practice[i] = p.Record()
		}
		pracRes.OK = true
		pracRes.Records = len(practice)
		result.Diagnostics.PracticeRecords = len(practice)
		return nil
	})
	_ = g.Wait()

	result.Sources = []SourceStatus{theoryRes, pracRes}
	if !theoryRes.OK && !pracRes.OK {
		result.Reason = "all upstream sources failed: " + theoryRes.Error + "; " + pracRes.Error
		logger.Warn("course load failed", "reason", result.Reason)
		return result
	}

	scores, scoreRes := s.lookupScores(ctx, theory)
	result.Sources = append(result.Sources, scoreRes)
	result.Diagnostics.ScoresFound = len(scores)

	merged := Merge(theory, practice, scores)
	result.Diagnostics.Excluded = Excluded(theory, practice, scores)

	rulesets := make(map[string]*Ruleset)
	missing := make(map[string]bool)
	for _, rec := range merged {
		student := rec.Student()
		category := ResolveCategory(req.Category, student.Category, req.CourseName)

		rs, cached := rulesets[category]
		if !cached {
			rs = s.ruleset(ctx, category)
			rulesets[category] = rs
			if rs == nil && category != "" && !missing[category] {
				missing[category] = true
				result.Diagnostics.MissingStandards = append(result.Diagnostics.MissingStandards, category)
			}
		}

		comp := Evaluate(student, rs)
		result.Stats.Add(comp)
		result.Students = append(result.Students, StudentProgress{
			Student:    student,
			Record:     rec,
			Category:   category,
			Compliance: comp,
			Complete:   comp.Complete(),
			Fields:     fieldStatuses(comp),
		})
	}

	result.Success = true
	for _, src := range result.Sources {
		if !src.OK {
			result.Partial = true
		}
	}
	if !theoryRes.OK {
		result.Reason = "theory roster unavailable: " + theoryRes.Error
	}

	logger.Info("course loaded",
		"students", len(result.Students),
		"complete", result.Stats.Complete,
		"partial", result.Partial,
		"excluded", len(result.Diagnostics.Excluded),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result
}

func (s *Service) fetchTheory(ctx context.Context, courseID string) (TheorySheet, error) {
	if s.deps.Theory == nil {
		return TheorySheet{}, errors.New("lms source not configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.UpstreamTimeout)
	defer cancel()

	data, err := s.deps.Theory.FetchReport(callCtx, courseID)
	if err != nil {
		return TheorySheet{}, fmt.Errorf("fetch lms report: %w", err)
	}
	return ExtractTheory(data)
}

// PracticeFetch is the outcome of a bounded roster fetch.
type PracticeFetch struct {
	Records   []PracticeRecord
	Pages     int
	Truncated bool
}

func (s *Service) fetchPractice(ctx context.Context, courseID string) (PracticeFetch, error) {
	if s.deps.Practice == nil {
		return PracticeFetch{}, errors.New("task api source not configured")
	}
	return FetchAllPractice(ctx, s.deps.Practice, courseID, s.opts.MaxPages, s.opts.UpstreamTimeout)
}

// FetchAllPractice pages through the roster starting at page 1 until an
// empty page, stopping after maxPages with Truncated set. Each page call
// runs under its own timeout. Any page failure fails the whole fetch.
func FetchAllPractice(ctx context.Context, src PracticeSource, courseID string, maxPages int, timeout time.Duration) (PracticeFetch, error) {
	var out PracticeFetch
	for page := 1; ; page++ {
		if page > maxPages {
			out.Truncated = true
			logging.FromContext(ctx).Warn("practice roster truncated",
				"course_id", courseID,
				"max_pages", maxPages,
			)
			return out, nil
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		res, err := src.FetchPage(callCtx, courseID, page)
		cancel()
		if err != nil {
			return PracticeFetch{Pages: out.Pages}, fmt.Errorf("fetch task api page %d: %w", page, err)
		}

		out.Pages++
		if len(res.Items) == 0 {
			return out, nil
		}
		out.Records = append(out.Records, res.Items...)
	}
}

func (s *Service) lookupScores(ctx context.Context, theory []Record) (map[string]Record, SourceStatus) {
	status := SourceStatus{Name: SourceScoreStore}
	begin := time.Now()

	codes := make([]string, 0, len(theory))
	for _, t := range theory {
		if c := t.Code(); c != "" {
			codes = append(codes, c)
		}
	}
	if len(codes) == 0 {
		status.OK = true
		return nil, status
	}

	rows, err := s.BulkScores(ctx, codes)
	if err != nil {
		status.Error = err.Error()
		logging.FromContext(ctx).Warn("score lookup failed", "error", err)
		status.DurationMS = time.Since(begin).Milliseconds()
		return nil, status
	}

	out := make(map[string]Record, len(rows))
	for code, row := range rows {
		out[code] = row.Record()
	}
	status.OK = true
	status.Records = len(out)
	status.DurationMS = time.Since(begin).Milliseconds()
	return out, status
}

// ruleset loads the category's ruleset; a missing or unreadable entry is
// nil so students evaluate as unknown.
func (s *Service) ruleset(ctx context.Context, category string) *Ruleset {
	if category == "" {
		return nil
	}
	rs, err := s.deps.Standards.Get(ctx, category)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logging.FromContext(ctx).Warn("standards lookup failed", "ma_hang", category, "error", err)
		}
		return nil
	}
	return rs.WithDefaults()
}

func fieldStatuses(c Compliance) map[string]string {
	out := make(map[string]string, len(EvaluatedFields))
	for _, f := range EvaluatedFields {
		out[f] = c.Status(f)
	}
	return out
}
