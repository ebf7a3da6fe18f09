package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

type fakeStandards struct {
	mu   sync.Mutex
	sets map[string]*Ruleset
}

func newFakeStandards(sets ...*Ruleset) *fakeStandards {
	f := &fakeStandards{sets: make(map[string]*Ruleset)}
	for _, rs := range sets {
		f.sets[rs.Category] = rs
	}
	return f
}

func (f *fakeStandards) Get(_ context.Context, category string) (*Ruleset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rs, ok := f.sets[category]
	if !ok {
		return nil, fmt.Errorf("standards %s: %w", category, ErrNotFound)
	}
	return rs, nil
}

func (f *fakeStandards) List(context.Context) ([]*Ruleset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Ruleset, 0, len(f.sets))
	for _, rs := range f.sets {
		out = append(out, rs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (f *fakeStandards) Put(_ context.Context, rs *Ruleset) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, exists := f.sets[rs.Category]
	f.sets[rs.Category] = rs
	return !exists, nil
}

func (f *fakeStandards) Delete(_ context.Context, category string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sets[category]; !ok {
		return ErrNotFound
	}
	delete(f.sets, category)
	return nil
}

type fakeScores struct {
	mu   sync.Mutex
	rows map[string]ScoreRow
	fail map[string]bool
	err  error
}

func newFakeScores() *fakeScores {
	return &fakeScores{rows: make(map[string]ScoreRow), fail: make(map[string]bool)}
}

func (f *fakeScores) Upsert(_ context.Context, row ScoreRow) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[row.Code] {
		return false, errors.New("ERROR: deadlock detected")
	}
	_, exists := f.rows[row.Code]
	f.rows[row.Code] = row
	return !exists, nil
}

func (f *fakeScores) BulkGet(_ context.Context, codes []string) (map[string]ScoreRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]ScoreRow)
	for _, c := range codes {
		if r, ok := f.rows[c]; ok {
			out[c] = r
		}
	}
	return out, nil
}

type fakeImports struct {
	mu      sync.Mutex
	records []ImportRecord
	purged  []time.Time
}

func (f *fakeImports) RecordImport(_ context.Context, rec ImportRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeImports) ListImports(_ context.Context, limit int) ([]ImportRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.records) {
		limit = len(f.records)
	}
	return append([]ImportRecord(nil), f.records[:limit]...), nil
}

func (f *fakeImports) PurgeImports(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purged = append(f.purged, before)
	return 0, nil
}

func (f *fakeImports) purgeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.purged)
}

// fakeTheory returns a fixed report, or blocks until the call context ends
// when block is set.
type fakeTheory struct {
	data  []byte
	err   error
	block bool
}

func (f *fakeTheory) FetchReport(ctx context.Context, _ string) ([]byte, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.data, f.err
}

// fakePractice serves pages[page-1]; pages past the end are empty unless
// endless is set.
type fakePractice struct {
	mu      sync.Mutex
	pages   [][]PracticeRecord
	failAt  int
	endless bool
	block   bool
	calls   int
}

func (f *fakePractice) FetchPage(ctx context.Context, _ string, page int) (PracticePage, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return PracticePage{}, ctx.Err()
	}
	if f.failAt > 0 && page == f.failAt {
		return PracticePage{}, errors.New("jira: upstream status 502")
	}
	if f.endless {
		return PracticePage{Items: []PracticeRecord{{Code: fmt.Sprintf("P%d", page)}}}, nil
	}
	if page > len(f.pages) {
		return PracticePage{}, nil
	}
	return PracticePage{Items: f.pages[page-1]}, nil
}
