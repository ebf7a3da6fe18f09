package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewService_RequiresStores(t *testing.T) {
	if _, err := NewService(Deps{Scores: newFakeScores()}, Options{}); err == nil {
		t.Error("NewService() without standards succeeded")
	}
	if _, err := NewService(Deps{Standards: newFakeStandards()}, Options{}); err == nil {
		t.Error("NewService() without scores succeeded")
	}
}

func TestService_Standards(t *testing.T) {
	svc := newTestService(t, Deps{}, Options{})
	ctx := context.Background()

	rs := &Ruleset{Category: " B2 ", Cabin: Section{"gio": {Min: 3, Required: true}}}
	saved, created, err := svc.PutStandard(ctx, rs)
	if err != nil {
		t.Fatalf("PutStandard() error = %v", err)
	}
	if !created || saved.Category != "B2" {
		t.Errorf("PutStandard() = %+v, created %v", saved, created)
	}

	_, created, err = svc.PutStandard(ctx, &Ruleset{Category: "B2"})
	if err != nil || created {
		t.Errorf("second PutStandard() created = %v, err = %v", created, err)
	}

	got, err := svc.GetStandard(ctx, "B2")
	if err != nil {
		t.Fatalf("GetStandard() error = %v", err)
	}
	if len(got.Theory) != len(TheorySubjects) {
		t.Errorf("GetStandard() theory = %v, want defaults filled", got.Theory)
	}

	if _, _, err := svc.PutStandard(ctx, &Ruleset{Category: "B2", Exam: Section{"bogus": {}}}); !errors.Is(err, ErrInvalidRuleset) {
		t.Errorf("PutStandard(invalid) error = %v", err)
	}

	if err := svc.DeleteStandard(ctx, "B2"); err != nil {
		t.Fatalf("DeleteStandard() error = %v", err)
	}
	if _, err := svc.GetStandard(ctx, "B2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetStandard() after delete error = %v", err)
	}
}

func TestService_SeedStandards(t *testing.T) {
	svc := newTestService(t, Deps{}, Options{})
	ctx := context.Background()

	n, err := svc.SeedStandards(ctx)
	if err != nil || n == 0 {
		t.Fatalf("SeedStandards() = %d, %v", n, err)
	}
	again, err := svc.SeedStandards(ctx)
	if err != nil || again != 0 {
		t.Errorf("second SeedStandards() = %d, %v; want 0, nil", again, err)
	}

	list, err := svc.ListStandards(ctx)
	if err != nil || len(list) != n {
		t.Errorf("ListStandards() = %d entries, %v; want %d", len(list), err, n)
	}
}

func TestService_BulkScores(t *testing.T) {
	scores := newFakeScores()
	scores.rows["HV001"] = ScoreRow{Code: "HV001", ExamSim: 40}
	svc := newTestService(t, Deps{Scores: scores}, Options{})

	got, err := svc.BulkScores(context.Background(), []string{" hv001", "HV001", "", "HV404"})
	if err != nil {
		t.Fatalf("BulkScores() error = %v", err)
	}
	if len(got) != 1 || got["HV001"].ExamSim != 40 {
		t.Errorf("BulkScores() = %v", got)
	}

	empty, err := svc.BulkScores(context.Background(), []string{" "})
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("BulkScores(blank) = %v, %v", empty, err)
	}
}

func TestService_ListCoursesUnconfigured(t *testing.T) {
	svc := newTestService(t, Deps{}, Options{})
	if _, err := svc.ListCourses(context.Background(), 1); err == nil {
		t.Error("ListCourses() without a source succeeded")
	}
}

func TestStartRetentionScheduler(t *testing.T) {
	imports := &fakeImports{}
	svc := newTestService(t, Deps{Imports: imports}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.StartRetentionScheduler(ctx, RetentionConfig{ImportHistoryDays: 30, CheckInterval: 20 * time.Millisecond})
		close(done)
	}()

	deadline := time.After(time.Second)
	for imports.purgeCalls() < 2 {
		select {
		case <-deadline:
			t.Fatalf("purge ran %d times, want at least 2", imports.purgeCalls())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	imports.mu.Lock()
	cutoff := imports.purged[0]
	imports.mu.Unlock()
	if age := time.Since(cutoff); age < 29*24*time.Hour || age > 31*24*time.Hour {
		t.Errorf("cutoff age = %v, want ~30 days", age)
	}
}

func TestStartRetentionScheduler_Disabled(t *testing.T) {
	svc := newTestService(t, Deps{}, Options{})
	done := make(chan struct{})
	go func() {
		svc.StartRetentionScheduler(context.Background(), RetentionConfig{ImportHistoryDays: 30, CheckInterval: time.Hour})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("scheduler without an import log did not return")
	}
}
