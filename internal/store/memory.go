package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/traintrack/internal/auth"
	"github.com/JonMunkholm/traintrack/internal/core"
)

// Memory is an in-process store with the same semantics as Postgres.
// The zero value is not usable; call NewMemory.
type Memory struct {
	mu        sync.RWMutex
	standards map[string]core.Ruleset
	scores    map[string]core.ScoreRow
	imports   []core.ImportRecord
	tokens    map[string]string
	users     map[string]auth.User
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		standards: make(map[string]core.Ruleset),
		scores:    make(map[string]core.ScoreRow),
		tokens:    make(map[string]string),
		users:     make(map[string]auth.User),
		now:       time.Now,
	}
}

var (
	_ core.StandardsCatalog = (*Memory)(nil)
	_ core.ScoreStore       = (*Memory)(nil)
	_ core.ImportLog        = (*Memory)(nil)
	_ auth.UserStore        = (*Memory)(nil)
)

func (m *Memory) Get(_ context.Context, category string) (*core.Ruleset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rs, ok := m.standards[category]
	if !ok {
		return nil, fmt.Errorf("standards %s: %w", category, core.ErrNotFound)
	}
	return cloneRuleset(rs), nil
}

func (m *Memory) List(_ context.Context) ([]*core.Ruleset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.Ruleset, 0, len(m.standards))
	for _, rs := range m.standards {
		out = append(out, cloneRuleset(rs))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (m *Memory) Put(_ context.Context, rs *core.Ruleset) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.standards[rs.Category]
	rs.UpdatedAt = m.now()
	m.standards[rs.Category] = *cloneRuleset(*rs)
	return !exists, nil
}

func (m *Memory) Delete(_ context.Context, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.standards[category]; !ok {
		return fmt.Errorf("standards %s: %w", category, core.ErrNotFound)
	}
	delete(m.standards, category)
	return nil
}

func cloneRuleset(rs core.Ruleset) *core.Ruleset {
	out := rs
	for _, name := range core.Sections {
		src := rs.Section(name)
		if src == nil {
			continue
		}
		dst := make(core.Section, len(src))
		for k, v := range src {
			dst[k] = v
		}
		switch name {
		case core.SectionTheory:
			out.Theory = dst
		case core.SectionCabin:
			out.Cabin = dst
		case core.SectionPractice:
			out.Practice = dst
		case core.SectionExam:
			out.Exam = dst
		}
	}
	return &out
}

func (m *Memory) Upsert(_ context.Context, row core.ScoreRow) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.scores[row.Code]
	m.scores[row.Code] = row
	return !exists, nil
}

func (m *Memory) BulkGet(_ context.Context, codes []string) (map[string]core.ScoreRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]core.ScoreRow, len(codes))
	for _, c := range codes {
		if row, ok := m.scores[c]; ok {
			out[c] = row
		}
	}
	return out, nil
}

// ScoreCount returns the number of stored score rows.
func (m *Memory) ScoreCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.scores)
}

func (m *Memory) RecordImport(_ context.Context, rec core.ImportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imports = append(m.imports, rec)
	return nil
}

func (m *Memory) ListImports(_ context.Context, limit int) ([]core.ImportRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Clone(m.imports)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ImportedAt.After(out[j].ImportedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) PurgeImports(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.imports[:0]
	var purged int64
	for _, rec := range m.imports {
		if rec.ImportedAt.Before(before) {
			purged++
			continue
		}
		kept = append(kept, rec)
	}
	m.imports = kept
	return purged, nil
}

func (m *Memory) Token(_ context.Context, service string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens[service], nil
}

func (m *Memory) SaveToken(_ context.Context, service, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[service] = token
	return nil
}

func (m *Memory) GetUser(_ context.Context, username string) (auth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return auth.User{}, fmt.Errorf("user %s: %w", username, core.ErrNotFound)
	}
	return u, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]auth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]auth.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *Memory) PutUser(_ context.Context, u auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.users[u.Username]; ok && u.CreatedAt.IsZero() {
		u.CreatedAt = prev.CreatedAt
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now()
	}
	m.users[u.Username] = u
	return nil
}

func (m *Memory) DeleteUser(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; !ok {
		return fmt.Errorf("user %s: %w", username, core.ErrNotFound)
	}
	delete(m.users, username)
	return nil
}

func (m *Memory) CountUsers(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}
