// Package store implements the core and auth persistence interfaces on
// PostgreSQL, plus in-memory versions for the report command and tests.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/traintrack/internal/auth"
	"github.com/JonMunkholm/traintrack/internal/core"
	db "github.com/JonMunkholm/traintrack/internal/database"
)

// Postgres implements core.StandardsCatalog, core.ScoreStore,
// core.ImportLog, auth.UserStore and the upstream token store.
type Postgres struct {
	q *db.Queries
}

// NewPostgres wraps a pool or transaction.
func NewPostgres(conn db.DBTX) *Postgres {
	return &Postgres{q: db.New(conn)}
}

var (
	_ core.StandardsCatalog = (*Postgres)(nil)
	_ core.ScoreStore       = (*Postgres)(nil)
	_ core.ImportLog        = (*Postgres)(nil)
	_ auth.UserStore        = (*Postgres)(nil)
)

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return err
}

// ----------------------------------------------------------------------------
// Standards
// ----------------------------------------------------------------------------

func (p *Postgres) Get(ctx context.Context, category string) (*core.Ruleset, error) {
	row, err := p.q.GetStandard(ctx, category)
	if err != nil {
		return nil, notFound(err, "standards "+category)
	}
	return decodeStandard(row)
}

func (p *Postgres) List(ctx context.Context) ([]*core.Ruleset, error) {
	rows, err := p.q.ListStandards(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*core.Ruleset, 0, len(rows))
	for _, row := range rows {
		rs, err := decodeStandard(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, nil
}

func (p *Postgres) Put(ctx context.Context, rs *core.Ruleset) (bool, error) {
	data, err := json.Marshal(rs)
	if err != nil {
		return false, fmt.Errorf("encode standards: %w", err)
	}
	var from pgtype.Date
	if rs.EffectiveFrom != "" {
		t, err := time.Parse("2006-01-02", rs.EffectiveFrom)
		if err != nil {
			return false, fmt.Errorf("%w: ap_dung_tu_ngay %q", core.ErrInvalidRuleset, rs.EffectiveFrom)
		}
		from = pgtype.Date{Time: t, Valid: true}
	}
	res, err := p.q.UpsertStandard(ctx, db.UpsertStandardParams{
		MaHang:        rs.Category,
		StandardsData: data,
		ApDungTuNgay:  from,
	})
	if err != nil {
		return false, err
	}
	rs.UpdatedAt = res.UpdatedAt.Time
	return res.Created, nil
}

func (p *Postgres) Delete(ctx context.Context, category string) error {
	n, err := p.q.DeleteStandard(ctx, category)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("standards %s: %w", category, core.ErrNotFound)
	}
	return nil
}

func decodeStandard(row db.ScoringStandard) (*core.Ruleset, error) {
	var rs core.Ruleset
	if err := json.Unmarshal(row.StandardsData, &rs); err != nil {
		return nil, fmt.Errorf("decode standards %s: %w", row.MaHang, err)
	}
	rs.Category = row.MaHang
	if row.ApDungTuNgay.Valid {
		rs.EffectiveFrom = row.ApDungTuNgay.Time.Format("2006-01-02")
	}
	rs.UpdatedAt = row.UpdatedAt.Time
	return &rs, nil
}

// ----------------------------------------------------------------------------
// Scores
// ----------------------------------------------------------------------------

func (p *Postgres) Upsert(ctx context.Context, row core.ScoreRow) (bool, error) {
	return p.q.UpsertScore(ctx, db.UpsertScoreParams{
		MaDk:        row.Code,
		CabinGio:    row.CabinHours,
		CabinBai:    row.CabinLessons,
		KtLythuyet:  row.ExamTheory,
		KtMophong:   row.ExamSim,
		KtThuchanh:  row.ExamPrac,
		KtHoanthanh: row.Completion,
	})
}

func (p *Postgres) BulkGet(ctx context.Context, codes []string) (map[string]core.ScoreRow, error) {
	rows, err := p.q.GetScoresByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}
	out := make(map[string]core.ScoreRow, len(rows))
	for _, r := range rows {
		out[r.MaDk] = core.ScoreRow{
			Code:         r.MaDk,
			CabinHours:   r.CabinGio,
			CabinLessons: r.CabinBai,
			ExamTheory:   r.KtLythuyet,
			ExamSim:      r.KtMophong,
			ExamPrac:     r.KtThuchanh,
			Completion:   r.KtHoanthanh,
		}
	}
	return out, nil
}

// ----------------------------------------------------------------------------
// Import history
// ----------------------------------------------------------------------------

func (p *Postgres) RecordImport(ctx context.Context, rec core.ImportRecord) error {
	return p.q.InsertScoreImport(ctx, db.InsertScoreImportParams{
		ID:         pgtype.UUID{Bytes: rec.ID, Valid: true},
		FileName:   rec.FileName,
		Total:      int32(rec.Total),
		Processed:  int32(rec.Processed),
		Inserted:   int32(rec.Inserted),
		Updated:    int32(rec.Updated),
		Skipped:    int32(rec.Skipped),
		Failed:     int32(rec.Failed),
		ImportedBy: toPgText(rec.ImportedBy),
		ImportedAt: pgtype.Timestamptz{Time: rec.ImportedAt, Valid: true},
	})
}

func (p *Postgres) ListImports(ctx context.Context, limit int) ([]core.ImportRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := p.q.ListScoreImports(ctx, int32(limit))
	if err != nil {
		return nil, err
	}
	out := make([]core.ImportRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.ImportRecord{
			ID:         r.ID.Bytes,
			FileName:   r.FileName,
			Total:      int(r.Total),
			Processed:  int(r.Processed),
			Inserted:   int(r.Inserted),
			Updated:    int(r.Updated),
			Skipped:    int(r.Skipped),
			Failed:     int(r.Failed),
			ImportedBy: r.ImportedBy.String,
			ImportedAt: r.ImportedAt.Time,
		})
	}
	return out, nil
}

func (p *Postgres) PurgeImports(ctx context.Context, before time.Time) (int64, error) {
	return p.q.PurgeScoreImports(ctx, pgtype.Timestamptz{Time: before, Valid: true})
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ----------------------------------------------------------------------------
// Upstream tokens
// ----------------------------------------------------------------------------

// Token returns the stored token for service, or an empty string.
func (p *Postgres) Token(ctx context.Context, service string) (string, error) {
	row, err := p.q.GetUpstreamToken(ctx, service)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Token, nil
}

func (p *Postgres) SaveToken(ctx context.Context, service, token string) error {
	return p.q.UpsertUpstreamToken(ctx, db.UpsertUpstreamTokenParams{Service: service, Token: token})
}

// ----------------------------------------------------------------------------
// Users
// ----------------------------------------------------------------------------

func (p *Postgres) GetUser(ctx context.Context, username string) (auth.User, error) {
	row, err := p.q.GetUser(ctx, username)
	if err != nil {
		return auth.User{}, notFound(err, "user "+username)
	}
	return toUser(row), nil
}

func (p *Postgres) ListUsers(ctx context.Context) ([]auth.User, error) {
	rows, err := p.q.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]auth.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, toUser(r))
	}
	return out, nil
}

func (p *Postgres) PutUser(ctx context.Context, u auth.User) error {
	return p.q.UpsertUser(ctx, db.UpsertUserParams{
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
	})
}

func (p *Postgres) DeleteUser(ctx context.Context, username string) error {
	n, err := p.q.DeleteUser(ctx, username)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", username, core.ErrNotFound)
	}
	return nil
}

func (p *Postgres) CountUsers(ctx context.Context) (int64, error) {
	return p.q.CountUsers(ctx)
}

func toUser(r db.User) auth.User {
	return auth.User{
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Role:         auth.Role(r.Role),
		CreatedAt:    r.CreatedAt.Time,
	}
}
