package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getStandard = `-- name: GetStandard :one
SELECT ma_hang, standards_data, ap_dung_tu_ngay, updated_at
FROM scoring_standards
WHERE ma_hang = $1
`

func (q *Queries) GetStandard(ctx context.Context, maHang string) (ScoringStandard, error) {
	row := q.db.QueryRow(ctx, getStandard, maHang)
	var i ScoringStandard
	err := row.Scan(&i.MaHang, &i.StandardsData, &i.ApDungTuNgay, &i.UpdatedAt)
	return i, err
}

const listStandards = `-- name: ListStandards :many
SELECT ma_hang, standards_data, ap_dung_tu_ngay, updated_at
FROM scoring_standards
ORDER BY ma_hang
`

func (q *Queries) ListStandards(ctx context.Context) ([]ScoringStandard, error) {
	rows, err := q.db.Query(ctx, listStandards)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScoringStandard
	for rows.Next() {
		var i ScoringStandard
		if err := rows.Scan(&i.MaHang, &i.StandardsData, &i.ApDungTuNgay, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertStandard = `-- name: UpsertStandard :one
INSERT INTO scoring_standards (ma_hang, standards_data, ap_dung_tu_ngay, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (ma_hang) DO UPDATE SET
    standards_data  = EXCLUDED.standards_data,
    ap_dung_tu_ngay = EXCLUDED.ap_dung_tu_ngay,
    updated_at      = now()
RETURNING (xmax = 0) AS created, updated_at
`

type UpsertStandardParams struct {
	MaHang        string
	StandardsData []byte
	ApDungTuNgay  pgtype.Date
}

type UpsertStandardRow struct {
	Created   bool
	UpdatedAt pgtype.Timestamptz
}

func (q *Queries) UpsertStandard(ctx context.Context, arg UpsertStandardParams) (UpsertStandardRow, error) {
	row := q.db.QueryRow(ctx, upsertStandard, arg.MaHang, arg.StandardsData, arg.ApDungTuNgay)
	var i UpsertStandardRow
	err := row.Scan(&i.Created, &i.UpdatedAt)
	return i, err
}

const deleteStandard = `-- name: DeleteStandard :execrows
DELETE FROM scoring_standards WHERE ma_hang = $1
`

func (q *Queries) DeleteStandard(ctx context.Context, maHang string) (int64, error) {
	result, err := q.db.Exec(ctx, deleteStandard, maHang)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
