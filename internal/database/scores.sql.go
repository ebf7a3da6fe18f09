package database

import (
	"context"
)

const upsertScore = `-- name: UpsertScore :one
INSERT INTO student_scores (ma_dk, cabin_gio, cabin_bai, kt_lythuyet, kt_mophong, kt_thuchanh, kt_hoanthanh)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (ma_dk) DO UPDATE SET
    cabin_gio    = EXCLUDED.cabin_gio,
    cabin_bai    = EXCLUDED.cabin_bai,
    kt_lythuyet  = EXCLUDED.kt_lythuyet,
    kt_mophong   = EXCLUDED.kt_mophong,
    kt_thuchanh  = EXCLUDED.kt_thuchanh,
    kt_hoanthanh = EXCLUDED.kt_hoanthanh,
    updated_at   = now()
RETURNING (xmax = 0) AS inserted
`

type UpsertScoreParams struct {
	MaDk        string
	CabinGio    float64
	CabinBai    float64
	KtLythuyet  float64
	KtMophong   float64
	KtThuchanh  float64
	KtHoanthanh string
}

// UpsertScore reports true when the row was inserted rather than updated.
func (q *Queries) UpsertScore(ctx context.Context, arg UpsertScoreParams) (bool, error) {
	row := q.db.QueryRow(ctx, upsertScore,
		arg.MaDk,
		arg.CabinGio,
		arg.CabinBai,
		arg.KtLythuyet,
		arg.KtMophong,
		arg.KtThuchanh,
		arg.KtHoanthanh,
	)
	var inserted bool
	err := row.Scan(&inserted)
	return inserted, err
}

const getScoresByCodes = `-- name: GetScoresByCodes :many
SELECT ma_dk, cabin_gio, cabin_bai, kt_lythuyet, kt_mophong, kt_thuchanh, kt_hoanthanh, created_at, updated_at
FROM student_scores
WHERE ma_dk = ANY($1::text[])
`

func (q *Queries) GetScoresByCodes(ctx context.Context, codes []string) ([]StudentScore, error) {
	rows, err := q.db.Query(ctx, getScoresByCodes, codes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []StudentScore
	for rows.Next() {
		var i StudentScore
		if err := rows.Scan(
			&i.MaDk,
			&i.CabinGio,
			&i.CabinBai,
			&i.KtLythuyet,
			&i.KtMophong,
			&i.KtThuchanh,
			&i.KtHoanthanh,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
