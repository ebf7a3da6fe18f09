package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertScoreImport = `-- name: InsertScoreImport :exec
INSERT INTO score_imports (id, file_name, total, processed, inserted, updated, skipped, failed, imported_by, imported_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

type InsertScoreImportParams struct {
	ID         pgtype.UUID
	FileName   string
	Total      int32
	Processed  int32
	Inserted   int32
	Updated    int32
	Skipped    int32
	Failed     int32
	ImportedBy pgtype.Text
	ImportedAt pgtype.Timestamptz
}

func (q *Queries) InsertScoreImport(ctx context.Context, arg InsertScoreImportParams) error {
	_, err := q.db.Exec(ctx, insertScoreImport,
		arg.ID,
		arg.FileName,
		arg.Total,
		arg.Processed,
		arg.Inserted,
		arg.Updated,
		arg.Skipped,
		arg.Failed,
		arg.ImportedBy,
		arg.ImportedAt,
	)
	return err
}

const listScoreImports = `-- name: ListScoreImports :many
SELECT id, file_name, total, processed, inserted, updated, skipped, failed, imported_by, imported_at
FROM score_imports
ORDER BY imported_at DESC
LIMIT $1
`

func (q *Queries) ListScoreImports(ctx context.Context, limit int32) ([]ScoreImport, error) {
	rows, err := q.db.Query(ctx, listScoreImports, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScoreImport
	for rows.Next() {
		var i ScoreImport
		if err := rows.Scan(
			&i.ID,
			&i.FileName,
			&i.Total,
			&i.Processed,
			&i.Inserted,
			&i.Updated,
			&i.Skipped,
			&i.Failed,
			&i.ImportedBy,
			&i.ImportedAt,
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

const purgeScoreImports = `-- name: PurgeScoreImports :execrows
DELETE FROM score_imports WHERE imported_at < $1
`

func (q *Queries) PurgeScoreImports(ctx context.Context, before pgtype.Timestamptz) (int64, error) {
	result, err := q.db.Exec(ctx, purgeScoreImports, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
