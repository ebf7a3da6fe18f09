package database

import (
	"context"
)

const getUpstreamToken = `-- name: GetUpstreamToken :one
SELECT service, token, updated_at FROM upstream_tokens WHERE service = $1
`

func (q *Queries) GetUpstreamToken(ctx context.Context, service string) (UpstreamToken, error) {
	row := q.db.QueryRow(ctx, getUpstreamToken, service)
	var i UpstreamToken
	err := row.Scan(&i.Service, &i.Token, &i.UpdatedAt)
	return i, err
}

const upsertUpstreamToken = `-- name: UpsertUpstreamToken :exec
INSERT INTO upstream_tokens (service, token, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (service) DO UPDATE SET token = EXCLUDED.token, updated_at = now()
`

type UpsertUpstreamTokenParams struct {
	Service string
	Token   string
}

func (q *Queries) UpsertUpstreamToken(ctx context.Context, arg UpsertUpstreamTokenParams) error {
	_, err := q.db.Exec(ctx, upsertUpstreamToken, arg.Service, arg.Token)
	return err
}

const getUser = `-- name: GetUser :one
SELECT username, password_hash, role, created_at FROM users WHERE username = $1
`

func (q *Queries) GetUser(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRow(ctx, getUser, username)
	var i User
	err := row.Scan(&i.Username, &i.PasswordHash, &i.Role, &i.CreatedAt)
	return i, err
}

const listUsers = `-- name: ListUsers :many
SELECT username, password_hash, role, created_at FROM users ORDER BY username
`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		var i User
		if err := rows.Scan(&i.Username, &i.PasswordHash, &i.Role, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countUsers = `-- name: CountUsers :one
SELECT count(*) FROM users
`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countUsers)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const upsertUser = `-- name: UpsertUser :exec
INSERT INTO users (username, password_hash, role)
VALUES ($1, $2, $3)
ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash, role = EXCLUDED.role
`

type UpsertUserParams struct {
	Username     string
	PasswordHash string
	Role         string
}

func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) error {
	_, err := q.db.Exec(ctx, upsertUser, arg.Username, arg.PasswordHash, arg.Role)
	return err
}

const deleteUser = `-- name: DeleteUser :execrows
DELETE FROM users WHERE username = $1
`

func (q *Queries) DeleteUser(ctx context.Context, username string) (int64, error) {
	result, err := q.db.Exec(ctx, deleteUser, username)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
