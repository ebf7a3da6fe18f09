package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type StudentScore struct {
	MaDk        string
	CabinGio    float64
	CabinBai    float64
	KtLythuyet  float64
	KtMophong   float64
	KtThuchanh  float64
	KtHoanthanh string
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

type ScoringStandard struct {
	MaHang        string
	StandardsData []byte
	ApDungTuNgay  pgtype.Date
	UpdatedAt     pgtype.Timestamptz
}

type ScoreImport struct {
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

type UpstreamToken struct {
	Service   string
	Token     string
	UpdatedAt pgtype.Timestamptz
}

type User struct {
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    pgtype.Timestamptz
}
