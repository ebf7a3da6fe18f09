package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/traintrack/internal/logging"
	"github.com/google/uuid"
)

// FailedRecord is a score row the store rejected.
type FailedRecord struct {
	Code   string `json:"ma_dk"`
	Reason string `json:"reason"`
}

// ImportResult summarizes one score import.
type ImportResult struct {
	ID          uuid.UUID      `json:"id"`
	FileName    string         `json:"file_name"`
	Total       int            `json:"total"`
	Filtered    int            `json:"filtered"`
	Processed   int            `json:"processed"`
	Inserted    int            `json:"inserted"`
	Updated     int            `json:"updated"`
	Skipped     int            `json:"skipped"`
	Failed      []FailedRecord `json:"failed"`
	Diagnostics *Diagnostics   `json:"diagnostics"`
	DurationMS  int64          `json:"duration_ms"`
}

// ParseScores extracts score records without persisting them.
func (s *Service) ParseScores(data []byte) (ScoreSheet, error) {
	return ExtractScores(data)
}

// ImportScores parses a score sheet and upserts every row that carries a
// value. Store failures are collected per row and never abort the batch.
// An unreadable sheet, or one with no usable rows, returns an error and
// writes nothing.
func (s *Service) ImportScores(ctx context.Context, fileName string, data []byte) (ImportResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return ImportResult{}, err
	}
	defer s.limiter.Release()

	start := time.Now()
	id := uuid.New()
	logger := logging.WithFields(ctx,
		"import_id", id.String(),
		"file", fileName,
		"actor", ActorFromContext(ctx),
		"ip", IPAddressFromContext(ctx),
	)

	sheet, err := ExtractScores(data)
	if err != nil {
		logger.Warn("score import rejected", "error", err)
		return ImportResult{}, err
	}

	result := ImportResult{
		ID:          id,
		FileName:    fileName,
		Total:       len(sheet.Records),
		Failed:      []FailedRecord{},
		Diagnostics: sheet.Diagnostics,
	}

	var rows []ScoreRow
	for _, row := range sheet.Rows() {
		if !row.HasData() {
			result.Skipped++
			continue
		}
		rows = append(rows, row)
	}
	result.Filtered = len(rows)
	if len(rows) == 0 {
		return ImportResult{}, &ExtractionError{Source: SourceScores, Reason: "no valid records after filtering"}
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			result.Failed = append(result.Failed, FailedRecord{Code: row.Code, Reason: err.Error()})
			continue
		}
		inserted, err := s.deps.Scores.Upsert(ctx, row)
		if err != nil {
			result.Failed = append(result.Failed, FailedRecord{Code: row.Code, Reason: MapError(err).Message})
			logger.Debug("score upsert failed", "ma_dk", row.Code, "error", err)
			continue
		}
		result.Processed++
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}
	result.DurationMS = time.Since(start).Milliseconds()

	if s.deps.Imports != nil {
		rec := ImportRecord{
			ID:         id,
			FileName:   fileName,
			Total:      result.Total,
			Processed:  result.Processed,
			Inserted:   result.Inserted,
			Updated:    result.Updated,
			Skipped:    result.Skipped,
			Failed:     len(result.Failed),
			ImportedBy: ActorFromContext(ctx),
			ImportedAt: start.UTC(),
		}
		if err := s.deps.Imports.RecordImport(ctx, rec); err != nil {
			logger.Warn("import history not recorded", "error", err)
		}
	}

	logger.Info("score import completed",
		"total", result.Total,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"failed", len(result.Failed),
		"malformed_cells", sheet.Diagnostics.MalformedTotal(),
		"duration_ms", result.DurationMS,
	)
	return result, nil
}
