package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/JonMunkholm/traintrack/internal/core"
	"github.com/JonMunkholm/traintrack/internal/export"
)

// readUpload returns the bytes and name of the "file" form field after
// checking size and extension.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, "", fmt.Errorf("%w: limit %d bytes", errTooLarge, maxSize)
		}
		return nil, "", fmt.Errorf("%w: %v", errNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errNoFile
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !slices.Contains(s.cfg.Upload.Extensions, ext) {
		return nil, "", fmt.Errorf("%w: %q", errFileType, ext)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty file", errNoFile)
	}
	return data, header.Filename, nil
}

type previewResponse struct {
	FileName    string            `json:"file_name"`
	Rows        []core.ScoreRow   `json:"rows"`
	WithData    int               `json:"with_data"`
	Diagnostics *core.Diagnostics `json:"diagnostics"`
}

func (s *Server) handleScorePreview(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	sheet, err := s.service.ParseScores(data)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	rows := sheet.Rows()
	withData := 0
	for _, row := range rows {
		if row.HasData() {
			withData++
		}
	}
	writeJSON(w, previewResponse{FileName: name, Rows: rows, WithData: withData, Diagnostics: sheet.Diagnostics})
}

func (s *Server) handleScoreImport(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	ctx := withRequestMetadata(r.Context(), r)
	result, err := s.service.ImportScores(ctx, name, data)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, result)
}

type bulkRequest struct {
	Codes []string `json:"codes" validate:"required,max=2000"`
}

func (s *Server) handleBulkScores(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	scores, err := s.service.BulkScores(r.Context(), req.Codes)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, map[string]any{"scores": scores, "found": len(scores)})
}

func (s *Server) handleScoreTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteTemplate(&buf); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeXLSX(w, export.TemplateFileName(time.Now()), buf.Bytes())
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	imports, err := s.service.ListImports(r.Context(), parseIntParam(r, "limit", 50))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if imports == nil {
		imports = []core.ImportRecord{}
	}
	writeJSON(w, imports)
}
