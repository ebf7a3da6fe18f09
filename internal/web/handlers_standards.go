package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/traintrack/internal/core"
)

func (s *Server) handleListStandards(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.ListStandards(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, list)
}

func (s *Server) handleGetStandard(w http.ResponseWriter, r *http.Request) {
	rs, err := s.service.GetStandard(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, rs)
}

// handlePutStandard creates or replaces a category's ruleset. The URL
// category wins over any ma_hang in the body.
func (s *Server) handlePutStandard(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var rs core.Ruleset
	if err := json.NewDecoder(r.Body).Decode(&rs); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidRuleset, err), http.StatusBadRequest)
		return
	}
	rs.Category = strings.TrimSpace(chi.URLParam(r, "category"))

	saved, created, err := s.service.PutStandard(r.Context(), &rs)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSONStatus(w, status, saved)
}

func (s *Server) handleDeleteStandard(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteStandard(r.Context(), chi.URLParam(r, "category")); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
