package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/traintrack/internal/core"
	"github.com/JonMunkholm/traintrack/internal/export"
	"github.com/JonMunkholm/traintrack/internal/logging"
	"github.com/JonMunkholm/traintrack/internal/web/templates"
)

// parseIntParam parses a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

func courseRequest(r *http.Request) core.CourseRequest {
	q := r.URL.Query()
	return core.CourseRequest{
		CourseID:   chi.URLParam(r, "courseID"),
		Category:   q.Get("category"),
		CourseName: q.Get("course_name"),
	}
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.service.ListCourses(r.Context(), parseIntParam(r, "page", 1))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, courses)
}

// handleCourseProgress returns the merged, evaluated course. When every
// source failed the body still carries the per-source report.
func (s *Server) handleCourseProgress(w http.ResponseWriter, r *http.Request) {
	result := s.service.LoadCourse(r.Context(), courseRequest(r))
	if !result.Success {
		writeJSONStatus(w, http.StatusBadGateway, result)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleCourseExport(w http.ResponseWriter, r *http.Request) {
	req := courseRequest(r)
	result := s.service.LoadCourse(r.Context(), req)
	if !result.Success {
		s.respondError(w, r, fmt.Errorf("course %s: %s", req.CourseID, result.Reason), http.StatusBadGateway)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteProgress(&buf, result); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		code = req.CourseID
	}
	writeXLSX(w, export.FileName(code, time.Now()), buf.Bytes())
}

func (s *Server) handleProgressPage(w http.ResponseWriter, r *http.Request) {
	result := s.service.LoadCourse(r.Context(), courseRequest(r))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if !result.Success {
		w.WriteHeader(http.StatusBadGateway)
	}
	// Headers and part of the body may already be out; log only.
	if err := templates.ProgressPage(result).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("progress page render failed", "course", result.Course.CourseID, "error", err)
	}
}

func writeXLSX(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
