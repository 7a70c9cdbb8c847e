package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/desertthunder/roster/internal/formatter"
	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/shared"
)

// maxImportBytes caps the size of an uploaded CSV body.
const maxImportBytes = 10 << 20

// studentRequest is the JSON body of create and update requests.
type studentRequest struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Course string   `json:"course"`
	Grade  *float64 `json:"grade"`
}

func (req studentRequest) student() (*models.Student, error) {
	if req.Grade == nil {
		return nil, shared.ValidationError("Grade cannot be empty")
	}
	return &models.Student{ID: req.ID, Name: req.Name, Course: req.Course, Grade: *req.Grade}, nil
}

func decodeStudent(r *http.Request) (*models.Student, error) {
	var req studentRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, shared.ValidationError(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return req.student()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := map[string]any{
		"course": strings.TrimSpace(q.Get("course")),
		"name":   strings.TrimSpace(q.Get("name")),
	}
	writeJSON(w, http.StatusOK, s.service.SearchStudents(r.Context(), criteria))
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	st, err := decodeStudent(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.service.AddStudent(r.Context(), st); err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Location", "/students/"+st.ID)
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.GetStudentByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	st, err := decodeStudent(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	if st.ID != "" && strings.TrimSpace(st.ID) != id {
		s.respondError(w, r, shared.ValidationError("Student ID in body does not match the URL"))
		return
	}
	st.ID = id

	if err := s.service.UpdateStudent(r.Context(), st); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteStudent(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := formatter.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, shared.ValidationError(err.Error()))
		return
	}

	data, err := formatter.Export(s.service.SearchStudents(r.Context(), nil), format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ext := map[formatter.Format]string{
		formatter.FormatCSV:      "csv",
		formatter.FormatJSON:     "json",
		formatter.FormatMarkdown: "md",
	}[format]

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="students.%s"`, ext))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)

	result, err := s.service.ImportReader(r.Context(), "http upload", body, nil)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large", shared.KindFile.String())
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, r, shared.ValidationError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	jobs, err := s.service.Jobs(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}
