// Package devserver is a local stand-in for the scraping engine's HTTP
// surface: the REST endpoints, the websocket push channel, and a simulated
// scraping run per job. It exists so the client (and its end-to-end tests)
// can run without a real engine.
package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/kbscrape/scrape-cli/internal/model"
)

// jobRecord is everything the stub engine remembers about one job.
type jobRecord struct {
	config      model.JobConfig
	status      model.JobStatus
	result      *model.JobResult
	startedAt   string
	completedAt string
}

// Server implements the stub engine.
type Server struct {
	hub       *hub
	uploadDir string

	mu   sync.Mutex
	jobs map[string]*jobRecord
}

// New creates a stub engine that stores uploads under uploadDir.
func New(uploadDir string) *Server {
	return &Server{
		hub:       newHub(),
		uploadDir: uploadDir,
		jobs:      make(map[string]*jobRecord),
	}
}

// Router builds the engine's HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/ws", s.hub.handleWS)
	r.Post("/api/jobs", s.handleCreateJob)
	r.Get("/api/jobs", s.handleListJobs)
	r.Get("/api/jobs/{id}/status", s.handleJobStatus)
	r.Get("/api/jobs/{id}/results", s.handleJobResults)
	r.Get("/api/jobs/{id}/download", s.handleDownload)
	r.Post("/api/upload-pdf", s.handleUploadPDF)
	r.Post("/api/validate-url", s.handleValidateURL)

	return r
}

// Close drops all websocket clients.
func (s *Server) Close() {
	s.hub.closeAll()
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var cfg model.JobConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}
	if cfg.CustomerName == "" || len(cfg.Sources) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "customer_name and sources are required"})
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.jobs[id] = &jobRecord{
		config:    cfg,
		startedAt: nowISO(),
		status: model.JobStatus{
			JobID:  id,
			Status: model.StatusQueued,
		},
	}
	s.mu.Unlock()

	go s.runJob(context.Background(), id, cfg)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"job_id":  id,
		"message": "Scraping job started",
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	rec, ok := s.jobs[id]
	var st model.JobStatus
	if ok {
		st = rec.status
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Job not found"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make(map[string]any, len(s.jobs))
	for id, rec := range s.jobs {
		entry := map[string]any{
			"status":     rec.status.Status,
			"started_at": rec.startedAt,
			"config": map[string]any{
				"customer_name": rec.config.CustomerName,
			},
		}
		if rec.status.Status.IsTerminal() {
			entry["completed_at"] = rec.completedAt
			entry["total_items"] = rec.status.TotalItems
		}
		out[id] = entry
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleJobResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	rec, ok := s.jobs[id]
	var res *model.JobResult
	var st model.Status
	if ok {
		res = rec.result
		st = rec.status.Status
	}
	s.mu.Unlock()

	switch {
	case !ok:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Job not found or not completed"})
	case st != model.StatusCompleted || res == nil:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Job not completed successfully"})
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	rec, ok := s.jobs[id]
	var res *model.JobResult
	if ok {
		res = rec.result
	}
	s.mu.Unlock()

	if !ok || res == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Job not found or not completed"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_results.json"`, id))
	_ = json.NewEncoder(w).Encode(res)
}

func (s *Server) handleUploadPDF(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file provided"})
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file selected"})
		return
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Only PDF files are allowed"})
		return
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "upload storage unavailable"})
		return
	}

	filename := filepath.Base(header.Filename)
	dest := filepath.Join(s.uploadDir, filename)
	out, err := os.Create(dest)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store file"})
		return
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store file"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"filename": filename,
		"filepath": dest,
	})
}

func (s *Server) handleValidateURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": "No URL provided"})
		return
	}

	parsed, err := url.Parse(req.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": "Invalid URL format"})
		return
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Head(req.URL)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": err.Error()})
		return
	}
	defer resp.Body.Close()

	writeJSON(w, http.StatusOK, map[string]any{
		"valid":        true,
		"status_code":  resp.StatusCode,
		"content_type": resp.Header.Get("Content-Type"),
	})
}

func (s *Server) setStatus(id string, st model.JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return
	}
	rec.status = st
	if st.Status.IsTerminal() {
		rec.completedAt = nowISO()
	}
}

func (s *Server) setResult(id string, res *model.JobResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.jobs[id]; ok {
		rec.result = res
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
