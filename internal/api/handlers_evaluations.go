package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bhnan/Long-text-evaluation/internal/parser"
	"github.com/bhnan/Long-text-evaluation/internal/pipeline"
	"github.com/bhnan/Long-text-evaluation/internal/report"
)

// brief holds the form fields shared by single and batch submissions.
type brief struct {
	topic, description, expectedStyle string
}

func (s *Server) formBrief(r *http.Request) (brief, error) {
	b := brief{
		topic:         strings.TrimSpace(r.FormValue("topic")),
		description:   strings.TrimSpace(r.FormValue("description")),
		expectedStyle: strings.TrimSpace(r.FormValue("expected_style")),
	}
	if b.topic == "" {
		return b, errors.New("topic is required")
	}
	if b.expectedStyle == "" {
		b.expectedStyle = s.cfg.ExpectedStyle
	}
	return b, nil
}

func (s *Server) newJob(filename string, data []byte, b brief) *pipeline.Job {
	now := time.Now()
	job := &pipeline.Job{
		ID:            pipeline.NewJobID(),
		Status:        pipeline.StatusQueued,
		Phase:         "queued",
		Filename:      filename,
		Title:         parser.DocumentTitle(filename),
		Topic:         b.topic,
		Description:   b.description,
		ExpectedStyle: b.expectedStyle,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	job.SetFileData(data)
	return job
}

// readUpload validates and reads one uploaded file.
func (s *Server) readUpload(fh *multipart.FileHeader) (string, []byte, int, error) {
	filename := sanitizeFilename(fh.Filename)
	if !parser.IsSupportedExtension(filename) {
		return filename, nil, http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
	f, err := fh.Open()
	if err != nil {
		return filename, nil, http.StatusInternalServerError, errors.New("failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return filename, nil, http.StatusInternalServerError, errors.New("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return filename, nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return filename, data, 0, nil
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	b, err := s.formBrief(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	file.Close()
	filename, data, code, err := s.readUpload(header)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}

	job := s.newJob(filename, data, b)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/evaluations/%s/status", job.ID),
	})
}

func (s *Server) handleBatchSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	b, err := s.formBrief(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	var jobs []map[string]any
	for _, fh := range files {
		filename, data, _, err := s.readUpload(fh)
		if err != nil {
			jobs = append(jobs, map[string]any{"filename": filename, "error": err.Error()})
			continue
		}
		job := s.newJob(filename, data, b)
		if err := s.orchestrator.Submit(job); err != nil {
			jobs = append(jobs, map[string]any{"filename": filename, "error": err.Error()})
			continue
		}
		jobs = append(jobs, map[string]any{
			"filename": filename,
			"job_id":   job.ID,
			"status":   pipeline.StatusQueued,
			"poll_url": fmt.Sprintf("/api/evaluations/%s/status", job.ID),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"jobs": jobs})
}

func (s *Server) job(w http.ResponseWriter, r *http.Request) *pipeline.Job {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
	}
	return job
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job := s.job(w, r)
	if job == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	job := s.job(w, r)
	if job == nil {
		return
	}
	resultPath, _, ok := job.Outputs()
	if !ok {
		jsonError(w, fmt.Sprintf("job is %s", job.Snapshot().Status), http.StatusConflict)
		return
	}
	data, err := os.ReadFile(resultPath)
	if err != nil {
		s.log.Error("read result file", "job_id", job.ID, "path", resultPath, "error", err)
		jsonError(w, "result file unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	job := s.job(w, r)
	if job == nil {
		return
	}
	_, reportDir, ok := job.Outputs()
	if !ok {
		jsonError(w, fmt.Sprintf("job is %s", job.Snapshot().Status), http.StatusConflict)
		return
	}
	if reportDir == "" {
		jsonError(w, "report unavailable", http.StatusNotFound)
		return
	}
	html, err := os.ReadFile(filepath.Join(reportDir, report.HTMLFile))
	if err != nil {
		s.log.Error("read report", "job_id", job.ID, "dir", reportDir, "error", err)
		jsonError(w, "report unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
