package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the state of an evaluation job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusEvaluating JobStatus = "evaluating"
	StatusCoherence  JobStatus = "coherence"
	StatusSaving     JobStatus = "saving"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks the state of a single document evaluation.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`

	Topic         string `json:"topic"`
	Description   string `json:"description"`
	ExpectedStyle string `json:"expected_style,omitempty"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	ResultPath  string    `json:"-"`
	ReportDir   string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
}

// Progress tracks evaluation progress.
type Progress struct {
	TotalUnits     int      `json:"total_units"`
	UnitsEvaluated int      `json:"units_evaluated"`
	TotalPairs     int      `json:"total_pairs"`
	PairsEvaluated int      `json:"pairs_evaluated"`
	Errors         []string `json:"errors"`
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// Observe copies evaluation progress into the job and moves it between the
// evaluating and coherence statuses.
func (j *Job) Observe(p EvalProgress) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalUnits = p.UnitsTotal
	j.Progress.UnitsEvaluated = p.UnitsDone
	j.Progress.TotalPairs = p.PairsTotal
	j.Progress.PairsEvaluated = p.PairsDone
	switch p.State {
	case StateUnitLoop:
		j.Status, j.Phase = StatusEvaluating, "evaluating units"
	case StateCoherenceLoop:
		j.Status, j.Phase = StatusCoherence, "scoring section coherence"
	}
	j.UpdatedAt = time.Now()
}

// SetTotalUnits records the unit count before evaluation starts.
func (j *Job) SetTotalUnits(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalUnits = n
	if n > 1 {
		j.Progress.TotalPairs = n - 1
	}
	j.UpdatedAt = time.Now()
}

// Complete records the output locations and marks the job completed.
func (j *Job) Complete(resultPath, reportDir string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ResultPath = resultPath
	j.ReportDir = reportDir
	j.Status = StatusCompleted
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Outputs returns the result path and report directory once completed.
func (j *Job) Outputs() (resultPath, reportDir string, ok bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.ResultPath, j.ReportDir, j.Status == StatusCompleted
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Filename  string    `json:"filename"`
	Title     string    `json:"title"`
	Topic     string    `json:"topic"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.Progress.Errors))
	copy(errs, j.Progress.Errors)
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		Filename:  j.Filename,
		Title:     j.Title,
		Topic:     j.Topic,
		Progress:  p,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
