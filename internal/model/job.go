package model

import "time"

// Status represents the lifecycle state of a scrape job as reported by the
// engine. A job is created queued, moves through starting/running, and ends
// in exactly one terminal state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusStarting  Status = "starting"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// IsTerminal reports whether no further status changes are expected for a
// job in this state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusStarting, StatusRunning, StatusCompleted, StatusError:
		return true
	}
	return false
}

// Source types accepted by the engine.
const (
	SourceTypeWebsite = "website"
	SourceTypePDF     = "pdf"
)

// PDFPlaceholderURL is the sentinel the engine expects in the url field of a
// PDF source. The actual file location travels in pdf_file.
const PDFPlaceholderURL = "PDF_PLACEHOLDER"

// Source is one unit of input to the scraping engine: a website URL with
// crawl limits, or a previously uploaded PDF file.
type Source struct {
	// ID identifies the source within the client (form rows, error
	// attribution). It never goes over the wire.
	ID string `json:"-" yaml:"-"`

	Type         string  `json:"type" yaml:"type"`
	URL          string  `json:"url" yaml:"url,omitempty"`
	MaxArticles  int     `json:"max_articles,omitempty" yaml:"max_articles,omitempty"`
	DelaySeconds float64 `json:"delay,omitempty" yaml:"delay,omitempty"`
	Description  string  `json:"description,omitempty" yaml:"description,omitempty"`

	// PDF-only fields. FilePath is server-assigned by a prior upload.
	FilePath   string `json:"pdf_file,omitempty" yaml:"pdf_file,omitempty"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	Author     string `json:"author,omitempty" yaml:"author,omitempty"`
	SourceType string `json:"source_type,omitempty" yaml:"-"`
}

// IsPDF reports whether the source refers to an uploaded PDF.
func (s Source) IsPDF() bool {
	return s.Type == SourceTypePDF || s.SourceType == SourceTypePDF
}

// JobConfig is the full definition of one scrape job.
type JobConfig struct {
	CustomerName string   `json:"customer_name" yaml:"customer_name"`
	TeamID       string   `json:"team_id,omitempty" yaml:"team_id,omitempty"`
	Sources      []Source `json:"sources" yaml:"sources"`
}

// JobStatus is one observed snapshot of a job's progress. Snapshots arrive
// over both the push and poll channels and may repeat or arrive out of
// order; consumers must be idempotent.
type JobStatus struct {
	JobID      string `json:"job_id"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	Progress   int    `json:"progress"`
	TotalItems int    `json:"total_items,omitempty"`
	Error      string `json:"error,omitempty"`
}

// JobHistoryEntry is a read-only summary of a previously run job.
type JobHistoryEntry struct {
	JobID        string    `json:"job_id"`
	CustomerName string    `json:"customer_name"`
	Status       Status    `json:"status"`
	TotalItems   int       `json:"total_items,omitempty"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	CompletedAt  time.Time `json:"completed_at,omitempty"`
}

// Timestamp returns the most recent known time for the entry, used to order
// history newest-first.
func (e JobHistoryEntry) Timestamp() time.Time {
	if e.CompletedAt.After(e.StartedAt) {
		return e.CompletedAt
	}
	return e.StartedAt
}
