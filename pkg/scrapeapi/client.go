package scrapeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kbscrape/scrape-cli/internal/model"
)

// Default base URL for a locally running engine.
const defaultBaseURL = "http://localhost:10000"

// Client defines the scrape engine API operations.
type Client interface {
	CreateJob(ctx context.Context, cfg model.JobConfig) (*CreateJobResponse, error)
	GetJobStatus(ctx context.Context, id string) (*model.JobStatus, error)
	GetJobResults(ctx context.Context, id string) (*model.JobResult, error)
	DownloadResults(ctx context.Context, id string, w io.Writer) error
	ListJobs(ctx context.Context) (map[string]model.JobHistoryEntry, error)
	ValidateURL(ctx context.Context, url string) (*URLValidation, error)
	UploadPDF(ctx context.Context, filename string, r io.Reader) (*UploadResponse, error)
}

// CreateJobResponse is the response from POST /api/jobs.
type CreateJobResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// URLValidation is the response from POST /api/validate-url.
type URLValidation struct {
	Valid       bool   `json:"valid"`
	StatusCode  int    `json:"status_code,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Error       string `json:"error,omitempty"`
}

// UploadResponse is the response from POST /api/upload-pdf.
type UploadResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename,omitempty"`
	FilePath string `json:"filepath,omitempty"`
	Error    string `json:"error,omitempty"`
}

// historyRecord is the raw shape of one entry in GET /api/jobs. Active jobs
// carry config/started_at, finished jobs carry total_items/completed_at.
type historyRecord struct {
	Status      model.Status `json:"status"`
	TotalItems  int          `json:"total_items"`
	StartedAt   string       `json:"started_at"`
	CompletedAt string       `json:"completed_at"`
	Config      struct {
		CustomerName string `json:"customer_name"`
	} `json:"config"`
}

// APIError is returned when the engine responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scrapeapi: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a new engine API client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) CreateJob(ctx context.Context, cfg model.JobConfig) (*CreateJobResponse, error) {
	var resp CreateJobResponse
	if err := c.post(ctx, "/api/jobs", cfg, &resp); err != nil {
		return nil, eris.Wrap(err, "scrapeapi: create job")
	}
	return &resp, nil
}

func (c *httpClient) GetJobStatus(ctx context.Context, id string) (*model.JobStatus, error) {
	var resp model.JobStatus
	if err := c.get(ctx, fmt.Sprintf("/api/jobs/%s/status", id), &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("scrapeapi: get job status %s", id))
	}
	if resp.JobID == "" {
		resp.JobID = id
	}
	return &resp, nil
}

func (c *httpClient) GetJobResults(ctx context.Context, id string) (*model.JobResult, error) {
	var resp model.JobResult
	if err := c.get(ctx, fmt.Sprintf("/api/jobs/%s/results", id), &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("scrapeapi: get job results %s", id))
	}
	if resp.JobID == "" {
		resp.JobID = id
	}
	return &resp, nil
}

func (c *httpClient) DownloadResults(ctx context.Context, id string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+fmt.Sprintf("/api/jobs/%s/download", id), nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, fmt.Sprintf("scrapeapi: download results %s", id))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return eris.Wrap(err, "copy response body")
	}
	return nil
}

func (c *httpClient) ListJobs(ctx context.Context) (map[string]model.JobHistoryEntry, error) {
	var raw map[string]historyRecord
	if err := c.get(ctx, "/api/jobs", &raw); err != nil {
		return nil, eris.Wrap(err, "scrapeapi: list jobs")
	}

	entries := make(map[string]model.JobHistoryEntry, len(raw))
	for id, rec := range raw {
		entries[id] = model.JobHistoryEntry{
			JobID:        id,
			CustomerName: rec.Config.CustomerName,
			Status:       rec.Status,
			TotalItems:   rec.TotalItems,
			StartedAt:    parseEngineTime(rec.StartedAt),
			CompletedAt:  parseEngineTime(rec.CompletedAt),
		}
	}
	return entries, nil
}

func (c *httpClient) ValidateURL(ctx context.Context, url string) (*URLValidation, error) {
	var resp URLValidation
	body := map[string]string{"url": url}
	if err := c.post(ctx, "/api/validate-url", body, &resp); err != nil {
		return nil, eris.Wrap(err, "scrapeapi: validate url")
	}
	return &resp, nil
}

func (c *httpClient) UploadPDF(ctx context.Context, filename string, r io.Reader) (*UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, eris.Wrap(err, "create form file")
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, eris.Wrap(err, "copy file contents")
	}
	if err := mw.Close(); err != nil {
		return nil, eris.Wrap(err, "close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload-pdf", &buf)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp UploadResponse
	if err := c.do(req, &resp); err != nil {
		// The engine rejects bad uploads with a 4xx carrying {"error": ...};
		// surface that as a structured response rather than a bare error.
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			var body struct {
				Error string `json:"error"`
			}
			if jsonErr := json.Unmarshal([]byte(apiErr.Body), &body); jsonErr == nil && body.Error != "" {
				return &UploadResponse{Success: false, Error: body.Error}, nil
			}
		}
		return nil, eris.Wrap(err, "scrapeapi: upload pdf")
	}
	return &resp, nil
}

// parseEngineTime parses the engine's timestamps, which come in RFC 3339 or
// Python isoformat (no zone, microsecond precision).
func parseEngineTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}

	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}
