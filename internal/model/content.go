package model

import (
	"encoding/json"
	"sort"
)

// ContentItem is one extracted piece of content returned by the engine.
type ContentItem struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
	SourceURL   string `json:"source_url,omitempty"`
}

// JobResult is the full output of a completed job.
type JobResult struct {
	JobID        string        `json:"job_id,omitempty"`
	CustomerName string        `json:"customer_name,omitempty"`
	ContentItems []ContentItem `json:"content_items"`
}

// jobResultWire tolerates the engine's older payloads, which carry the item
// list under "items" instead of "content_items".
type jobResultWire struct {
	JobID        string        `json:"job_id"`
	CustomerName string        `json:"customer_name"`
	ContentItems []ContentItem `json:"content_items"`
	Items        []ContentItem `json:"items"`
}

// UnmarshalJSON accepts both the current and legacy result layouts.
func (r *JobResult) UnmarshalJSON(data []byte) error {
	var w jobResultWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.JobID = w.JobID
	r.CustomerName = w.CustomerName
	r.ContentItems = w.ContentItems
	if len(r.ContentItems) == 0 && len(w.Items) > 0 {
		r.ContentItems = w.Items
	}
	return nil
}

// GroupByType buckets items by content type for display. Type keys are
// returned sorted so output is stable.
func (r *JobResult) GroupByType() ([]string, map[string][]ContentItem) {
	groups := make(map[string][]ContentItem)
	for _, item := range r.ContentItems {
		t := item.ContentType
		if t == "" {
			t = "other"
		}
		groups[t] = append(groups[t], item)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}
