package models

import "time"

// Attribute names of a job posting as stored in the jobs table.
const (
	FieldTitle       = "title"
	FieldJobCategory = "job_category"
	FieldKeySkills   = "key_skills"
	FieldLink        = "link"
	FieldSource      = "source"
)

// KnownFields lists the typed job attributes in display order.
var KnownFields = []string{FieldTitle, FieldJobCategory, FieldKeySkills, FieldLink, FieldSource}

// Job represents one job posting read from the store.
type Job struct {
	ID          string         `json:"id,omitempty"`
	Title       string         `json:"title"`
	JobCategory string         `json:"job_category"`
	KeySkills   []string       `json:"key_skills"`
	Link        string         `json:"link"`
	Source      string         `json:"source"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Dataset is the full content of the jobs table captured by one fetch cycle.
type Dataset struct {
	SnapshotID string    `json:"snapshot_id"`
	FetchedAt  time.Time `json:"fetched_at"`
	Pages      int       `json:"pages"`
	Columns    []string  `json:"columns"`
	Jobs       []Job     `json:"jobs"`
}

// Len returns the number of jobs in the dataset.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Jobs)
}
