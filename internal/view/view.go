// Package view turns a fetched Dataset and the user's filter input into what the
// dashboard displays. Everything here is pure: inputs are never mutated.
package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/DeafMist/uk-job-dashboard/internal/models"
	"github.com/DeafMist/uk-job-dashboard/internal/processing"
)

// AllCategories is the category option that disables the category filter.
const AllCategories = "All"

// Criteria is the filter input of one render cycle.
type Criteria struct {
	Search   string `json:"search"`
	Category string `json:"category"`
}

func (c Criteria) categoryFilter() (string, bool) {
	category := strings.TrimSpace(c.Category)
	if category == "" || category == AllCategories {
		return "", false
	}
	return category, true
}

// Match reports whether job satisfies every active predicate of c.
func (c Criteria) Match(job models.Job) bool {
	return c.matches(job, processing.NormalizeSearch(c.Search))
}

func (c Criteria) matches(job models.Job, term string) bool {
	if !processing.ContainsFold(job.Title, term) {
		return false
	}
	if category, ok := c.categoryFilter(); ok && job.JobCategory != category {
		return false
	}
	return true
}

// ApplyFilters returns the jobs matching criteria in their original order.
// The result never aliases jobs.
func ApplyFilters(jobs []models.Job, criteria Criteria) []models.Job {
	term := processing.NormalizeSearch(criteria.Search)
	out := make([]models.Job, 0, len(jobs))
	for _, job := range jobs {
		if criteria.matches(job, term) {
			out = append(out, job)
		}
	}
	return out
}

// Categories returns AllCategories followed by the distinct non-empty categories
// of jobs in alphabetical order. AllCategories is reserved: a stored category
// with that name is listed once, as the sentinel, and its jobs show under it.
func Categories(jobs []models.Job) []string {
	seen := make(map[string]struct{})
	var distinct []string
	for _, job := range jobs {
		if job.JobCategory == "" || job.JobCategory == AllCategories {
			continue
		}
		if _, ok := seen[job.JobCategory]; ok {
			continue
		}
		seen[job.JobCategory] = struct{}{}
		distinct = append(distinct, job.JobCategory)
	}
	sort.Strings(distinct)
	return append([]string{AllCategories}, distinct...)
}

// Result is everything one render cycle displays.
type Result struct {
	SnapshotID string    `json:"snapshot_id"`
	FetchedAt  time.Time `json:"fetched_at"`
	Criteria   Criteria  `json:"criteria"`
	Total      int       `json:"total"`
	Matched    int       `json:"matched"`
	Categories []string  `json:"categories"`
	Columns    []string  `json:"columns"`
	Jobs       []Row     `json:"jobs"`
}

// Row is one displayed job restricted to the visible columns.
type Row map[string]any

// Render runs one render cycle: filter ds with criteria and project the matches
// onto columns. Unknown columns render as empty cells.
func Render(ds *models.Dataset, criteria Criteria, columns []string) Result {
	var jobs []models.Job
	res := Result{Criteria: criteria}
	if ds != nil {
		jobs = ds.Jobs
		res.SnapshotID = ds.SnapshotID
		res.FetchedAt = ds.FetchedAt
	}
	if len(columns) == 0 {
		columns = models.KnownFields
	}

	filtered := ApplyFilters(jobs, criteria)
	res.Total = len(jobs)
	res.Matched = len(filtered)
	res.Categories = Categories(jobs)
	res.Columns = append([]string(nil), columns...)
	res.Jobs = make([]Row, 0, len(filtered))
	for _, job := range filtered {
		res.Jobs = append(res.Jobs, Project(job, columns))
	}
	return res
}

// Project picks the named columns out of job.
func Project(job models.Job, columns []string) Row {
	row := make(Row, len(columns))
	for _, col := range columns {
		row[col] = Field(job, col)
	}
	return row
}

// Field returns the value of a single column, or nil when the job lacks it.
func Field(job models.Job, column string) any {
	switch column {
	case "id":
		return job.ID
	case models.FieldTitle:
		return job.Title
	case models.FieldJobCategory:
		return job.JobCategory
	case models.FieldKeySkills:
		return job.KeySkills
	case models.FieldLink:
		return job.Link
	case models.FieldSource:
		return job.Source
	default:
		return job.Extra[column]
	}
}

// Cell formats a column value for plain-text display.
func Cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	default:
		return fmt.Sprint(t)
	}
}
