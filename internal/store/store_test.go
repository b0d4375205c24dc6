package store_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/DeafMist/uk-job-dashboard/internal/models"
	"github.com/DeafMist/uk-job-dashboard/internal/store"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection refused")

	unavailable := fmt.Errorf("fetch: %w", store.Unavailable("dynamodb:UK_Jobs", cause))
	require.ErrorIs(t, unavailable, store.ErrUnavailable)
	require.ErrorIs(t, unavailable, cause)
	require.NotErrorIs(t, unavailable, store.ErrScan)

	var ue *store.UnavailableError
	require.ErrorAs(t, unavailable, &ue)
	require.Equal(t, "dynamodb:UK_Jobs", ue.Store)

	scan := &store.ScanError{Store: "dynamodb:UK_Jobs", Page: 2, Err: store.ErrTooManyPages}
	require.ErrorIs(t, scan, store.ErrScan)
	require.ErrorIs(t, scan, store.ErrTooManyPages)
	require.NotErrorIs(t, scan, store.ErrUnavailable)
	require.Contains(t, scan.Error(), "page 2")
}

func TestJobFromItem(t *testing.T) {
	item := map[string]any{
		"job_id":       "abc-123",
		"title":        "  Backend   Engineer ",
		"job_category": "Tech",
		"key_skills":   "Go, AWS, go",
		"link":         "https://example.com/jobs/1",
		"source":       "reed",
		"salary":       float64(55000),
	}

	job := store.JobFromItem(item, "job_id")
	require.Equal(t, models.Job{
		ID:          "abc-123",
		Title:       "Backend Engineer",
		JobCategory: "Tech",
		KeySkills:   []string{"Go", "AWS"},
		Link:        "https://example.com/jobs/1",
		Source:      "reed",
		Extra:       map[string]any{"salary": float64(55000)},
	}, job)
}

func TestJobFromItemSkillShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want []string
	}{
		{name: "string", raw: "SQL; Python", want: []string{"SQL", "Python"}},
		{name: "string set", raw: []string{"Docker", "docker", "K8s"}, want: []string{"Docker", "K8s"}},
		{name: "list", raw: []any{"React", float64(5), true}, want: []string{"React", "5", "true"}},
		{name: "null", raw: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := store.JobFromItem(map[string]any{"key_skills": tt.raw}, "id")
			require.Equal(t, tt.want, job.KeySkills)
			require.Nil(t, job.Extra)
		})
	}
}

func TestJobFromItemMissingAndMalformed(t *testing.T) {
	job := store.JobFromItem(map[string]any{
		"title": map[string]any{"nested": "value"},
	}, "id")

	require.Empty(t, job.Title)
	require.Empty(t, job.JobCategory)
	require.Contains(t, job.Extra, "title")
}
