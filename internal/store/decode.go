package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/DeafMist/uk-job-dashboard/internal/models"
	"github.com/DeafMist/uk-job-dashboard/internal/processing"
)

// JobFromItem maps a decoded store item onto a Job. keyAttr names the attribute
// holding the primary key; it is left out of Extra. Values of the wrong shape
// leave the typed field empty and are kept in Extra.
func JobFromItem(item map[string]any, keyAttr string) models.Job {
	var job models.Job
	for name, raw := range item {
		switch name {
		case keyAttr:
			if s, ok := scalarString(raw); ok {
				job.ID = s
				continue
			}
		case models.FieldTitle:
			if s, ok := scalarString(raw); ok {
				job.Title = processing.CleanText(s)
				continue
			}
		case models.FieldJobCategory:
			if s, ok := scalarString(raw); ok {
				job.JobCategory = processing.CleanText(s)
				continue
			}
		case models.FieldLink:
			if s, ok := raw.(string); ok {
				job.Link = processing.CleanText(s)
				continue
			}
		case models.FieldSource:
			if s, ok := scalarString(raw); ok {
				job.Source = processing.CleanText(s)
				continue
			}
		case models.FieldKeySkills:
			if skills, ok := skillList(raw); ok {
				job.KeySkills = skills
				continue
			}
		}

		if job.Extra == nil {
			job.Extra = make(map[string]any)
		}
		job.Extra[name] = raw
	}
	return job
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func skillList(v any) ([]string, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case string:
		return processing.SplitSkills(t), true
	case []string:
		return processing.DedupeSkills(t), true
	case []any:
		out := make([]string, 0, len(t))
		for _, el := range t {
			if s, ok := scalarString(el); ok {
				out = append(out, s)
				continue
			}
			out = append(out, fmt.Sprint(el))
		}
		return processing.DedupeSkills(out), true
	default:
		return nil, false
	}
}
