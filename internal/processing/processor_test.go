package processing_test

import (
	"testing"

	"github.com/DeafMist/uk-job-dashboard/internal/processing"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "only spaces", input: "   \t ", want: ""},
		{name: "trim", input: "  Backend Engineer ", want: "Backend Engineer"},
		{name: "collapse whitespace", input: "Data\n\nEngineer\t II", want: "Data Engineer II"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := processing.CleanText(tt.input); got != tt.want {
				t.Fatalf("CleanText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeSearch(t *testing.T) {
	require.Equal(t, "", processing.NormalizeSearch("   "))
	require.Equal(t, "senior engineer", processing.NormalizeSearch("  SENIOR   Engineer "))
}

func TestContainsFold(t *testing.T) {
	require.True(t, processing.ContainsFold("Backend Engineer", "engineer"))
	require.True(t, processing.ContainsFold("anything", ""))
	require.True(t, processing.ContainsFold("", ""))
	require.False(t, processing.ContainsFold("", "engineer"))
	require.False(t, processing.ContainsFold("Sales Lead", "engineer"))
}

func TestSplitSkills(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "blank", input: "  ", want: nil},
		{name: "comma separated", input: "Go, AWS ,SQL", want: []string{"Go", "AWS", "SQL"}},
		{name: "mixed delimiters", input: "Python; Django|REST\nDocker", want: []string{"Python", "Django", "REST", "Docker"}},
		{name: "duplicates", input: "Go, go, GO, Kubernetes", want: []string{"Go", "Kubernetes"}},
		{name: "empty segments", input: ",,Go,,", want: []string{"Go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.SplitSkills(tt.input))
		})
	}
}

func TestDedupeSkills(t *testing.T) {
	require.Nil(t, processing.DedupeSkills(nil))
	require.Equal(t, []string{"Terraform", "aws"}, processing.DedupeSkills([]string{" Terraform ", "", "aws", "AWS"}))
}
