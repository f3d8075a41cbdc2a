package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	dm "github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "  # Title\n\nbody ", "# Title\n\nbody"},
		{"markdown fence", "```markdown\n# Title\n```", "# Title"},
		{"bare fence", "```\nBUY\n```", "BUY"},
		{"inner fence kept", "Intro\n```go\nx\n```", "Intro\n```go\nx\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean() = %q, want %q", got, tt.want)
			}
		})
	}
}

func testReport() *Report {
	return &Report{
		Ticker: "AAPL",
		Date:   time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
		Output: &dm.CrewOutput{
			Raw: "```markdown\n# Recommendation\n\n| Metric | Value |\n|---|---|\n| Gross margin | 46.21% |\n```",
			Tasks: []dm.TaskOutput{
				{Name: "financial_analysis", Agent: "financial_analyst", Raw: "Revenue grew **6.43%**"},
				{Name: "investment_recommendation", Agent: "investment_advisor", Raw: "# Recommendation"},
			},
		},
	}
}

func TestWriteMarkdown(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	path, err := testReport().WriteMarkdown(dir)
	if err != nil {
		t.Fatalf("WriteMarkdown() error = %v", err)
	}
	if filepath.Base(path) != "AAPL_2026-10-18.md" {
		t.Errorf("path = %s", path)
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "# Recommendation") || strings.Contains(string(data), "```") {
		t.Errorf("content = %q", data)
	}
}

func TestWriteHTML(t *testing.T) {
	dir := t.TempDir()
	path, err := testReport().WriteHTML(dir)
	if err != nil {
		t.Fatalf("WriteHTML() error = %v", err)
	}
	if filepath.Base(path) != "AAPL_2026-10-18.html" {
		t.Errorf("path = %s", path)
	}
	data, _ := os.ReadFile(path)
	html := string(data)
	for _, want := range []string{"<h1>Recommendation</h1>", "<table>", "<strong>6.43%</strong>", "financial_analyst"} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestRenderMarkdown_EscapesTitle(t *testing.T) {
	r := testReport()
	r.Ticker = "<script>"
	path, err := r.WriteHTML(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "<h1><script></h1>") {
		t.Error("ticker not escaped")
	}
}
