package assets

import (
	_ "embed"
	"fmt"
	"io"
	"time"

	"github.com/skondo/wordkeep/internal/statistics"
)

//go:embed templates/study-report.md.go.tmpl
var fallbackStudyReportTemplate string

// StudyReportTemplate is the top-level data structure for study report templates
type StudyReportTemplate struct {
	Date    time.Time
	Summary statistics.Summary
	Due     []DueEntry
}

// DueEntry represents an item waiting for review, for template rendering
type DueEntry struct {
	Expression string
	Meaning    string
	DueAt      time.Time
}

func WriteStudyReport(output io.Writer, templatePath string, templateData StudyReportTemplate) error {
	tmpl, err := parseTemplateWithFallback(templatePath, fallbackStudyReportTemplate)
	if err != nil {
		return fmt.Errorf("parseTemplateWithFallback() > %w", err)
	}
	if err := tmpl.Execute(output, templateData); err != nil {
		return fmt.Errorf("tmpl.Execute() > %w", err)
	}
	return nil
}
