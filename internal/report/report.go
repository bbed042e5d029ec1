// Package report renders study progress into markdown and PDF reports.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/skondo/wordkeep/internal/assets"
	"github.com/skondo/wordkeep/internal/progress"
	"github.com/skondo/wordkeep/internal/statistics"
)

type Generator struct {
	store        progress.Store
	dir          string
	templatePath string
	now          func() time.Time
}

type Option func(*Generator)

// WithTemplate overrides the embedded report template with a file on disk.
func WithTemplate(path string) Option {
	return func(g *Generator) {
		g.templatePath = path
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

func New(store progress.Store, dir string, opts ...Option) *Generator {
	g := &Generator{
		store: store,
		dir:   dir,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WriteMarkdown renders the current study state into a dated markdown file
// under the report directory and returns its path.
func (g *Generator) WriteMarkdown(ctx context.Context) (string, error) {
	now := g.now().UTC()

	data, err := g.collect(ctx, now)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("os.MkdirAll(%s) > %w", g.dir, err)
	}
	path := filepath.Join(g.dir, fmt.Sprintf("study-report-%s.md", now.Format("20060102")))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("os.Create(%s) > %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	if err := assets.WriteStudyReport(file, g.templatePath, data); err != nil {
		return "", fmt.Errorf("assets.WriteStudyReport(%s) > %w", path, err)
	}
	return path, nil
}

// WritePDF renders the markdown report and converts it to PDF. Both files are
// kept.
func (g *Generator) WritePDF(ctx context.Context) (string, error) {
	markdownPath, err := g.WriteMarkdown(ctx)
	if err != nil {
		return "", err
	}
	pdfPath, err := RenderPDF(markdownPath)
	if err != nil {
		return "", fmt.Errorf("RenderPDF(%s) > %w", markdownPath, err)
	}
	return pdfPath, nil
}

func (g *Generator) collect(ctx context.Context, now time.Time) (assets.StudyReportTemplate, error) {
	records, err := g.store.AllRecords(ctx)
	if err != nil {
		return assets.StudyReportTemplate{}, fmt.Errorf("store.AllRecords() > %w", err)
	}
	items, err := g.store.AllItems(ctx)
	if err != nil {
		return assets.StudyReportTemplate{}, fmt.Errorf("store.AllItems() > %w", err)
	}
	stats, err := g.store.GetStats(ctx)
	if err != nil {
		return assets.StudyReportTemplate{}, fmt.Errorf("store.GetStats() > %w", err)
	}

	itemsByID := make(map[string]progress.Item, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	var due []assets.DueEntry
	for _, record := range records {
		if !record.Due(now) {
			continue
		}
		entry := assets.DueEntry{Expression: record.ItemID, DueAt: record.NextDueAt}
		if item, ok := itemsByID[record.ItemID]; ok {
			entry.Expression = item.Expression
			entry.Meaning = item.Meaning
		}
		due = append(due, entry)
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].DueAt.Equal(due[j].DueAt) {
			return due[i].DueAt.Before(due[j].DueAt)
		}
		return due[i].Expression < due[j].Expression
	})

	return assets.StudyReportTemplate{
		Date:    now,
		Summary: statistics.Summarize(records, *stats, now),
		Due:     due,
	}, nil
}
