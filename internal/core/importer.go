package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"course-list-sync/internal/coursenum"
)

// Result messages surfaced to the operator.
const (
	msgNoHeaders  = "The uploaded CSV does not contain headers."
	msgUnreadable = "Could not read the uploaded file."
	msgDryRunDone = "Dry run complete: no changes were saved."
	msgImportDone = "Import complete. Matching courses have been updated with the values from the uploaded file."
)

// DefaultPreviewRows is how many parsed rows are retained for preview.
const DefaultPreviewRows = 5

// DefaultWarningLimit caps the deduplicated warnings list.
const DefaultWarningLimit = 20

// Importer orchestrates one import run: map headers, then stream rows
// through parse, duplicate tracking, course lookup, and (unless dry-run)
// apply. Rows are processed one at a time; only the header mappings and
// the preview rows stay in memory, so file size is unbounded.
type Importer struct {
	index   *CourseIndex
	fields  *FieldRegistry
	applier *Applier
	log     *slog.Logger

	// PreviewRows and WarningLimit default to DefaultPreviewRows and
	// DefaultWarningLimit when zero.
	PreviewRows  int
	WarningLimit int
}

// NewImporter wires an importer from its collaborators.
func NewImporter(index *CourseIndex, fields *FieldRegistry, applier *Applier, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{
		index:   index,
		fields:  fields,
		applier: applier,
		log:     log,
	}
}

// Run processes one CSV stream. Fatal conditions (unreadable stream,
// missing header row) return Success=false with no summary; every
// row-level problem becomes a warning and a summary counter instead.
// Dry runs never write to the store.
func (imp *Importer) Run(ctx context.Context, r io.Reader, dryRun bool) *ImportResult {
	result := &ImportResult{DryRun: dryRun}

	previewLimit := imp.PreviewRows
	if previewLimit <= 0 {
		previewLimit = DefaultPreviewRows
	}
	warningLimit := imp.WarningLimit
	if warningLimit <= 0 {
		warningLimit = DefaultWarningLimit
	}

	cr := csv.NewReader(NewUploadReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	headers, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			result.Messages = []string{msgNoHeaders}
		} else {
			imp.log.Warn("read header row", "error", err)
			result.Messages = []string{msgUnreadable}
		}
		return result
	}

	for i := range headers {
		headers[i] = NormalizeHeader(headers[i])
	}

	mapper := NewHeaderMapper(imp.fields, imp.log)
	mapping, err := mapper.MapHeaders(ctx, headers)
	if err != nil {
		imp.log.Error("map headers", "error", err)
		result.Messages = []string{msgUnreadable}
		return result
	}
	result.Mapping = mapping

	summary := &ImportSummary{DuplicateNumbers: make(map[string]DuplicateGroup)}
	seen := make(map[string]*DuplicateGroup)
	var warnings []string

	rowIndex := 1 // header row already consumed
	for {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			imp.log.Error("read row", "row", rowIndex+1, "error", err)
			return &ImportResult{
				DryRun:   dryRun,
				Mapping:  mapping,
				Messages: []string{msgUnreadable},
			}
		}

		rowIndex++
		summary.TotalRows++

		row := ParseRow(rowIndex, mapping, cells)
		if len(result.Preview) < previewLimit {
			result.Preview = append(result.Preview, row)
		}

		if row.CourseNumber == "" {
			summary.RowsMissingCourseNumber++
			warnings = append(warnings, fmt.Sprintf("Row %d: missing course number.", rowIndex))
			continue
		}
		summary.RowsWithCourseNumber++

		// Duplicate tracking uses the same normalization as the index; the
		// raw value is only a fallback when normalization strips everything.
		key := coursenum.Normalize(row.CourseNumber)
		if key == "" {
			key = row.CourseNumber
		}
		group, ok := seen[key]
		if !ok {
			group = &DuplicateGroup{Display: row.CourseNumber}
			seen[key] = group
		}
		group.Rows = append(group.Rows, rowIndex)

		courseID, err := imp.index.FindCourseID(ctx, row.CourseNumber, NumberTypeGlobal)
		if err != nil {
			imp.log.Error("course lookup", "row", rowIndex, "number", row.CourseNumber, "error", err)
			summary.CoursesNotFound++
			warnings = append(warnings, fmt.Sprintf("Row %d: course lookup failed for %s.", rowIndex, row.CourseNumber))
			continue
		}
		if courseID == 0 {
			summary.CoursesNotFound++
			warnings = append(warnings, fmt.Sprintf("Row %d: course number %s not found.", rowIndex, row.CourseNumber))
			continue
		}
		summary.MatchedCourses++

		if dryRun {
			continue
		}
		updated, messages := imp.applier.ApplyRow(ctx, courseID, row)
		warnings = append(warnings, messages...)
		if updated {
			summary.UpdatesApplied++
		}
	}

	for key, group := range seen {
		if len(group.Rows) > 1 {
			summary.DuplicateNumbers[key] = *group
		}
	}

	result.Summary = summary
	result.Warnings = dedupeWarnings(warnings, warningLimit)
	result.Success = true
	if dryRun {
		result.Messages = []string{msgDryRunDone}
	} else {
		result.Messages = []string{msgImportDone}
	}

	imp.log.Info("import finished",
		"dry_run", dryRun,
		"rows", summary.TotalRows,
		"matched", summary.MatchedCourses,
		"not_found", summary.CoursesNotFound,
		"updated", summary.UpdatesApplied,
		"warnings", len(result.Warnings),
	)

	return result
}

// dedupeWarnings removes repeats while preserving first-seen order and
// caps the list at limit.
func dedupeWarnings(warnings []string, limit int) []string {
	if len(warnings) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(warnings))
	deduped := make([]string, 0, len(warnings))
	for _, w := range warnings {
		if seen[w] {
			continue
		}
		seen[w] = true
		deduped = append(deduped, w)
		if len(deduped) == limit {
			break
		}
	}
	return deduped
}
