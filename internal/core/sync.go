package core

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
)

// Applier merges parsed rows into course documents and persists the
// result. Each row's apply is independent: a failure is reported back as
// messages, never as an error that would abort the surrounding run.
type Applier struct {
	store CourseStore
	log   *slog.Logger
}

// NewApplier creates an applier over the given store. A nil store is
// tolerated and reported per row, matching the degraded mode where the
// host integration is absent.
func NewApplier(store CourseStore, log *slog.Logger) *Applier {
	if log == nil {
		log = slog.Default()
	}
	return &Applier{store: store, log: log}
}

// ApplyRow merges row into the latest version of the course and persists
// it, along with the row's extras. It reports whether an update was
// written and any messages for the import warnings list.
func (a *Applier) ApplyRow(ctx context.Context, courseID int64, row ParsedRow) (bool, []string) {
	if a.store == nil {
		return false, []string{"Course store is not available; skipping update."}
	}
	if courseID <= 0 {
		return false, []string{"Invalid course ID supplied."}
	}

	doc, err := a.store.GetVersionDoc(ctx, courseID)
	if err != nil {
		a.log.Error("load course versions", "course_id", courseID, "error", err)
		return false, []string{fmt.Sprintf("Row %d: could not load course %d.", row.Index, courseID)}
	}
	if doc == nil || len(doc.Versions) == 0 {
		return false, []string{fmt.Sprintf("Row %d: course %d has no version data; skipping.", row.Index, courseID)}
	}

	version := doc.Latest()
	mergeRow(version, row)

	if err := a.store.SetVersionDoc(ctx, courseID, doc); err != nil {
		a.log.Error("save course versions", "course_id", courseID, "error", err)
		return false, []string{fmt.Sprintf("Row %d: failed to save course %d.", row.Index, courseID)}
	}

	var messages []string
	if err := a.store.SaveExtras(ctx, courseID, cleanExtras(row.Extras)); err != nil {
		a.log.Error("save course extras", "course_id", courseID, "error", err)
		messages = append(messages, fmt.Sprintf("Row %d: course %d updated but extras were not saved.", row.Index, courseID))
	}

	// Best effort: search stays usable even when the refresh fails.
	if err := a.store.UpdateSearchIndex(ctx, courseID); err != nil {
		a.log.Warn("search index refresh failed", "course_id", courseID, "error", err)
	}

	return true, messages
}

// mergeRow folds the row's values into a version in place. Credits skip
// blank values; metadata copies blanks too, because metadata can be
// intentionally cleared from the spreadsheet.
func mergeRow(version *Version, row ParsedRow) {
	if version.CourseNumbers == nil {
		version.CourseNumbers = make(map[string]string)
	}
	if version.CourseCredits == nil {
		version.CourseCredits = make(map[string]any)
	}
	if version.CourseMetadata == nil {
		version.CourseMetadata = make(map[string]string)
	}

	if row.CourseNumber != "" {
		version.CourseNumbers[NumberTypeGlobal] = sanitizeText(row.CourseNumber)
	}
	for slug, value := range row.CreditNumbers {
		version.CourseNumbers[slug] = sanitizeText(value)
	}
	for slug, value := range row.Credits {
		if value == "" {
			continue
		}
		version.CourseCredits[slug] = creditValue(value)
	}
	for slug, value := range row.Metadata {
		version.CourseMetadata[slug] = sanitizeText(value)
	}
}

// creditValue coerces numeric-looking credit values to float64 and keeps
// everything else as sanitized text.
func creditValue(value string) any {
	if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return f
	}
	return sanitizeText(value)
}

// cleanExtras drops blank price entries. Notes and word count pass
// through as-is: both are overwrite-always fields and may legitimately
// be cleared to empty.
func cleanExtras(extras RowExtras) RowExtras {
	cleaned := RowExtras{
		Notes:     extras.Notes,
		WordCount: extras.WordCount,
		Prices:    make(map[string]string, len(extras.Prices)),
	}
	for key, value := range extras.Prices {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		cleaned.Prices[key] = sanitizeText(value)
	}
	return cleaned
}

// sanitizeText strips control characters and collapses whitespace runs,
// the minimal cleanup applied to every stored spreadsheet value.
func sanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) && r != '\t' && r != '\n' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
