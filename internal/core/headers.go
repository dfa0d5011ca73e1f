package core

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// headerAliases is the static alias table checked before any dynamic
// field. Keys are slugified header forms; first match wins, so a static
// alias always beats a credit or metadata field that happens to share
// its slug.
var headerAliases = map[string]HeaderMapping{
	"four-digit":    {Type: TypeCourseNumber, Label: "Course number"},
	"four-digit-id": {Type: TypeCourseNumber, Label: "Course number"},
	"course-number": {Type: TypeCourseNumber, Label: "Course number"},
	"course":        {Type: TypeTitle, Label: "Course title"},
	"course-title":  {Type: TypeTitle, Label: "Course title"},
	"title":         {Type: TypeTitle, Label: "Course title"},
	"notes":         {Type: TypeNotes, Label: "Notes"},
	"word-count":    {Type: TypeWordCount, Label: "Word count"},
	"words":         {Type: TypeWordCount, Label: "Word count"},
	"price":         {Type: TypePrice, Key: "price", Label: "Price"},
	"print-price":   {Type: TypePrice, Key: "price_print", Label: "Print price"},
	"pdf-price":     {Type: TypePrice, Key: "price_pdf", Label: "PDF price"},
}

// HeaderMapper classifies CSV headers into field mappings using the
// static alias table and the field registry. Unknown headers are
// auto-registered as new metadata fields.
type HeaderMapper struct {
	fields *FieldRegistry
	log    *slog.Logger
}

// NewHeaderMapper creates a mapper over the given registry.
func NewHeaderMapper(fields *FieldRegistry, log *slog.Logger) *HeaderMapper {
	if log == nil {
		log = slog.Default()
	}
	return &HeaderMapper{fields: fields, log: log}
}

// MapHeaders classifies every header, preserving column order. It never
// returns fewer mappings than headers: columns that cannot be classified
// come back as TypeUnknown with a warning instead of an error.
func (m *HeaderMapper) MapHeaders(ctx context.Context, headers []string) ([]HeaderMapping, error) {
	credits, err := m.fields.CreditFields(ctx)
	if err != nil {
		return nil, err
	}
	metadata, err := m.fields.MetadataFields(ctx)
	if err != nil {
		return nil, err
	}

	mappings := make([]HeaderMapping, 0, len(headers))
	for _, header := range headers {
		mappings = append(mappings, m.mapHeader(header, credits, metadata))
	}
	return mappings, nil
}

func (m *HeaderMapper) mapHeader(header string, credits []CreditField, metadata map[string]MetadataField) HeaderMapping {
	original := NormalizeHeader(header)
	slug := Slugify(original)

	if alias, ok := headerAliases[slug]; ok {
		alias.Original = original
		return alias
	}

	for _, credit := range credits {
		if matchesAny(slug,
			Slugify(credit.Label),
			Slugify(credit.Label+" credits"),
			Slugify(credit.Slug),
			Slugify(credit.Slug+" credits"),
		) {
			return HeaderMapping{
				Original: original,
				Label:    credit.Label + " credits",
				Type:     TypeCredit,
				Key:      credit.Slug,
			}
		}
		if matchesAny(slug,
			Slugify(credit.Label+" course number"),
			Slugify(credit.Slug+" course number"),
		) {
			return HeaderMapping{
				Original: original,
				Label:    credit.Label + " course number",
				Type:     TypeCreditNumber,
				Key:      credit.Slug,
			}
		}
	}

	// Slugs are visited in sorted order so a header that could match more
	// than one field maps the same way on every run.
	for _, metaSlug := range sortedSlugs(metadata) {
		field := metadata[metaSlug]
		if matchesAny(slug, Slugify(field.Label), Slugify(metaSlug)) {
			return HeaderMapping{
				Original: original,
				Label:    field.Label,
				Type:     TypeMetadata,
				Key:      metaSlug,
			}
		}
	}

	// Previously unseen column: register it as a new metadata field so the
	// next run maps it without intervention.
	newSlug, err := m.fields.RegisterHeader(original)
	if err != nil {
		m.log.Warn("header registration failed", "header", original, "error", err)
		return HeaderMapping{
			Original: original,
			Label:    original,
			Type:     TypeUnknown,
			Warning:  fmt.Sprintf("Column %q could not be registered.", original),
		}
	}
	if newSlug == "" {
		return HeaderMapping{
			Original: original,
			Label:    original,
			Type:     TypeUnknown,
			Warning:  fmt.Sprintf("Column %q could not be mapped.", original),
		}
	}

	return HeaderMapping{
		Original: original,
		Label:    original,
		Type:     TypeMetadata,
		Key:      newSlug,
	}
}

func sortedSlugs(metadata map[string]MetadataField) []string {
	slugs := make([]string, 0, len(metadata))
	for slug := range metadata {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

func matchesAny(slug string, candidates ...string) bool {
	for _, candidate := range candidates {
		if candidate != "" && slug == candidate {
			return true
		}
	}
	return false
}

// NormalizeHeader trims a header cell and collapses internal whitespace
// runs to single spaces.
func NormalizeHeader(header string) string {
	return strings.Join(strings.Fields(header), " ")
}

// Slugify converts a label to a URL-safe slug: lowercase, characters
// outside [a-z0-9 #/-] stripped, then spaces and slashes folded into
// single dashes. "Four-Digit ID" becomes "four-digit-id".
func Slugify(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))

	var b strings.Builder
	b.Grow(len(label))
	lastDash := true // suppress a leading dash
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r == ' ' || r == '/' || r == '-':
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		default:
			// '#' and all other punctuation are dropped
		}
	}

	return strings.TrimRight(b.String(), "-")
}
