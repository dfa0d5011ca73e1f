// Package core implements the CSV-to-course reconciliation pipeline.
// This package has no transport or UI dependencies and talks to the host
// LMS only through the collaborator interfaces defined here.
package core

import "context"

// NumberTypeGlobal is the number type of a course's primary identifier.
// Credit-specific number types use the credit field slug instead.
const NumberTypeGlobal = "global"

// MappingType classifies what a CSV column feeds into. The row parser
// switches exhaustively over these values; adding a type without handling
// it there is a bug.
type MappingType int

const (
	TypeUnknown MappingType = iota
	TypeCourseNumber
	TypeTitle
	TypeCredit
	TypeCreditNumber
	TypeMetadata
	TypeNotes
	TypeWordCount
	TypePrice
)

var mappingTypeNames = map[MappingType]string{
	TypeUnknown:      "unknown",
	TypeCourseNumber: "course_number",
	TypeTitle:        "title",
	TypeCredit:       "credit",
	TypeCreditNumber: "credit_number",
	TypeMetadata:     "metadata",
	TypeNotes:        "notes",
	TypeWordCount:    "word_count",
	TypePrice:        "price",
}

func (t MappingType) String() string {
	if name, ok := mappingTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the type as its snake_case name so HeaderMapping
// serializes with readable type tags.
func (t MappingType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a snake_case type name. Unrecognized names decode
// as TypeUnknown so a newer producer does not break an older consumer.
func (t *MappingType) UnmarshalText(b []byte) error {
	name := string(b)
	for typ, n := range mappingTypeNames {
		if n == name {
			*t = typ
			return nil
		}
	}
	*t = TypeUnknown
	return nil
}

// Describe returns the human description shown next to a mapped column.
func (t MappingType) Describe() string {
	switch t {
	case TypeCourseNumber:
		return "Primary course number"
	case TypeTitle:
		return "Course title"
	case TypeCredit:
		return "Credit value"
	case TypeCreditNumber:
		return "Credit-specific course number"
	case TypeMetadata:
		return "Course metadata"
	case TypeNotes:
		return "Course notes"
	case TypeWordCount:
		return "Word count"
	case TypePrice:
		return "Pricing data"
	default:
		return "Not mapped"
	}
}

// HeaderMapping records how a single CSV column was classified. One entry
// is produced per column, in column order, on every run.
type HeaderMapping struct {
	Original string      `json:"original"`
	Label    string      `json:"label"`
	Type     MappingType `json:"type"`
	Key      string      `json:"key,omitempty"`
	Warning  string      `json:"warning,omitempty"`
}

// RowExtras holds values that live outside the course version document:
// notes, word count, and per-format prices.
type RowExtras struct {
	Notes     string            `json:"notes"`
	WordCount string            `json:"word_count"`
	Prices    map[string]string `json:"prices"`
}

// ParsedRow is the typed form of one CSV data row.
type ParsedRow struct {
	Index         int               `json:"index"`
	CourseNumber  string            `json:"course_number"`
	Title         string            `json:"title"`
	Credits       map[string]string `json:"credits"`
	CreditNumbers map[string]string `json:"credit_numbers"`
	Metadata      map[string]string `json:"metadata"`
	Extras        RowExtras         `json:"extras"`
}

// DuplicateGroup lists the rows that share one normalized course number.
// Display is the first raw value seen for the key.
type DuplicateGroup struct {
	Display string `json:"display"`
	Rows    []int  `json:"rows"`
}

// ImportSummary aggregates per-run counters. The identities
// TotalRows == RowsWithCourseNumber + RowsMissingCourseNumber and
// MatchedCourses + CoursesNotFound == RowsWithCourseNumber hold for every
// completed run.
type ImportSummary struct {
	TotalRows               int                       `json:"total_rows"`
	RowsWithCourseNumber    int                       `json:"rows_with_course_number"`
	RowsMissingCourseNumber int                       `json:"rows_missing_course_number"`
	MatchedCourses          int                       `json:"matched_courses"`
	CoursesNotFound         int                       `json:"courses_not_found"`
	UpdatesApplied          int                       `json:"updates_applied"`
	DuplicateNumbers        map[string]DuplicateGroup `json:"duplicate_numbers"`
}

// ImportResult is the outcome of one import run. On fatal errors Success
// is false, Messages explains why, and Summary is nil.
type ImportResult struct {
	ID       string          `json:"id,omitempty"`
	Success  bool            `json:"success"`
	DryRun   bool            `json:"dry_run"`
	Messages []string        `json:"messages"`
	Mapping  []HeaderMapping `json:"mapping,omitempty"`
	Preview  []ParsedRow     `json:"preview,omitempty"`
	Summary  *ImportSummary  `json:"summary,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Version is one snapshot of a course's numbers, credits, and metadata.
// CourseCredits values are float64 for numeric-looking input and string
// otherwise, mirroring how the host stores them.
type Version struct {
	Key            string            `json:"key"`
	Name           string            `json:"name,omitempty"`
	Latest         bool              `json:"latest,omitempty"`
	CourseNumbers  map[string]string `json:"course_numbers"`
	CourseCredits  map[string]any    `json:"course_credits"`
	CourseMetadata map[string]string `json:"course_metadata"`
}

// VersionDoc is a course's ordered list of versions. The slice preserves
// the host's document order, which matters for latest-version selection.
type VersionDoc struct {
	Versions []Version `json:"versions"`
}

// Latest returns the version the host considers current: the first one
// explicitly flagged Latest, else the first version in document order.
// Returns nil when the document has no versions.
func (d *VersionDoc) Latest() *Version {
	if d == nil {
		return nil
	}
	for i := range d.Versions {
		if d.Versions[i].Latest {
			return &d.Versions[i]
		}
	}
	if len(d.Versions) > 0 {
		return &d.Versions[0]
	}
	return nil
}

// FieldDefinition is a persisted custom field created from an unmapped
// CSV header. Sources records every header string that has mapped to it.
type FieldDefinition struct {
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Sources     []string `json:"sources"`
}

// CreditField is an active credit field declared by the host LMS,
// in the host's display order.
type CreditField struct {
	Slug  string `json:"slug"`
	Label string `json:"label"`
}

// MetadataField is an active metadata field definition.
type MetadataField struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// CourseStore is the boundary to the host's course data. Implementations
// must return 0 (not an error) from QueryCourseIDByNumber and nil from
// GetVersionDoc when nothing matches; errors are reserved for I/O
// failures. ListAllCourseIDs must enumerate in ascending ID order so that
// index population is reproducible.
type CourseStore interface {
	ListAllCourseIDs(ctx context.Context) ([]int64, error)
	QueryCourseIDByNumber(ctx context.Context, numberType, value string) (int64, error)
	GetVersionDoc(ctx context.Context, courseID int64) (*VersionDoc, error)
	SetVersionDoc(ctx context.Context, courseID int64, doc *VersionDoc) error
	SaveExtras(ctx context.Context, courseID int64, extras RowExtras) error
	UpdateSearchIndex(ctx context.Context, courseID int64) error
}

// FieldSource exposes the credit and metadata fields declared by the host
// LMS. When the host integration is absent, substitute NoopFieldSource;
// the pipeline then degrades to static-alias mapping only.
type FieldSource interface {
	CreditFields(ctx context.Context) ([]CreditField, error)
	MetadataFields(ctx context.Context) (map[string]MetadataField, error)
}

// FieldStore persists the custom field registry process-wide.
type FieldStore interface {
	Load() (map[string]FieldDefinition, error)
	Save(fields map[string]FieldDefinition) error
}

// NoopFieldSource is the FieldSource used when the host LMS integration
// is unavailable. Both listings are empty.
type NoopFieldSource struct{}

func (NoopFieldSource) CreditFields(context.Context) ([]CreditField, error) {
	return nil, nil
}

func (NoopFieldSource) MetadataFields(context.Context) (map[string]MetadataField, error) {
	return nil, nil
}
