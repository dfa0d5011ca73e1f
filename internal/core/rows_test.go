package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseRow(t *testing.T) {
	mappings := []HeaderMapping{
		{Type: TypeCourseNumber},
		{Type: TypeTitle},
		{Type: TypeCredit, Key: "ce"},
		{Type: TypeCreditNumber, Key: "ce"},
		{Type: TypeMetadata, Key: "renewal-date"},
		{Type: TypeNotes},
		{Type: TypeWordCount},
		{Type: TypePrice, Key: "price_pdf"},
		{Type: TypeUnknown},
	}
	cells := []string{"101-A", "Intro to Widgets", "3.0", "CE-101", "2026-01-01", "call vendor", "1200", "49.00", "ignored"}

	got := ParseRow(2, mappings, cells)

	want := ParsedRow{
		Index:         2,
		CourseNumber:  "101-A",
		Title:         "Intro to Widgets",
		Credits:       map[string]string{"ce": "3.0"},
		CreditNumbers: map[string]string{"ce": "CE-101"},
		Metadata:      map[string]string{"renewal-date": "2026-01-01"},
		Extras: RowExtras{
			Notes:     "call vendor",
			WordCount: "1200",
			Prices:    map[string]string{"price_pdf": "49.00"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseRow mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRowBlankCellsDoNotOverwrite(t *testing.T) {
	mappings := []HeaderMapping{
		{Type: TypeCourseNumber},
		{Type: TypeCourseNumber},
		{Type: TypeNotes},
		{Type: TypeNotes},
	}

	// A blank later column must not clear the earlier value; a non-blank
	// later column wins.
	got := ParseRow(2, mappings, []string{"101-A", "  ", "first", "second"})
	if got.CourseNumber != "101-A" {
		t.Errorf("course number = %q, want %q", got.CourseNumber, "101-A")
	}
	if got.Extras.Notes != "second" {
		t.Errorf("notes = %q, want %q (last write wins)", got.Extras.Notes, "second")
	}
}

func TestParseRowShortRow(t *testing.T) {
	mappings := []HeaderMapping{
		{Type: TypeCourseNumber},
		{Type: TypeTitle},
		{Type: TypeCredit, Key: "ce"},
	}

	got := ParseRow(3, mappings, []string{"101-A"})
	if got.CourseNumber != "101-A" {
		t.Errorf("course number = %q", got.CourseNumber)
	}
	if got.Title != "" || len(got.Credits) != 0 {
		t.Errorf("missing cells should stay empty, got %+v", got)
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  plain  ", "plain"},
		{`="0042"`, "0042"},
		{`=""`, `=""`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanCell(tt.input); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
