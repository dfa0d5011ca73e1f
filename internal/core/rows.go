package core

import "strings"

// ParseRow converts one CSV data row into a ParsedRow using the column
// mappings. index is the 1-based spreadsheet row number (header row = 1).
//
// Blank cells are skipped entirely so they can never clear a value that
// an earlier column set. Repeated course number, title, notes, and word
// count columns are last-write-wins; credits, credit numbers, metadata,
// and prices accumulate by key.
func ParseRow(index int, mappings []HeaderMapping, cells []string) ParsedRow {
	row := ParsedRow{
		Index:         index,
		Credits:       make(map[string]string),
		CreditNumbers: make(map[string]string),
		Metadata:      make(map[string]string),
		Extras: RowExtras{
			Prices: make(map[string]string),
		},
	}

	for i, mapping := range mappings {
		if i >= len(cells) {
			break
		}
		value := CleanCell(cells[i])
		if value == "" {
			continue
		}

		switch mapping.Type {
		case TypeCourseNumber:
			row.CourseNumber = value
		case TypeTitle:
			row.Title = value
		case TypeCredit:
			row.Credits[mapping.Key] = value
		case TypeCreditNumber:
			row.CreditNumbers[mapping.Key] = value
		case TypeMetadata:
			row.Metadata[mapping.Key] = value
		case TypeNotes:
			row.Extras.Notes = value
		case TypeWordCount:
			row.Extras.WordCount = value
		case TypePrice:
			row.Extras.Prices[mapping.Key] = value
		case TypeUnknown:
			// Unmapped columns are ignored.
		}
	}

	return row
}

// CleanCell trims a cell and unwraps the Excel formula guard (="value")
// that spreadsheet exports add to preserve leading zeros.
func CleanCell(cell string) string {
	s := strings.TrimSpace(cell)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) > 3 {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(s)
}
