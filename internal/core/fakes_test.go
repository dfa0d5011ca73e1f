package core

import (
	"context"
	"fmt"
)

// memStore is an in-memory CourseStore for tests. It counts fallback
// queries and writes so tests can assert on store traffic.
type memStore struct {
	ids     []int64
	docs    map[int64]*VersionDoc
	numbers map[string]int64 // numberType + "\x00" + value -> course ID
	extras  map[int64]*RowExtras

	listCalls  int
	queryCalls int
	writes     int

	failSearchIndex bool
	searchRefreshes []int64
}

func newMemStore() *memStore {
	return &memStore{
		docs:    make(map[int64]*VersionDoc),
		numbers: make(map[string]int64),
		extras:  make(map[int64]*RowExtras),
	}
}

// addCourse registers a course with a single non-latest-flagged version
// holding the given global number.
func (m *memStore) addCourse(id int64, globalNumber string) {
	m.ids = append(m.ids, id)
	m.docs[id] = &VersionDoc{Versions: []Version{{
		Key:           "1.0",
		CourseNumbers: map[string]string{NumberTypeGlobal: globalNumber},
	}}}
	if globalNumber != "" {
		m.addNumber(NumberTypeGlobal, globalNumber, id)
	}
}

func (m *memStore) addNumber(numberType, value string, id int64) {
	m.numbers[numberType+"\x00"+value] = id
}

func (m *memStore) ListAllCourseIDs(context.Context) ([]int64, error) {
	m.listCalls++
	return m.ids, nil
}

func (m *memStore) QueryCourseIDByNumber(_ context.Context, numberType, value string) (int64, error) {
	m.queryCalls++
	return m.numbers[numberType+"\x00"+value], nil
}

func (m *memStore) GetVersionDoc(_ context.Context, courseID int64) (*VersionDoc, error) {
	doc, ok := m.docs[courseID]
	if !ok {
		return nil, nil
	}
	return cloneDoc(doc), nil
}

func (m *memStore) SetVersionDoc(_ context.Context, courseID int64, doc *VersionDoc) error {
	if _, ok := m.docs[courseID]; !ok {
		return fmt.Errorf("course %d: not found", courseID)
	}
	m.writes++
	m.docs[courseID] = cloneDoc(doc)
	return nil
}

func (m *memStore) SaveExtras(_ context.Context, courseID int64, extras RowExtras) error {
	m.writes++
	if len(extras.Prices) == 0 {
		extras.Prices = nil
	}
	m.extras[courseID] = &extras
	return nil
}

func (m *memStore) UpdateSearchIndex(_ context.Context, courseID int64) error {
	if m.failSearchIndex {
		return fmt.Errorf("search index unavailable")
	}
	m.searchRefreshes = append(m.searchRefreshes, courseID)
	return nil
}

func cloneDoc(doc *VersionDoc) *VersionDoc {
	if doc == nil {
		return nil
	}
	out := &VersionDoc{Versions: make([]Version, len(doc.Versions))}
	for i, v := range doc.Versions {
		cv := v
		cv.CourseNumbers = cloneMap(v.CourseNumbers)
		cv.CourseMetadata = cloneMap(v.CourseMetadata)
		if v.CourseCredits != nil {
			cv.CourseCredits = make(map[string]any, len(v.CourseCredits))
			for k, val := range v.CourseCredits {
				cv.CourseCredits[k] = val
			}
		}
		out.Versions[i] = cv
	}
	return out
}

func cloneMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// staticFieldSource is a FieldSource with fixed declarations.
type staticFieldSource struct {
	credits  []CreditField
	metadata map[string]MetadataField
	err      error
}

func (s *staticFieldSource) CreditFields(context.Context) ([]CreditField, error) {
	return s.credits, s.err
}

func (s *staticFieldSource) MetadataFields(context.Context) (map[string]MetadataField, error) {
	return s.metadata, s.err
}

// memFieldStore is an in-memory FieldStore shared across registry
// instances in tests.
type memFieldStore struct {
	fields map[string]FieldDefinition
	saves  int
}

func newMemFieldStore() *memFieldStore {
	return &memFieldStore{fields: make(map[string]FieldDefinition)}
}

func (m *memFieldStore) Load() (map[string]FieldDefinition, error) {
	out := make(map[string]FieldDefinition, len(m.fields))
	for k, v := range m.fields {
		out[k] = v
	}
	return out, nil
}

func (m *memFieldStore) Save(fields map[string]FieldDefinition) error {
	m.saves++
	m.fields = make(map[string]FieldDefinition, len(fields))
	for k, v := range fields {
		m.fields[k] = v
	}
	return nil
}
