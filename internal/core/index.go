package core

import (
	"context"
	"strings"
	"sync"

	"course-list-sync/internal/coursenum"
)

// CourseIndex caches normalized course number -> course ID lookups.
//
// Each number type gets its own partition, built lazily by a single full
// scan of every course document. A full scan amortizes well across an
// import run of hundreds or thousands of rows; individual misses fall
// back to a targeted store query so the cache tolerates staleness from
// concurrent edits, and successful fallbacks self-heal into the cache.
//
// The index is created once per process and never evicts entries.
type CourseIndex struct {
	store CourseStore

	mu         sync.Mutex
	partitions map[string]map[string]int64
}

// NewCourseIndex creates an index backed by the given store.
func NewCourseIndex(store CourseStore) *CourseIndex {
	return &CourseIndex{
		store:      store,
		partitions: make(map[string]map[string]int64),
	}
}

// FindCourseID resolves a raw course number to a course ID, returning 0
// when no course matches. numberType is NumberTypeGlobal for the primary
// identifier or a credit field slug for credit-specific numbers.
func (x *CourseIndex) FindCourseID(ctx context.Context, raw, numberType string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	normalized := coursenum.Normalize(raw)
	if trimmed == "" && normalized == "" {
		return 0, nil
	}

	part, err := x.partition(ctx, numberType)
	if err != nil {
		return 0, err
	}
	if normalized != "" {
		if id, ok := part[normalized]; ok {
			return id, nil
		}
	}

	// Cache miss: try the raw candidate forms directly against the store.
	// The index can be stale when other processes edit courses mid-run.
	for _, candidate := range lookupCandidates(trimmed, normalized) {
		id, err := x.store.QueryCourseIDByNumber(ctx, numberType, candidate)
		if err != nil {
			return 0, err
		}
		if id == 0 {
			continue
		}
		x.remember(numberType, normalized, candidate, id)
		return id, nil
	}

	return 0, nil
}

// partition returns the cache partition for numberType, building it on
// first use by scanning every course document in ascending ID order.
// On a key collision the first writer wins; later documents never
// overwrite an existing entry.
func (x *CourseIndex) partition(ctx context.Context, numberType string) (map[string]int64, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if part, ok := x.partitions[numberType]; ok {
		return part, nil
	}

	ids, err := x.store.ListAllCourseIDs(ctx)
	if err != nil {
		return nil, err
	}

	part := make(map[string]int64)
	for _, id := range ids {
		doc, err := x.store.GetVersionDoc(ctx, id)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		for _, version := range doc.Versions {
			key := coursenum.Normalize(version.CourseNumbers[numberType])
			if key == "" {
				continue
			}
			if _, exists := part[key]; !exists {
				part[key] = id
			}
		}
	}

	x.partitions[numberType] = part
	return part, nil
}

// remember inserts a fallback-query hit into the partition so the next
// lookup for the same number is served from memory.
func (x *CourseIndex) remember(numberType, normalized, candidate string, id int64) {
	key := normalized
	if key == "" {
		key = coursenum.Normalize(candidate)
	}
	if key == "" {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	part, ok := x.partitions[numberType]
	if !ok {
		return
	}
	if _, exists := part[key]; !exists {
		part[key] = id
	}
}

// lookupCandidates lists the raw forms tried against the store on a cache
// miss, in order: the exact input, the normalized form, the input with a
// leading '#' stripped, and the input with a leading '#' added. Empty and
// repeated forms are skipped.
func lookupCandidates(trimmed, normalized string) []string {
	forms := []string{
		trimmed,
		normalized,
		strings.TrimPrefix(trimmed, "#"),
		"#" + trimmed,
	}

	candidates := make([]string, 0, len(forms))
	seen := make(map[string]bool, len(forms))
	for _, form := range forms {
		if form == "" || form == "#" || seen[form] {
			continue
		}
		seen[form] = true
		candidates = append(candidates, form)
	}
	return candidates
}
