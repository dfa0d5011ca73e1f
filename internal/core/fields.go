package core

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

// FieldStatusActive marks a field definition as active. Only active
// fields participate in header mapping.
const FieldStatusActive = "active"

// FieldRegistry resolves the known credit and metadata fields by merging
// the persisted custom registry with the fields declared by the host LMS.
// Both field maps are computed once and cached; registering a header
// invalidates the metadata cache.
type FieldRegistry struct {
	source FieldSource
	store  FieldStore

	mu            sync.Mutex
	credits       []CreditField
	creditsLoaded bool
	metadata      map[string]MetadataField
}

// NewFieldRegistry creates a registry over the given host source and
// persistence store. A nil source degrades to NoopFieldSource.
func NewFieldRegistry(source FieldSource, store FieldStore) *FieldRegistry {
	if source == nil {
		source = NoopFieldSource{}
	}
	return &FieldRegistry{source: source, store: store}
}

// CreditFields returns the host's active credit fields in display order.
func (r *FieldRegistry) CreditFields(ctx context.Context) ([]CreditField, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.creditsLoaded {
		return r.credits, nil
	}

	fields, err := r.source.CreditFields(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credit fields: %w", err)
	}
	r.credits = fields
	r.creditsLoaded = true
	return r.credits, nil
}

// MetadataFields returns the active metadata fields keyed by slug:
// host-declared fields merged with custom registrations, custom entries
// taking precedence on slug collision.
func (r *FieldRegistry) MetadataFields(ctx context.Context) (map[string]MetadataField, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.metadata != nil {
		return r.metadata, nil
	}

	merged := make(map[string]MetadataField)

	hostFields, err := r.source.MetadataFields(ctx)
	if err != nil {
		return nil, fmt.Errorf("load metadata fields: %w", err)
	}
	for slug, field := range hostFields {
		merged[slug] = field
	}

	custom, err := r.loadCustom()
	if err != nil {
		return nil, err
	}
	for slug, def := range custom {
		if def.Status != FieldStatusActive {
			continue
		}
		merged[slug] = MetadataField{Label: def.Label, Description: def.Description}
	}

	r.metadata = merged
	return r.metadata, nil
}

// RegisterHeader persists a metadata field definition for an unmapped CSV
// header and returns its slug. Registration is idempotent: a repeat
// header refreshes the stored label and appends to Sources only when the
// header text is new. Returns an empty slug for blank headers.
func (r *FieldRegistry) RegisterHeader(header string) (string, error) {
	label := strings.TrimSpace(header)
	if label == "" {
		return "", nil
	}

	slug := Slugify(label)
	if slug == "" {
		sum := md5.Sum([]byte(label))
		slug = "mcl_field_" + hex.EncodeToString(sum[:])
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fields, err := r.loadCustom()
	if err != nil {
		return "", err
	}

	def, exists := fields[slug]
	if exists {
		if def.Label == label && containsString(def.Sources, label) {
			// Nothing to record; skip the rewrite and keep the cache warm.
			return slug, nil
		}
		// Keep the label current in case spreadsheet header casing changed.
		def.Label = label
		if !containsString(def.Sources, label) {
			def.Sources = append(def.Sources, label)
		}
	} else {
		def = FieldDefinition{
			Label:   label,
			Status:  FieldStatusActive,
			Sources: []string{label},
		}
	}
	fields[slug] = def

	if r.store != nil {
		if err := r.store.Save(fields); err != nil {
			return "", fmt.Errorf("save field registry: %w", err)
		}
	}

	// New registration changes the merged metadata map.
	r.metadata = nil

	return slug, nil
}

// loadCustom reads the persisted registry, tolerating a missing store.
// Callers must hold r.mu.
func (r *FieldRegistry) loadCustom() (map[string]FieldDefinition, error) {
	if r.store == nil {
		return make(map[string]FieldDefinition), nil
	}
	fields, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load field registry: %w", err)
	}
	if fields == nil {
		fields = make(map[string]FieldDefinition)
	}
	return fields, nil
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
