// Package store provides the PostgreSQL-backed implementations of the
// pipeline's collaborator boundaries: the course store and the host LMS
// field source.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"course-list-sync/internal/core"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// CourseStore implements core.CourseStore on PostgreSQL. Version
// documents are stored as a JSON array so "first version in document
// order" survives the round trip (jsonb objects reorder keys).
type CourseStore struct {
	db DBTX
}

// NewCourseStore creates a store over the given connection or pool.
func NewCourseStore(db DBTX) *CourseStore {
	return &CourseStore{db: db}
}

// ListAllCourseIDs enumerates every course in ascending ID order, the
// stable order the course index relies on for reproducible population.
func (s *CourseStore) ListAllCourseIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM courses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan course id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// QueryCourseIDByNumber looks a course up in the number index table,
// returning 0 when nothing matches.
func (s *CourseStore) QueryCourseIDByNumber(ctx context.Context, numberType, value string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`SELECT course_id FROM course_number_index WHERE meta_key = $1 AND meta_value = $2 LIMIT 1`,
		numberMetaKey(numberType), value,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query course by number: %w", err)
	}
	return id, nil
}

// GetVersionDoc loads a course's version document. Returns nil (no
// error) when the course does not exist or has no version content.
func (s *CourseStore) GetVersionDoc(ctx context.Context, courseID int64) (*core.VersionDoc, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT version_content FROM courses WHERE id = $1`, courseID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load course %d: %w", courseID, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var versions []core.Version
	if err := json.Unmarshal(raw, &versions); err != nil {
		return nil, fmt.Errorf("decode versions for course %d: %w", courseID, err)
	}
	return &core.VersionDoc{Versions: versions}, nil
}

// SetVersionDoc persists a course's version document.
func (s *CourseStore) SetVersionDoc(ctx context.Context, courseID int64, doc *core.VersionDoc) error {
	raw, err := json.Marshal(doc.Versions)
	if err != nil {
		return fmt.Errorf("encode versions for course %d: %w", courseID, err)
	}
	tag, err := s.db.Exec(ctx, `UPDATE courses SET version_content = $2 WHERE id = $1`, courseID, raw)
	if err != nil {
		return fmt.Errorf("save course %d: %w", courseID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save course %d: not found", courseID)
	}
	return nil
}

// SaveExtras upserts the course's notes, word count, and prices. Notes
// and word count always overwrite (empty clears to NULL). An empty
// prices map stores NULL rather than an empty object.
func (s *CourseStore) SaveExtras(ctx context.Context, courseID int64, extras core.RowExtras) error {
	var prices []byte
	if len(extras.Prices) > 0 {
		var err error
		prices, err = json.Marshal(extras.Prices)
		if err != nil {
			return fmt.Errorf("encode prices for course %d: %w", courseID, err)
		}
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO course_extras (course_id, notes, word_count, prices)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (course_id)
		DO UPDATE SET notes = EXCLUDED.notes, word_count = EXCLUDED.word_count, prices = EXCLUDED.prices`,
		courseID, nullableText(extras.Notes), nullableText(extras.WordCount), prices,
	)
	if err != nil {
		return fmt.Errorf("save extras for course %d: %w", courseID, err)
	}
	return nil
}

// UpdateSearchIndex rewrites the course's rows in the number index table
// from the latest version's course numbers, so fallback queries see what
// was just committed.
func (s *CourseStore) UpdateSearchIndex(ctx context.Context, courseID int64) error {
	doc, err := s.GetVersionDoc(ctx, courseID)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx,
		`DELETE FROM course_number_index WHERE course_id = $1`, courseID,
	); err != nil {
		return fmt.Errorf("clear number index for course %d: %w", courseID, err)
	}

	latest := doc.Latest()
	if latest == nil {
		return nil
	}
	for numberType, value := range latest.CourseNumbers {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if _, err := s.db.Exec(ctx,
			`INSERT INTO course_number_index (course_id, meta_key, meta_value) VALUES ($1, $2, $3)`,
			courseID, numberMetaKey(numberType), value,
		); err != nil {
			return fmt.Errorf("index number for course %d: %w", courseID, err)
		}
	}
	return nil
}

// numberMetaKey builds the index meta key for a number type, sanitized
// the way the host keys its query table.
func numberMetaKey(numberType string) string {
	key := strings.ToLower(strings.TrimSpace(numberType))
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	key = b.String()
	if key == "" {
		key = core.NumberTypeGlobal
	}
	return "course_number_" + key
}

func nullableText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

// FieldSource implements core.FieldSource from the host LMS's field
// declaration tables.
type FieldSource struct {
	db DBTX
}

// NewFieldSource creates a field source over the given connection.
func NewFieldSource(db DBTX) *FieldSource {
	return &FieldSource{db: db}
}

// CreditFields returns active credit fields in display order.
func (s *FieldSource) CreditFields(ctx context.Context) ([]core.CreditField, error) {
	rows, err := s.db.Query(ctx,
		`SELECT slug, label FROM lms_credit_fields WHERE status = 'active' ORDER BY position, slug`)
	if err != nil {
		return nil, fmt.Errorf("list credit fields: %w", err)
	}
	defer rows.Close()

	var fields []core.CreditField
	for rows.Next() {
		var f core.CreditField
		if err := rows.Scan(&f.Slug, &f.Label); err != nil {
			return nil, fmt.Errorf("scan credit field: %w", err)
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// MetadataFields returns active metadata field definitions keyed by slug.
func (s *FieldSource) MetadataFields(ctx context.Context) (map[string]core.MetadataField, error) {
	rows, err := s.db.Query(ctx,
		`SELECT slug, label, COALESCE(description, '') FROM lms_metadata_fields WHERE status = 'active'`)
	if err != nil {
		return nil, fmt.Errorf("list metadata fields: %w", err)
	}
	defer rows.Close()

	fields := make(map[string]core.MetadataField)
	for rows.Next() {
		var slug string
		var f core.MetadataField
		if err := rows.Scan(&slug, &f.Label, &f.Description); err != nil {
			return nil, fmt.Errorf("scan metadata field: %w", err)
		}
		fields[slug] = f
	}
	return fields, rows.Err()
}
