package repository

import (
	"database/sql"
	"fmt"

	"quality-backend/internal/models"
)

// ReferenceKind names one of the reference tables of the quality area
type ReferenceKind string

const (
	KindSector     ReferenceKind = "sectors"
	KindOperator   ReferenceKind = "operators"
	KindInspector  ReferenceKind = "inspectors"
	KindDefectType ReferenceKind = "defect-types"
)

// tableFor maps a kind to its table name. Kinds are a closed set so the
// table name is never taken from user input directly.
func tableFor(kind ReferenceKind) (string, error) {
	switch kind {
	case KindSector:
		return "quality_sectors", nil
	case KindOperator:
		return "quality_operators", nil
	case KindInspector:
		return "quality_inspectors", nil
	case KindDefectType:
		return "quality_defect_types", nil
	default:
		return "", fmt.Errorf("unknown reference kind: %s", kind)
	}
}

// ParseReferenceKind validates a kind supplied in a URL path
func ParseReferenceKind(s string) (ReferenceKind, error) {
	kind := ReferenceKind(s)
	if _, err := tableFor(kind); err != nil {
		return "", err
	}
	return kind, nil
}

// ReferenceRepository handles database operations for the reference tables
// (sectors, operators, inspectors, defect types)
type ReferenceRepository struct {
	db *sql.DB
}

// NewReferenceRepository creates a new reference repository
func NewReferenceRepository(db *sql.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// List retrieves reference entries ordered by name.
// With activeOnly, inactive entries are excluded (form dropdowns).
func (r *ReferenceRepository) List(kind ReferenceKind, activeOnly bool) ([]models.Reference, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, name, description, active, created_at, updated_at FROM ` + table
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []models.Reference
	for rows.Next() {
		var ref models.Reference
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Description, &ref.Active, &ref.CreatedAt, &ref.UpdatedAt); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// GetByID retrieves one reference entry
func (r *ReferenceRepository) GetByID(kind ReferenceKind, id int64) (*models.Reference, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	var ref models.Reference
	query := `SELECT id, name, description, active, created_at, updated_at FROM ` + table + ` WHERE id = $1`
	err = r.db.QueryRow(query, id).Scan(&ref.ID, &ref.Name, &ref.Description, &ref.Active, &ref.CreatedAt, &ref.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// Create inserts a new reference entry
func (r *ReferenceRepository) Create(kind ReferenceKind, ref *models.Reference) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO ` + table + ` (name, description, active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(query, ref.Name, ref.Description, ref.Active).
		Scan(&ref.ID, &ref.CreatedAt, &ref.UpdatedAt)
}

// Update updates name, description and active flag of a reference entry
func (r *ReferenceRepository) Update(kind ReferenceKind, ref *models.Reference) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	query := `
		UPDATE ` + table + `
		SET name = $1, description = $2, active = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
	`
	res, err := r.db.Exec(query, ref.Name, ref.Description, ref.Active, ref.ID)
	if err != nil {
		return err
	}
	return requireRowAffected(res, "update "+string(kind))
}

// Delete removes a reference entry. Entries referenced by revisions are
// protected by foreign keys; callers should deactivate instead.
func (r *ReferenceRepository) Delete(kind ReferenceKind, id int64) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	res, err := r.db.Exec(`DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res, "delete "+string(kind))
}
