package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"quality-backend/internal/models"
)

// InspectorAssignmentRepository handles the revision-to-inspector link table.
// The set is written once when a revision is created and read-only afterwards.
type InspectorAssignmentRepository struct {
	db *sql.DB
}

// NewInspectorAssignmentRepository creates a new inspector assignment repository
func NewInspectorAssignmentRepository(db *sql.DB) *InspectorAssignmentRepository {
	return &InspectorAssignmentRepository{db: db}
}

// AssignTx attaches the inspector set to a revision inside a transaction
func (r *InspectorAssignmentRepository) AssignTx(tx *sql.Tx, revisionID int64, inspectorIDs []int64) error {
	query := `INSERT INTO quality_revision_inspectors (revision_id, inspector_id) VALUES ($1, $2)`
	for _, inspectorID := range inspectorIDs {
		if _, err := tx.Exec(query, revisionID, inspectorID); err != nil {
			return err
		}
	}
	return nil
}

// GetByRevisionID retrieves the inspectors assigned to a revision
func (r *InspectorAssignmentRepository) GetByRevisionID(revisionID int64) ([]models.Reference, error) {
	query := `
		SELECT i.id, i.name, i.description, i.active, i.created_at, i.updated_at
		FROM quality_revision_inspectors ri
		JOIN quality_inspectors i ON ri.inspector_id = i.id
		WHERE ri.revision_id = $1
		ORDER BY i.name ASC
	`
	rows, err := r.db.Query(query, revisionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inspectors []models.Reference
	for rows.Next() {
		var ref models.Reference
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Description, &ref.Active, &ref.CreatedAt, &ref.UpdatedAt); err != nil {
			return nil, err
		}
		inspectors = append(inspectors, ref)
	}
	return inspectors, rows.Err()
}

// GetIDsByRevisionID retrieves just the assigned inspector ids (resume pre-fill)
func (r *InspectorAssignmentRepository) GetIDsByRevisionID(revisionID int64) ([]int64, error) {
	rows, err := r.db.Query(
		`SELECT inspector_id FROM quality_revision_inspectors WHERE revision_id = $1 ORDER BY inspector_id`,
		revisionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountActiveInspectors verifies that every supplied id is an active inspector
func (r *InspectorAssignmentRepository) CountActiveInspectors(inspectorIDs []int64) (int, error) {
	if len(inspectorIDs) == 0 {
		return 0, nil
	}
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM quality_inspectors WHERE active = TRUE AND id = ANY($1)`,
		pq.Array(inspectorIDs),
	).Scan(&count)
	return count, err
}
