package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"quality-backend/internal/models"
)

// DefectRepository handles database operations for the defect ledger
type DefectRepository struct {
	db *sql.DB
}

// NewDefectRepository creates a new defect repository
func NewDefectRepository(db *sql.DB) *DefectRepository {
	return &DefectRepository{db: db}
}

// CreateTx appends one defect observation inside a transaction.
// The ledger is append-only: there is no update path, and rows are removed
// only when the owning revision is deleted.
func (r *DefectRepository) CreateTx(tx *sql.Tx, defect *models.Defect) error {
	query := `
		INSERT INTO quality_revision_defects (revision_id, defect_type_id, quantity, note, photo_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return tx.QueryRow(
		query,
		defect.RevisionID,
		defect.DefectTypeID,
		defect.Quantity,
		defect.Note,
		defect.PhotoURL,
	).Scan(&defect.ID, &defect.CreatedAt)
}

// GetByRevisionID retrieves the defects of a revision with their type names
func (r *DefectRepository) GetByRevisionID(revisionID int64) ([]models.DefectWithType, error) {
	query := `
		SELECT d.id, d.revision_id, d.defect_type_id, d.quantity, d.note, d.photo_url, d.created_at,
		       t.name AS defect_type_name
		FROM quality_revision_defects d
		JOIN quality_defect_types t ON d.defect_type_id = t.id
		WHERE d.revision_id = $1
		ORDER BY d.created_at ASC
	`
	rows, err := r.db.Query(query, revisionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDefectsWithType(rows)
}

// GetByRevisionIDs retrieves the defects of many revisions in one round trip,
// keyed by revision id. Used by the reporting aggregator.
func (r *DefectRepository) GetByRevisionIDs(revisionIDs []int64) (map[int64][]models.DefectWithType, error) {
	if len(revisionIDs) == 0 {
		return map[int64][]models.DefectWithType{}, nil
	}

	query := `
		SELECT d.id, d.revision_id, d.defect_type_id, d.quantity, d.note, d.photo_url, d.created_at,
		       t.name AS defect_type_name
		FROM quality_revision_defects d
		JOIN quality_defect_types t ON d.defect_type_id = t.id
		WHERE d.revision_id = ANY($1)
		ORDER BY d.revision_id, d.created_at ASC
	`
	rows, err := r.db.Query(query, pq.Array(revisionIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defects, err := scanDefectsWithType(rows)
	if err != nil {
		return nil, err
	}

	byRevision := make(map[int64][]models.DefectWithType, len(revisionIDs))
	for _, d := range defects {
		byRevision[d.RevisionID] = append(byRevision[d.RevisionID], d)
	}
	return byRevision, nil
}

// CountByRevisionID returns how many ledger entries a revision has
func (r *DefectRepository) CountByRevisionID(revisionID int64) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM quality_revision_defects WHERE revision_id = $1`,
		revisionID,
	).Scan(&count)
	return count, err
}

// TopTypes returns defect quantities grouped by type name, highest first
func (r *DefectRepository) TopTypes(limit int) ([]models.NameCount, error) {
	query := `
		SELECT t.name, COALESCE(SUM(d.quantity), 0) AS quantity
		FROM quality_revision_defects d
		JOIN quality_defect_types t ON d.defect_type_id = t.id
		GROUP BY t.name
		ORDER BY quantity DESC
		LIMIT $1
	`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []models.NameCount
	for rows.Next() {
		var b models.NameCount
		if err := rows.Scan(&b.Name, &b.Count); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func scanDefectsWithType(rows *sql.Rows) ([]models.DefectWithType, error) {
	var defects []models.DefectWithType
	for rows.Next() {
		var d models.DefectWithType
		if err := rows.Scan(
			&d.ID,
			&d.RevisionID,
			&d.DefectTypeID,
			&d.Quantity,
			&d.Note,
			&d.PhotoURL,
			&d.CreatedAt,
			&d.DefectTypeName,
		); err != nil {
			return nil, err
		}
		defects = append(defects, d)
	}
	return defects, rows.Err()
}
