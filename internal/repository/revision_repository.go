package repository

import (
	"database/sql"
	"fmt"
	"time"

	"quality-backend/internal/models"
)

// RevisionRepository handles database operations for revisions
type RevisionRepository struct {
	db *sql.DB
}

// NewRevisionRepository creates a new revision repository
func NewRevisionRepository(db *sql.DB) *RevisionRepository {
	return &RevisionRepository{db: db}
}

const revisionColumns = `id, op_code, sector_id, operator_id, inspected, approved, status, note, created_at, updated_at, finalized_at`

func scanRevision(row interface{ Scan(...interface{}) error }, rev *models.Revision) error {
	return row.Scan(
		&rev.ID,
		&rev.OPCode,
		&rev.SectorID,
		&rev.OperatorID,
		&rev.Inspected,
		&rev.Approved,
		&rev.Status,
		&rev.Note,
		&rev.CreatedAt,
		&rev.UpdatedAt,
		&rev.FinalizedAt,
	)
}

// GetByID retrieves a revision by ID
func (r *RevisionRepository) GetByID(id int64) (*models.Revision, error) {
	var rev models.Revision
	query := `SELECT ` + revisionColumns + ` FROM quality_revisions WHERE id = $1`
	err := scanRevision(r.db.QueryRow(query, id), &rev)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// GetOpenByOP retrieves the single open revision for a production order, if any
func (r *RevisionRepository) GetOpenByOP(opCode string) (*models.Revision, error) {
	var rev models.Revision
	query := `SELECT ` + revisionColumns + ` FROM quality_revisions WHERE op_code = $1 AND status = 'open'`
	err := scanRevision(r.db.QueryRow(query, opCode), &rev)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// GetByIDForUpdate locks the revision row for the duration of the transaction.
// Concurrent progress saves against the same revision serialize on this lock.
func (r *RevisionRepository) GetByIDForUpdate(tx *sql.Tx, id int64) (*models.Revision, error) {
	var rev models.Revision
	query := `SELECT ` + revisionColumns + ` FROM quality_revisions WHERE id = $1 FOR UPDATE`
	err := scanRevision(tx.QueryRow(query, id), &rev)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// CreateTx inserts a new revision inside a transaction
func (r *RevisionRepository) CreateTx(tx *sql.Tx, rev *models.Revision) error {
	query := `
		INSERT INTO quality_revisions (op_code, sector_id, operator_id, inspected, approved, status, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	return tx.QueryRow(
		query,
		rev.OPCode,
		rev.SectorID,
		rev.OperatorID,
		rev.Inspected,
		rev.Approved,
		rev.Status,
		rev.Note,
	).Scan(&rev.ID, &rev.CreatedAt, &rev.UpdatedAt)
}

// ApplyDeltaTx adds a session delta to the cumulative counters in SQL.
// The increment happens server-side so the caller never resends totals,
// and only an open revision is eligible.
func (r *RevisionRepository) ApplyDeltaTx(tx *sql.Tx, id int64, inspected, approved int, note string) (*models.Revision, error) {
	var rev models.Revision
	query := `
		UPDATE quality_revisions
		SET inspected = inspected + $1,
		    approved = approved + $2,
		    note = $3,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $4 AND status = 'open'
		RETURNING ` + revisionColumns
	err := scanRevision(tx.QueryRow(query, inspected, approved, note, id), &rev)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// FinalizeTx transitions an open revision to finalized
func (r *RevisionRepository) FinalizeTx(tx *sql.Tx, id int64) error {
	query := `
		UPDATE quality_revisions
		SET status = 'finalized', finalized_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'open'
	`
	res, err := tx.Exec(query, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res, "finalize revision")
}

// Reopen transitions a finalized revision back to open. Counts are untouched.
func (r *RevisionRepository) Reopen(id int64) error {
	query := `
		UPDATE quality_revisions
		SET status = 'open', finalized_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'finalized'
	`
	res, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res, "reopen revision")
}

// Delete removes a revision. Sessions, defects and inspector assignments
// go with it via ON DELETE CASCADE.
func (r *RevisionRepository) Delete(id int64) error {
	res, err := r.db.Exec(`DELETE FROM quality_revisions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res, "delete revision")
}

// List retrieves revisions with sector and operator names, newest first.
// opSearch filters by substring on the order code when non-empty.
func (r *RevisionRepository) List(opSearch string) ([]models.RevisionWithDetails, error) {
	query := `
		SELECT r.id, r.op_code, r.sector_id, r.operator_id, r.inspected, r.approved,
		       r.status, r.note, r.created_at, r.updated_at, r.finalized_at,
		       s.name AS sector_name, o.name AS operator_name
		FROM quality_revisions r
		LEFT JOIN quality_sectors s ON r.sector_id = s.id
		LEFT JOIN quality_operators o ON r.operator_id = o.id
	`
	var args []interface{}
	if opSearch != "" {
		query += ` WHERE r.op_code ILIKE $1`
		args = append(args, "%"+opSearch+"%")
	}
	query += ` ORDER BY r.created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRevisionsWithDetails(rows)
}

// ListCreatedBetween retrieves revisions whose creation timestamp falls in
// [from, to], with sector and operator names, newest first.
func (r *RevisionRepository) ListCreatedBetween(from, to time.Time) ([]models.RevisionWithDetails, error) {
	query := `
		SELECT r.id, r.op_code, r.sector_id, r.operator_id, r.inspected, r.approved,
		       r.status, r.note, r.created_at, r.updated_at, r.finalized_at,
		       s.name AS sector_name, o.name AS operator_name
		FROM quality_revisions r
		LEFT JOIN quality_sectors s ON r.sector_id = s.id
		LEFT JOIN quality_operators o ON r.operator_id = o.id
		WHERE r.created_at >= $1 AND r.created_at <= $2
		ORDER BY r.created_at DESC
	`
	rows, err := r.db.Query(query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRevisionsWithDetails(rows)
}

// CountByStatus returns the number of revisions in the given status
func (r *RevisionRepository) CountByStatus(status models.RevisionStatus) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM quality_revisions WHERE status = $1`, status).Scan(&count)
	return count, err
}

// Totals returns the sum of cumulative inspected and approved over all revisions
func (r *RevisionRepository) Totals() (inspected, approved int, err error) {
	query := `SELECT COALESCE(SUM(inspected), 0), COALESCE(SUM(approved), 0) FROM quality_revisions`
	err = r.db.QueryRow(query).Scan(&inspected, &approved)
	return inspected, approved, err
}

func scanRevisionsWithDetails(rows *sql.Rows) ([]models.RevisionWithDetails, error) {
	var revisions []models.RevisionWithDetails
	for rows.Next() {
		var rev models.RevisionWithDetails
		if err := rows.Scan(
			&rev.ID,
			&rev.OPCode,
			&rev.SectorID,
			&rev.OperatorID,
			&rev.Inspected,
			&rev.Approved,
			&rev.Status,
			&rev.Note,
			&rev.CreatedAt,
			&rev.UpdatedAt,
			&rev.FinalizedAt,
			&rev.SectorName,
			&rev.OperatorName,
		); err != nil {
			return nil, err
		}
		rev.RejectedCount = rev.Rejected()
		revisions = append(revisions, rev)
	}
	return revisions, rows.Err()
}

func requireRowAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s: no matching row", op)
	}
	return nil
}
