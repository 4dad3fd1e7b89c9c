package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"quality-backend/internal/models"
)

// SessionRepository handles database operations for revision work sessions
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateTx appends a new session for a revision inside a transaction.
// The end timestamp is stored as supplied; an end earlier than the start
// is accepted here and clamped to zero at totaling time.
func (r *SessionRepository) CreateTx(tx *sql.Tx, session *models.RevisionSession) error {
	query := `
		INSERT INTO quality_revision_sessions (revision_id, started_at, ended_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	return tx.QueryRow(
		query,
		session.RevisionID,
		session.StartedAt,
		session.EndedAt,
	).Scan(&session.ID, &session.CreatedAt)
}

// GetByRevisionID retrieves all sessions of a revision in insertion order
func (r *SessionRepository) GetByRevisionID(revisionID int64) ([]models.RevisionSession, error) {
	query := `
		SELECT id, revision_id, started_at, ended_at, created_at
		FROM quality_revision_sessions
		WHERE revision_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(query, revisionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

// GetByRevisionIDs retrieves the sessions of many revisions in one round trip,
// keyed by revision id. Used by the reporting aggregator.
func (r *SessionRepository) GetByRevisionIDs(revisionIDs []int64) (map[int64][]models.RevisionSession, error) {
	if len(revisionIDs) == 0 {
		return map[int64][]models.RevisionSession{}, nil
	}

	query := `
		SELECT id, revision_id, started_at, ended_at, created_at
		FROM quality_revision_sessions
		WHERE revision_id = ANY($1)
		ORDER BY revision_id, created_at ASC
	`
	rows, err := r.db.Query(query, pq.Array(revisionIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions, err := scanSessions(rows)
	if err != nil {
		return nil, err
	}

	byRevision := make(map[int64][]models.RevisionSession, len(revisionIDs))
	for _, s := range sessions {
		byRevision[s.RevisionID] = append(byRevision[s.RevisionID], s)
	}
	return byRevision, nil
}

// CountByRevisionID returns how many sessions a revision has accumulated
func (r *SessionRepository) CountByRevisionID(revisionID int64) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM quality_revision_sessions WHERE revision_id = $1`,
		revisionID,
	).Scan(&count)
	return count, err
}

// SumMinutes returns the total whole minutes over all sessions. Running
// sessions count up to now, sessions with an end before their start
// count as zero.
func (r *SessionRepository) SumMinutes() (int, error) {
	query := `
		SELECT COALESCE(SUM(GREATEST(0, FLOOR(
			EXTRACT(EPOCH FROM (COALESCE(ended_at, CURRENT_TIMESTAMP) - started_at)) / 60
		))), 0)
		FROM quality_revision_sessions
	`
	var minutes int
	err := r.db.QueryRow(query).Scan(&minutes)
	return minutes, err
}

func scanSessions(rows *sql.Rows) ([]models.RevisionSession, error) {
	var sessions []models.RevisionSession
	for rows.Next() {
		var s models.RevisionSession
		if err := rows.Scan(&s.ID, &s.RevisionID, &s.StartedAt, &s.EndedAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
