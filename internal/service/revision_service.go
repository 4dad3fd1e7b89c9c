package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"quality-backend/internal/models"
	"quality-backend/internal/repository"
	"quality-backend/internal/storage"
	"quality-backend/pkg/validator"
)

var (
	ErrRevisionNotFound     = errors.New("revision not found")
	ErrRevisionFinalized    = errors.New("revision is finalized")
	ErrRevisionNotFinalized = errors.New("revision is not finalized")
	ErrOpenRevisionExists   = errors.New("an open revision already exists for this production order")
	ErrInvalidDelta         = errors.New("invalid progress delta")
)

// uniqueViolation is the Postgres error code for unique constraint violations
const uniqueViolation = "23505"

// SessionInput is the work interval reported with a progress save
type SessionInput struct {
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// PhotoUpload is an optional photo attached to a defect entry
type PhotoUpload struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// DefectInput is one defect entry reported with a progress save
type DefectInput struct {
	DefectTypeID int64        `json:"defect_type_id"`
	Quantity     int          `json:"quantity"`
	Note         string       `json:"note"`
	Photo        *PhotoUpload `json:"photo,omitempty"`
}

// SaveProgressInput is one progress save. RevisionID nil means a new
// revision is created for OPCode; otherwise the deltas accumulate onto
// the existing revision.
type SaveProgressInput struct {
	RevisionID     *int64        `json:"revision_id,omitempty"`
	OPCode         string        `json:"op_code"`
	SectorID       *int64        `json:"sector_id,omitempty"`
	OperatorID     *int64        `json:"operator_id,omitempty"`
	InspectorIDs   []int64       `json:"inspector_ids,omitempty"`
	InspectedDelta int           `json:"inspected_delta"`
	ApprovedDelta  int           `json:"approved_delta"`
	Note           string        `json:"note"`
	Session        SessionInput  `json:"session"`
	Defects        []DefectInput `json:"defects,omitempty"`
	Finalize       bool          `json:"finalize"`
}

// RevisionService handles the revision lifecycle and the transactional
// progress save
type RevisionService struct {
	db            *sql.DB
	revisionRepo  *repository.RevisionRepository
	sessionRepo   *repository.SessionRepository
	defectRepo    *repository.DefectRepository
	inspectorRepo *repository.InspectorAssignmentRepository
	photos        storage.PhotoStore
}

// NewRevisionService creates a new revision service
func NewRevisionService(
	db *sql.DB,
	revisionRepo *repository.RevisionRepository,
	sessionRepo *repository.SessionRepository,
	defectRepo *repository.DefectRepository,
	inspectorRepo *repository.InspectorAssignmentRepository,
	photos storage.PhotoStore,
) *RevisionService {
	return &RevisionService{
		db:            db,
		revisionRepo:  revisionRepo,
		sessionRepo:   sessionRepo,
		defectRepo:    defectRepo,
		inspectorRepo: inspectorRepo,
		photos:        photos,
	}
}

// ValidateProgress checks a save input before it touches the database
func ValidateProgress(input *SaveProgressInput) error {
	input.OPCode = validator.SanitizeString(input.OPCode)
	if err := validator.ValidateOPCode(input.OPCode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDelta, err)
	}
	if input.RevisionID == nil && input.SectorID == nil {
		return fmt.Errorf("%w: sector is required", ErrInvalidDelta)
	}
	if input.InspectedDelta < 0 || input.ApprovedDelta < 0 {
		return fmt.Errorf("%w: counts cannot be negative", ErrInvalidDelta)
	}
	if input.ApprovedDelta > input.InspectedDelta {
		return fmt.Errorf("%w: approved cannot exceed inspected", ErrInvalidDelta)
	}
	if input.Session.StartedAt.IsZero() {
		return fmt.Errorf("%w: session start is required", ErrInvalidDelta)
	}
	for _, d := range input.Defects {
		if d.DefectTypeID == 0 {
			return fmt.Errorf("%w: defect type is required", ErrInvalidDelta)
		}
		if d.Quantity <= 0 {
			return fmt.Errorf("%w: defect quantity must be positive", ErrInvalidDelta)
		}
	}
	return nil
}

// SaveProgress applies one progress save atomically: the counter delta,
// the work session, the defect entries, and optionally the finalize
// transition. Concurrent saves against the same revision serialize on a
// row lock, so sequential accumulation holds regardless of arrival order.
func (s *RevisionService) SaveProgress(ctx context.Context, input *SaveProgressInput) (*models.RevisionWithDetails, error) {
	if err := ValidateProgress(input); err != nil {
		return nil, err
	}

	if input.RevisionID == nil {
		count, err := s.inspectorRepo.CountActiveInspectors(input.InspectorIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to check inspectors: %w", err)
		}
		if len(input.InspectorIDs) == 0 || count != len(input.InspectorIDs) {
			return nil, fmt.Errorf("%w: at least one active inspector is required", ErrInvalidDelta)
		}
	}

	// Photos go to storage before the transaction opens so the row lock
	// is never held across HTTP calls. A failed upload drops the photo
	// but never the defect entry.
	photoURLs := s.uploadPhotos(ctx, input)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var rev *models.Revision
	if input.RevisionID != nil {
		rev, err = s.applyToExisting(tx, *input.RevisionID, input)
	} else {
		rev, err = s.createNew(tx, input)
	}
	if err != nil {
		return nil, err
	}

	session := &models.RevisionSession{
		RevisionID: rev.ID,
		StartedAt:  input.Session.StartedAt,
		EndedAt:    input.Session.EndedAt,
	}
	if err := s.sessionRepo.CreateTx(tx, session); err != nil {
		return nil, fmt.Errorf("failed to record work session: %w", err)
	}

	for i, d := range input.Defects {
		defect := &models.Defect{
			RevisionID:   rev.ID,
			DefectTypeID: d.DefectTypeID,
			Quantity:     d.Quantity,
			Note:         d.Note,
			PhotoURL:     photoURLs[i],
		}
		if err := s.defectRepo.CreateTx(tx, defect); err != nil {
			return nil, fmt.Errorf("failed to record defect: %w", err)
		}
	}

	if input.Finalize {
		if err := s.revisionRepo.FinalizeTx(tx, rev.ID); err != nil {
			return nil, fmt.Errorf("failed to finalize revision: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit progress save: %w", err)
	}

	return s.GetRevision(rev.ID)
}

func (s *RevisionService) applyToExisting(tx *sql.Tx, id int64, input *SaveProgressInput) (*models.Revision, error) {
	locked, err := s.revisionRepo.GetByIDForUpdate(tx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock revision: %w", err)
	}
	if locked == nil {
		return nil, ErrRevisionNotFound
	}
	if !locked.Status.CanSave() {
		return nil, ErrRevisionFinalized
	}

	rev, err := s.revisionRepo.ApplyDeltaTx(tx, id, input.InspectedDelta, input.ApprovedDelta, input.Note)
	if err != nil {
		return nil, fmt.Errorf("failed to apply progress delta: %w", err)
	}
	if rev == nil {
		// The row lock makes this unreachable in practice
		return nil, ErrRevisionFinalized
	}
	return rev, nil
}

func (s *RevisionService) createNew(tx *sql.Tx, input *SaveProgressInput) (*models.Revision, error) {
	rev := &models.Revision{
		OPCode:     input.OPCode,
		SectorID:   input.SectorID,
		OperatorID: input.OperatorID,
		Inspected:  input.InspectedDelta,
		Approved:   input.ApprovedDelta,
		Status:     models.StatusOpen,
		Note:       input.Note,
	}
	if err := s.revisionRepo.CreateTx(tx, rev); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrOpenRevisionExists
		}
		return nil, fmt.Errorf("failed to create revision: %w", err)
	}

	// The inspector set is fixed at creation and never modified afterwards
	if err := s.inspectorRepo.AssignTx(tx, rev.ID, input.InspectorIDs); err != nil {
		return nil, fmt.Errorf("failed to assign inspectors: %w", err)
	}

	return rev, nil
}

// uploadPhotos stores defect photos and returns one URL slot per defect
// entry, nil where there is no photo or the upload failed
func (s *RevisionService) uploadPhotos(ctx context.Context, input *SaveProgressInput) []*string {
	urls := make([]*string, len(input.Defects))
	for i, d := range input.Defects {
		if d.Photo == nil || len(d.Photo.Data) == 0 {
			continue
		}

		path := fmt.Sprintf("revisions/%s/%d_%s", input.OPCode, time.Now().UnixNano(), d.Photo.Filename)
		url, err := s.photos.Upload(ctx, path, d.Photo.Data, d.Photo.ContentType)
		if err != nil {
			slog.Warn("Defect photo upload failed, saving defect without photo",
				"op_code", input.OPCode,
				"defect_type_id", d.DefectTypeID,
				"error", err)
			continue
		}
		urls[i] = &url
	}
	return urls
}

// FindOpenByOP returns the single open revision for a production order
// with its details, or ErrRevisionNotFound when there is none
func (s *RevisionService) FindOpenByOP(opCode string) (*models.RevisionWithDetails, error) {
	rev, err := s.revisionRepo.GetOpenByOP(opCode)
	if err != nil {
		return nil, fmt.Errorf("failed to look up open revision: %w", err)
	}
	if rev == nil {
		return nil, ErrRevisionNotFound
	}
	return s.GetRevision(rev.ID)
}

// GetRevision returns a revision with sessions, defects, inspectors and
// the accumulated work time
func (s *RevisionService) GetRevision(id int64) (*models.RevisionWithDetails, error) {
	rev, err := s.revisionRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get revision: %w", err)
	}
	if rev == nil {
		return nil, ErrRevisionNotFound
	}

	details := &models.RevisionWithDetails{Revision: *rev, RejectedCount: rev.Rejected()}

	details.Sessions, err = s.sessionRepo.GetByRevisionID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	details.Defects, err = s.defectRepo.GetByRevisionID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load defects: %w", err)
	}
	details.Inspectors, err = s.inspectorRepo.GetByRevisionID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load inspectors: %w", err)
	}
	// Clients resuming an open revision pre-fill the form from the ids
	details.InspectorIDs, err = s.inspectorRepo.GetIDsByRevisionID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load inspector ids: %w", err)
	}
	details.TotalMinutes = TotalMinutes(details.Sessions, time.Now())

	return details, nil
}

// ListRevisions returns the revision history, optionally filtered by a
// substring of the production order code
func (s *RevisionService) ListRevisions(opSearch string) ([]models.RevisionWithDetails, error) {
	revisions, err := s.revisionRepo.List(opSearch)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	if err := s.attachDetails(revisions); err != nil {
		return nil, err
	}
	return revisions, nil
}

// attachDetails loads sessions, defects and inspectors for a batch of
// revisions and computes their accumulated minutes
func (s *RevisionService) attachDetails(revisions []models.RevisionWithDetails) error {
	if len(revisions) == 0 {
		return nil
	}

	ids := make([]int64, len(revisions))
	for i := range revisions {
		ids[i] = revisions[i].ID
	}

	sessions, err := s.sessionRepo.GetByRevisionIDs(ids)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	defects, err := s.defectRepo.GetByRevisionIDs(ids)
	if err != nil {
		return fmt.Errorf("failed to load defects: %w", err)
	}

	now := time.Now()
	for i := range revisions {
		rev := &revisions[i]
		rev.Sessions = sessions[rev.ID]
		rev.Defects = defects[rev.ID]
		rev.TotalMinutes = TotalMinutes(rev.Sessions, now)

		rev.Inspectors, err = s.inspectorRepo.GetByRevisionID(rev.ID)
		if err != nil {
			return fmt.Errorf("failed to load inspectors: %w", err)
		}
	}
	return nil
}

// Reopen transitions a finalized revision back to open so another
// correction pass can accumulate onto the same counters
func (s *RevisionService) Reopen(id int64) (*models.RevisionWithDetails, error) {
	rev, err := s.revisionRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get revision: %w", err)
	}
	if rev == nil {
		return nil, ErrRevisionNotFound
	}
	if !rev.Status.CanReopen() {
		return nil, ErrRevisionNotFinalized
	}

	if err := s.revisionRepo.Reopen(id); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrOpenRevisionExists
		}
		return nil, fmt.Errorf("failed to reopen revision: %w", err)
	}

	return s.GetRevision(id)
}

// DeleteRevision removes a revision with all its sessions, defects and
// inspector assignments
func (s *RevisionService) DeleteRevision(id int64) error {
	rev, err := s.revisionRepo.GetByID(id)
	if err != nil {
		return fmt.Errorf("failed to get revision: %w", err)
	}
	if rev == nil {
		return ErrRevisionNotFound
	}

	if err := s.revisionRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete revision: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
