package models

import (
	"time"
)

// RevisionStatus is the lifecycle state of a revision
type RevisionStatus string

const (
	StatusOpen      RevisionStatus = "open"
	StatusFinalized RevisionStatus = "finalized"
)

// Valid reports whether s is a known status
func (s RevisionStatus) Valid() bool {
	return s == StatusOpen || s == StatusFinalized
}

// CanSave reports whether a progress save is accepted in this state
func (s RevisionStatus) CanSave() bool {
	return s == StatusOpen
}

// CanReopen reports whether the reopen transition is accepted in this state
func (s RevisionStatus) CanReopen() bool {
	return s == StatusFinalized
}

// Reference is an entry of one of the reference tables
// (sectors, operators, inspectors, defect types)
type Reference struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Revision is one inspection effort tracked against a production order.
// Rejected is always derived as Inspected - Approved and never stored.
type Revision struct {
	ID          int64          `json:"id" db:"id"`
	OPCode      string         `json:"op_code" db:"op_code"`
	SectorID    *int64         `json:"sector_id,omitempty" db:"sector_id"`
	OperatorID  *int64         `json:"operator_id,omitempty" db:"operator_id"`
	Inspected   int            `json:"inspected" db:"inspected"`
	Approved    int            `json:"approved" db:"approved"`
	Status      RevisionStatus `json:"status" db:"status"`
	Note        string         `json:"note" db:"note"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
	FinalizedAt *time.Time     `json:"finalized_at,omitempty" db:"finalized_at"`
}

// Rejected returns the derived rejected count
func (r *Revision) Rejected() int {
	return r.Inspected - r.Approved
}

// RevisionSession is one contiguous time interval of inspection work
// within a revision. EndedAt nil means still running.
type RevisionSession struct {
	ID         int64      `json:"id" db:"id"`
	RevisionID int64      `json:"revision_id" db:"revision_id"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Defect is one recorded non-conformity found during a revision.
// Entries are append-only and removed only with their revision.
type Defect struct {
	ID           int64     `json:"id" db:"id"`
	RevisionID   int64     `json:"revision_id" db:"revision_id"`
	DefectTypeID int64     `json:"defect_type_id" db:"defect_type_id"`
	Quantity     int       `json:"quantity" db:"quantity"`
	Note         string    `json:"note" db:"note"`
	PhotoURL     *string   `json:"photo_url,omitempty" db:"photo_url"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// DefectWithType is a defect joined with its type name for display
type DefectWithType struct {
	Defect
	DefectTypeName string `json:"defect_type_name" db:"defect_type_name"`
}

// RevisionWithDetails is a revision joined with sector/operator names
// plus its sessions, defects and inspectors, for history and report views
type RevisionWithDetails struct {
	Revision
	SectorName    *string           `json:"sector_name,omitempty" db:"sector_name"`
	OperatorName  *string           `json:"operator_name,omitempty" db:"operator_name"`
	RejectedCount int               `json:"rejected"`
	Sessions      []RevisionSession `json:"sessions,omitempty"`
	Defects       []DefectWithType  `json:"defects,omitempty"`
	Inspectors    []Reference       `json:"inspectors,omitempty"`
	InspectorIDs  []int64           `json:"inspector_ids,omitempty"`
	TotalMinutes  int               `json:"total_minutes"`
}

// NameCount is one bucket of a grouped report total
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PeriodReport is the summary over all revisions created in a date range.
// It is a pure fold over the snapshot and safe to recompute on every render.
type PeriodReport struct {
	From              time.Time             `json:"from"`
	To                time.Time             `json:"to"`
	RevisionCount     int                   `json:"revision_count"`
	TotalInspected    int                   `json:"total_inspected"`
	TotalApproved     int                   `json:"total_approved"`
	TotalRejected     int                   `json:"total_rejected"`
	TotalMinutes      int                   `json:"total_minutes"`
	ApprovalRate      float64               `json:"approval_rate"`
	RevisionsBySector []NameCount           `json:"revisions_by_sector"`
	DefectsByType     []NameCount           `json:"defects_by_type"`
	Revisions         []RevisionWithDetails `json:"revisions"`
}

// DashboardStats is the live overview of the quality area
type DashboardStats struct {
	OpenRevisions      int         `json:"open_revisions"`
	FinalizedRevisions int         `json:"finalized_revisions"`
	TotalInspected     int         `json:"total_inspected"`
	TotalApproved      int         `json:"total_approved"`
	TotalRejected      int         `json:"total_rejected"`
	TotalMinutes       int         `json:"total_minutes"`
	TopDefectTypes     []NameCount `json:"top_defect_types"`
}
