package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"quality-backend/internal/models"
	"quality-backend/internal/repository"
)

// ReportService aggregates revisions into period reports and the
// dashboard overview
type ReportService struct {
	revisionRepo *repository.RevisionRepository
	sessionRepo  *repository.SessionRepository
	defectRepo   *repository.DefectRepository
	revisions    *RevisionService
}

// NewReportService creates a new report service
func NewReportService(
	revisionRepo *repository.RevisionRepository,
	sessionRepo *repository.SessionRepository,
	defectRepo *repository.DefectRepository,
	revisions *RevisionService,
) *ReportService {
	return &ReportService{
		revisionRepo: revisionRepo,
		sessionRepo:  sessionRepo,
		defectRepo:   defectRepo,
		revisions:    revisions,
	}
}

// BuildPeriodReport aggregates all revisions created in [from, to]
func (s *ReportService) BuildPeriodReport(from, to time.Time) (*models.PeriodReport, error) {
	revisions, err := s.revisionRepo.ListCreatedBetween(from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load revisions for report: %w", err)
	}
	if err := s.revisions.attachDetails(revisions); err != nil {
		return nil, err
	}

	return FoldReport(from, to, revisions), nil
}

// FoldReport computes the period summary from a loaded snapshot. It is a
// pure fold and safe to recompute on every render.
func FoldReport(from, to time.Time, revisions []models.RevisionWithDetails) *models.PeriodReport {
	report := &models.PeriodReport{
		From:      from,
		To:        to,
		Revisions: revisions,
	}

	sectorCounts := make(map[string]int)
	defectCounts := make(map[string]int)

	for i := range revisions {
		rev := &revisions[i]

		report.RevisionCount++
		report.TotalInspected += rev.Inspected
		report.TotalApproved += rev.Approved
		report.TotalRejected += rev.Rejected()
		report.TotalMinutes += rev.TotalMinutes

		sector := "unknown"
		if rev.SectorName != nil && *rev.SectorName != "" {
			sector = *rev.SectorName
		}
		sectorCounts[sector]++

		for _, d := range rev.Defects {
			name := d.DefectTypeName
			if name == "" {
				name = "unknown"
			}
			defectCounts[name] += d.Quantity
		}
	}

	report.ApprovalRate = ApprovalRate(report.TotalInspected, report.TotalApproved)
	report.RevisionsBySector = sortedCounts(sectorCounts)
	report.DefectsByType = sortedCounts(defectCounts)

	return report
}

// ApprovalRate returns approved/inspected as a percentage with one
// decimal place, and 0 when nothing was inspected
func ApprovalRate(inspected, approved int) float64 {
	if inspected == 0 {
		return 0
	}
	return math.Round(float64(approved)/float64(inspected)*1000) / 10
}

// sortedCounts flattens a count map to buckets ordered by count
// descending, name ascending on ties
func sortedCounts(counts map[string]int) []models.NameCount {
	buckets := make([]models.NameCount, 0, len(counts))
	for name, count := range counts {
		buckets = append(buckets, models.NameCount{Name: name, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Name < buckets[j].Name
	})
	return buckets
}

// DashboardStats returns the live overview of the quality area
func (s *ReportService) DashboardStats() (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	var err error
	if stats.OpenRevisions, err = s.revisionRepo.CountByStatus(models.StatusOpen); err != nil {
		return nil, fmt.Errorf("failed to count open revisions: %w", err)
	}
	if stats.FinalizedRevisions, err = s.revisionRepo.CountByStatus(models.StatusFinalized); err != nil {
		return nil, fmt.Errorf("failed to count finalized revisions: %w", err)
	}
	if stats.TotalInspected, stats.TotalApproved, err = s.revisionRepo.Totals(); err != nil {
		return nil, fmt.Errorf("failed to load totals: %w", err)
	}
	stats.TotalRejected = stats.TotalInspected - stats.TotalApproved

	if stats.TotalMinutes, err = s.sessionRepo.SumMinutes(); err != nil {
		return nil, fmt.Errorf("failed to sum work minutes: %w", err)
	}
	if stats.TopDefectTypes, err = s.defectRepo.TopTypes(5); err != nil {
		return nil, fmt.Errorf("failed to load top defect types: %w", err)
	}

	return stats, nil
}
