package service

import (
	"testing"
	"time"

	"quality-backend/internal/models"
)

func strPtr(s string) *string { return &s }

func reportRevision(sector string, inspected, approved, minutes int, defects ...models.DefectWithType) models.RevisionWithDetails {
	rev := models.RevisionWithDetails{
		Revision: models.Revision{
			Inspected: inspected,
			Approved:  approved,
			Status:    models.StatusFinalized,
		},
		TotalMinutes: minutes,
		Defects:      defects,
	}
	if sector != "" {
		rev.SectorName = strPtr(sector)
	}
	return rev
}

func defectOf(typeName string, quantity int) models.DefectWithType {
	return models.DefectWithType{
		Defect:         models.Defect{Quantity: quantity},
		DefectTypeName: typeName,
	}
}

func TestFoldReportTotals(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)

	revisions := []models.RevisionWithDetails{
		reportRevision("Montagem", 100, 95, 60),
		reportRevision("Pintura", 50, 45, 30),
	}

	report := FoldReport(from, to, revisions)

	if report.RevisionCount != 2 {
		t.Errorf("Expected 2 revisions, got %d", report.RevisionCount)
	}
	if report.TotalInspected != 150 {
		t.Errorf("Expected 150 inspected, got %d", report.TotalInspected)
	}
	if report.TotalApproved != 140 {
		t.Errorf("Expected 140 approved, got %d", report.TotalApproved)
	}
	if report.TotalRejected != 10 {
		t.Errorf("Expected 10 rejected, got %d", report.TotalRejected)
	}
	if report.TotalMinutes != 90 {
		t.Errorf("Expected 90 minutes, got %d", report.TotalMinutes)
	}
	if report.ApprovalRate != 93.3 {
		t.Errorf("Expected approval rate 93.3, got %v", report.ApprovalRate)
	}
}

func TestFoldReportEmptyPeriod(t *testing.T) {
	report := FoldReport(time.Now(), time.Now(), nil)

	if report.RevisionCount != 0 {
		t.Errorf("Expected 0 revisions, got %d", report.RevisionCount)
	}
	if report.ApprovalRate != 0 {
		t.Errorf("Approval rate must be 0 when nothing was inspected, got %v", report.ApprovalRate)
	}
}

func TestFoldReportUnknownSector(t *testing.T) {
	revisions := []models.RevisionWithDetails{
		reportRevision("", 10, 10, 0),
	}

	report := FoldReport(time.Now(), time.Now(), revisions)

	if len(report.RevisionsBySector) != 1 {
		t.Fatalf("Expected 1 sector bucket, got %d", len(report.RevisionsBySector))
	}
	if report.RevisionsBySector[0].Name != "unknown" {
		t.Errorf("Expected unknown bucket, got %q", report.RevisionsBySector[0].Name)
	}
}

func TestFoldReportDefectsSortedDescending(t *testing.T) {
	revisions := []models.RevisionWithDetails{
		reportRevision("Montagem", 100, 80, 0,
			defectOf("Risco", 3),
			defectOf("Amassado", 12),
		),
		reportRevision("Montagem", 50, 45, 0,
			defectOf("Risco", 2),
			defectOf("Mancha", 5),
		),
	}

	report := FoldReport(time.Now(), time.Now(), revisions)

	expected := []models.NameCount{
		{Name: "Amassado", Count: 12},
		{Name: "Mancha", Count: 5},
		{Name: "Risco", Count: 5},
	}

	if len(report.DefectsByType) != len(expected) {
		t.Fatalf("Expected %d defect buckets, got %d", len(expected), len(report.DefectsByType))
	}
	for i, want := range expected {
		got := report.DefectsByType[i]
		if got != want {
			t.Errorf("Bucket %d: expected %+v, got %+v", i, want, got)
		}
	}
}

func TestApprovalRate(t *testing.T) {
	tests := []struct {
		name      string
		inspected int
		approved  int
		want      float64
	}{
		{"all approved", 100, 100, 100},
		{"none approved", 100, 0, 0},
		{"one decimal", 150, 140, 93.3},
		{"rounds half up", 3, 2, 66.7},
		{"zero inspected", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ApprovalRate(tt.inspected, tt.approved); got != tt.want {
				t.Errorf("ApprovalRate(%d, %d) = %v, want %v", tt.inspected, tt.approved, got, tt.want)
			}
		})
	}
}

func int64Ptr(n int64) *int64 { return &n }

func TestValidateProgress(t *testing.T) {
	valid := func() *SaveProgressInput {
		return &SaveProgressInput{
			OPCode:         "OP-1042",
			SectorID:       int64Ptr(1),
			InspectedDelta: 10,
			ApprovedDelta:  8,
			Session:        SessionInput{StartedAt: time.Now()},
		}
	}

	if err := ValidateProgress(valid()); err != nil {
		t.Errorf("Valid input should pass, got %v", err)
	}

	input := valid()
	input.OPCode = ""
	if err := ValidateProgress(input); err == nil {
		t.Error("Missing op_code should be rejected")
	}

	input = valid()
	input.SectorID = nil
	if err := ValidateProgress(input); err == nil {
		t.Error("Create without a sector should be rejected")
	}

	input = valid()
	input.RevisionID = int64Ptr(7)
	input.SectorID = nil
	if err := ValidateProgress(input); err != nil {
		t.Errorf("Sector is fixed at creation, accumulating saves need not repeat it, got %v", err)
	}

	input = valid()
	input.InspectedDelta = -1
	if err := ValidateProgress(input); err == nil {
		t.Error("Negative inspected delta should be rejected")
	}

	input = valid()
	input.ApprovedDelta = input.InspectedDelta + 1
	if err := ValidateProgress(input); err == nil {
		t.Error("Approved above inspected should be rejected")
	}

	input = valid()
	input.Session.StartedAt = time.Time{}
	if err := ValidateProgress(input); err == nil {
		t.Error("Missing session start should be rejected")
	}

	input = valid()
	input.Defects = []DefectInput{{DefectTypeID: 1, Quantity: 0}}
	if err := ValidateProgress(input); err == nil {
		t.Error("Zero defect quantity should be rejected")
	}

	input = valid()
	input.Defects = []DefectInput{{Quantity: 2}}
	if err := ValidateProgress(input); err == nil {
		t.Error("Defect without type should be rejected")
	}
}
