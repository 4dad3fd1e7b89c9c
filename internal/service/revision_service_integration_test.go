package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"quality-backend/internal/models"
	"quality-backend/internal/repository"
	"quality-backend/internal/testutil"
)

// fakePhotoStore stands in for the object store in integration tests
type fakePhotoStore struct {
	fail    bool
	uploads int
}

func (f *fakePhotoStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if f.fail {
		return "", errors.New("storage unavailable")
	}
	f.uploads++
	return "https://cdn.test/" + path, nil
}

type testEnv struct {
	fixtures   *testutil.Fixtures
	photos     *fakePhotoStore
	svc        *RevisionService
	reports    *ReportService
	sessions   *repository.SessionRepository
	defects    *repository.DefectRepository
	inspectors *repository.InspectorAssignmentRepository
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	tc := testutil.SetupTestContainers(t)
	t.Cleanup(func() { tc.Cleanup(t) })

	fixtures := testutil.SetupFixtures(t, tc.DB)

	revisionRepo := repository.NewRevisionRepository(tc.DB)
	sessionRepo := repository.NewSessionRepository(tc.DB)
	defectRepo := repository.NewDefectRepository(tc.DB)
	inspectorRepo := repository.NewInspectorAssignmentRepository(tc.DB)

	photos := &fakePhotoStore{}
	svc := NewRevisionService(tc.DB, revisionRepo, sessionRepo, defectRepo, inspectorRepo, photos)
	reports := NewReportService(revisionRepo, sessionRepo, defectRepo, svc)

	return &testEnv{
		fixtures:   fixtures,
		photos:     photos,
		svc:        svc,
		reports:    reports,
		sessions:   sessionRepo,
		defects:    defectRepo,
		inspectors: inspectorRepo,
	}
}

func (e *testEnv) saveInput(opCode string, inspected, approved int) *SaveProgressInput {
	started := time.Now().Add(-90 * time.Minute)
	ended := time.Now().Add(-30 * time.Minute)
	return &SaveProgressInput{
		OPCode:         opCode,
		SectorID:       &e.fixtures.Sector.ID,
		OperatorID:     &e.fixtures.Operator.ID,
		InspectorIDs:   []int64{e.fixtures.Inspector.ID},
		InspectedDelta: inspected,
		ApprovedDelta:  approved,
		Session:        SessionInput{StartedAt: started, EndedAt: &ended},
	}
}

func TestSaveProgressLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	env := setupEnv(t)
	ctx := context.Background()

	// First save creates the revision with a two-inspector team
	input := env.saveInput("OP-1001", 30, 28)
	input.InspectorIDs = []int64{env.fixtures.Inspector.ID, env.fixtures.Inspector2.ID}
	input.Defects = []DefectInput{
		{
			DefectTypeID: env.fixtures.DefectTypes[0].ID,
			Quantity:     2,
			Note:         "scratch on panel",
			Photo:        &PhotoUpload{Filename: "scratch.jpg", ContentType: "image/jpeg", Data: []byte("jpegdata")},
		},
	}

	rev, err := env.svc.SaveProgress(ctx, input)
	if err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if rev.Inspected != 30 || rev.Approved != 28 {
		t.Errorf("Expected 30/28, got %d/%d", rev.Inspected, rev.Approved)
	}
	if rev.RejectedCount != 2 {
		t.Errorf("Expected 2 rejected, got %d", rev.RejectedCount)
	}
	if rev.Status != models.StatusOpen {
		t.Errorf("Expected open status, got %s", rev.Status)
	}
	if len(rev.Sessions) != 1 {
		t.Errorf("Expected 1 session, got %d", len(rev.Sessions))
	}
	if len(rev.Defects) != 1 {
		t.Fatalf("Expected 1 defect, got %d", len(rev.Defects))
	}
	if rev.Defects[0].PhotoURL == nil {
		t.Error("Defect photo URL should be set")
	}
	if len(rev.Inspectors) != 2 {
		t.Errorf("Expected 2 inspectors assigned, got %+v", rev.Inspectors)
	}
	wantIDs := []int64{env.fixtures.Inspector.ID, env.fixtures.Inspector2.ID}
	if wantIDs[0] > wantIDs[1] {
		wantIDs[0], wantIDs[1] = wantIDs[1], wantIDs[0]
	}
	if len(rev.InspectorIDs) != 2 || rev.InspectorIDs[0] != wantIDs[0] || rev.InspectorIDs[1] != wantIDs[1] {
		t.Errorf("Expected inspector ids %v for form pre-fill, got %v", wantIDs, rev.InspectorIDs)
	}
	if rev.TotalMinutes != 60 {
		t.Errorf("Expected 60 minutes, got %d", rev.TotalMinutes)
	}

	// Second save accumulates onto the same revision
	input = env.saveInput("OP-1001", 20, 19)
	input.RevisionID = &rev.ID
	rev, err = env.svc.SaveProgress(ctx, input)
	if err != nil {
		t.Fatalf("Second save failed: %v", err)
	}
	if rev.Inspected != 50 || rev.Approved != 47 {
		t.Errorf("Counts should accumulate to 50/47, got %d/%d", rev.Inspected, rev.Approved)
	}
	if len(rev.Sessions) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(rev.Sessions))
	}
	if rev.TotalMinutes != 120 {
		t.Errorf("Expected 120 minutes over 2 sessions, got %d", rev.TotalMinutes)
	}

	// Third save finalizes
	input = env.saveInput("OP-1001", 10, 10)
	input.RevisionID = &rev.ID
	input.Finalize = true
	rev, err = env.svc.SaveProgress(ctx, input)
	if err != nil {
		t.Fatalf("Finalizing save failed: %v", err)
	}
	if rev.Inspected != 60 || rev.Approved != 57 {
		t.Errorf("Expected 60/57 after finalize, got %d/%d", rev.Inspected, rev.Approved)
	}
	if rev.Status != models.StatusFinalized {
		t.Errorf("Expected finalized status, got %s", rev.Status)
	}
	if rev.FinalizedAt == nil {
		t.Error("FinalizedAt should be set")
	}

	// Saves against a finalized revision are rejected
	input = env.saveInput("OP-1001", 5, 5)
	input.RevisionID = &rev.ID
	if _, err := env.svc.SaveProgress(ctx, input); !errors.Is(err, ErrRevisionFinalized) {
		t.Errorf("Expected ErrRevisionFinalized, got %v", err)
	}

	// Reopen preserves the accumulated counts
	rev, err = env.svc.Reopen(rev.ID)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	if rev.Status != models.StatusOpen {
		t.Errorf("Expected open status after reopen, got %s", rev.Status)
	}
	if rev.FinalizedAt != nil {
		t.Error("FinalizedAt should be cleared on reopen")
	}
	if rev.Inspected != 60 || rev.Approved != 57 {
		t.Errorf("Reopen must preserve counts, got %d/%d", rev.Inspected, rev.Approved)
	}

	// Accumulation continues after reopen
	input = env.saveInput("OP-1001", 5, 5)
	input.RevisionID = &rev.ID
	rev, err = env.svc.SaveProgress(ctx, input)
	if err != nil {
		t.Fatalf("Save after reopen failed: %v", err)
	}
	if rev.Inspected != 65 || rev.Approved != 62 {
		t.Errorf("Expected 65/62 after reopen save, got %d/%d", rev.Inspected, rev.Approved)
	}

	// The open revision is findable by order code
	found, err := env.svc.FindOpenByOP("OP-1001")
	if err != nil {
		t.Fatalf("FindOpenByOP failed: %v", err)
	}
	if found.ID != rev.ID {
		t.Errorf("Expected revision %d, got %d", rev.ID, found.ID)
	}

	// A second open revision for the same order is rejected
	if _, err := env.svc.SaveProgress(ctx, env.saveInput("OP-1001", 1, 1)); !errors.Is(err, ErrOpenRevisionExists) {
		t.Errorf("Expected ErrOpenRevisionExists, got %v", err)
	}

	// Delete cascades to sessions, defects and assignments
	if err := env.svc.DeleteRevision(rev.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if count, err := env.sessions.CountByRevisionID(rev.ID); err != nil || count != 0 {
		t.Errorf("Expected no sessions left, got %d (err %v)", count, err)
	}
	if count, err := env.defects.CountByRevisionID(rev.ID); err != nil || count != 0 {
		t.Errorf("Expected no defects left, got %d (err %v)", count, err)
	}
	if ids, err := env.inspectors.GetIDsByRevisionID(rev.ID); err != nil || len(ids) != 0 {
		t.Errorf("Expected no assignments left, got %v (err %v)", ids, err)
	}
}

func TestSaveProgressPhotoFailureKeepsDefect(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	env := setupEnv(t)
	env.photos.fail = true

	input := env.saveInput("OP-2001", 10, 8)
	input.Defects = []DefectInput{
		{
			DefectTypeID: env.fixtures.DefectTypes[0].ID,
			Quantity:     2,
			Photo:        &PhotoUpload{Filename: "dent.jpg", ContentType: "image/jpeg", Data: []byte("jpegdata")},
		},
	}

	rev, err := env.svc.SaveProgress(context.Background(), input)
	if err != nil {
		t.Fatalf("Save should succeed despite photo failure: %v", err)
	}
	if len(rev.Defects) != 1 {
		t.Fatalf("Defect must be recorded without its photo, got %d defects", len(rev.Defects))
	}
	if rev.Defects[0].PhotoURL != nil {
		t.Errorf("Photo URL should be nil after failed upload, got %v", *rev.Defects[0].PhotoURL)
	}
}

func TestSaveProgressRequiresInspectorsOnCreate(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	env := setupEnv(t)

	input := env.saveInput("OP-3001", 5, 5)
	input.InspectorIDs = nil
	if _, err := env.svc.SaveProgress(context.Background(), input); !errors.Is(err, ErrInvalidDelta) {
		t.Errorf("Create without inspectors should be rejected, got %v", err)
	}
}

func TestReopenOpenRevisionRejected(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	env := setupEnv(t)

	rev, err := env.svc.SaveProgress(context.Background(), env.saveInput("OP-4001", 10, 10))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := env.svc.Reopen(rev.ID); !errors.Is(err, ErrRevisionNotFinalized) {
		t.Errorf("Reopening an open revision should fail, got %v", err)
	}
}

func TestPeriodReportAggregation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	env := setupEnv(t)
	ctx := context.Background()

	input := env.saveInput("OP-5001", 100, 95)
	input.Defects = []DefectInput{
		{DefectTypeID: env.fixtures.DefectTypes[0].ID, Quantity: 3},
		{DefectTypeID: env.fixtures.DefectTypes[1].ID, Quantity: 2},
	}
	if _, err := env.svc.SaveProgress(ctx, input); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	if _, err := env.svc.SaveProgress(ctx, env.saveInput("OP-5002", 50, 45)); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	from := time.Now().Add(-24 * time.Hour)
	to := time.Now().Add(time.Hour)
	report, err := env.reports.BuildPeriodReport(from, to)
	if err != nil {
		t.Fatalf("BuildPeriodReport failed: %v", err)
	}

	if report.RevisionCount != 2 {
		t.Errorf("Expected 2 revisions, got %d", report.RevisionCount)
	}
	if report.TotalInspected != 150 || report.TotalApproved != 140 {
		t.Errorf("Expected totals 150/140, got %d/%d", report.TotalInspected, report.TotalApproved)
	}
	if report.TotalRejected != 10 {
		t.Errorf("Expected 10 rejected, got %d", report.TotalRejected)
	}
	if report.ApprovalRate != 93.3 {
		t.Errorf("Expected approval rate 93.3, got %v", report.ApprovalRate)
	}
	if report.TotalMinutes != 120 {
		t.Errorf("Expected 120 total minutes, got %d", report.TotalMinutes)
	}
	if len(report.RevisionsBySector) != 1 || report.RevisionsBySector[0].Count != 2 {
		t.Errorf("Expected one sector bucket with 2 revisions, got %+v", report.RevisionsBySector)
	}
	if len(report.DefectsByType) != 2 {
		t.Fatalf("Expected 2 defect buckets, got %d", len(report.DefectsByType))
	}
	if report.DefectsByType[0].Count < report.DefectsByType[1].Count {
		t.Error("Defect buckets should be sorted by count descending")
	}

	stats, err := env.reports.DashboardStats()
	if err != nil {
		t.Fatalf("DashboardStats failed: %v", err)
	}
	if stats.OpenRevisions != 2 {
		t.Errorf("Expected 2 open revisions, got %d", stats.OpenRevisions)
	}
	if stats.TotalInspected != 150 {
		t.Errorf("Expected 150 inspected on dashboard, got %d", stats.TotalInspected)
	}
	if len(stats.TopDefectTypes) != 2 {
		t.Errorf("Expected 2 top defect types, got %d", len(stats.TopDefectTypes))
	}
}
