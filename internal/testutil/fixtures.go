package testutil

import (
	"database/sql"
	"testing"

	"quality-backend/internal/models"
)

// Fixtures holds reference test data
type Fixtures struct {
	DB          *sql.DB
	Sector      *models.Reference
	Operator    *models.Reference
	Inspector   *models.Reference
	Inspector2  *models.Reference
	DefectTypes []models.Reference
}

// SetupFixtures creates the reference rows revisions depend on
func SetupFixtures(t *testing.T, db *sql.DB) *Fixtures {
	t.Helper()

	return &Fixtures{
		DB:         db,
		Sector:     createReference(t, db, "quality_sectors", "Montagem"),
		Operator:   createReference(t, db, "quality_operators", "Carlos Silva"),
		Inspector:  createReference(t, db, "quality_inspectors", "Ana Souza"),
		Inspector2: createReference(t, db, "quality_inspectors", "Pedro Lima"),
		DefectTypes: []models.Reference{
			*createReference(t, db, "quality_defect_types", "Risco"),
			*createReference(t, db, "quality_defect_types", "Amassado"),
		},
	}
}

// createReference inserts a reference row or returns the existing one
func createReference(t *testing.T, db *sql.DB, table, name string) *models.Reference {
	t.Helper()

	var ref models.Reference
	err := db.QueryRow(
		"SELECT id, name, description, active, created_at, updated_at FROM "+table+" WHERE name = $1",
		name,
	).Scan(&ref.ID, &ref.Name, &ref.Description, &ref.Active, &ref.CreatedAt, &ref.UpdatedAt)
	if err == nil {
		return &ref
	}

	err = db.QueryRow(
		"INSERT INTO "+table+" (name, active) VALUES ($1, true) RETURNING id, name, description, active, created_at, updated_at",
		name,
	).Scan(&ref.ID, &ref.Name, &ref.Description, &ref.Active, &ref.CreatedAt, &ref.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create %s fixture %s: %v", table, name, err)
	}

	return &ref
}
