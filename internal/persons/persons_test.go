package persons_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"grantcloser/internal/config"
	"grantcloser/internal/persons"
	"grantcloser/internal/sqldb"
	"grantcloser/internal/testsupport"
)

func seedNexusDB(t *testing.T, path string) {
	t.Helper()
	db, err := sqldb.Open(context.Background(), sqldb.DriverSQLite, path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	statements := []string{
		`CREATE TABLE patient (id INTEGER PRIMARY KEY, cpr TEXT)`,
		`CREATE TABLE workflow_state (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE basket_grant (id INTEGER PRIMARY KEY, patient_id INTEGER, workflow_state_id INTEGER, active INTEGER)`,
		`INSERT INTO workflow_state VALUES (1, 'Planlagt, ikke bestilt'), (2, 'Bestilt')`,
		`INSERT INTO patient VALUES (1, '0101011234'), (2, '0202021234'), (3, '0303031234'), (4, '')`,
		// patient 1 has two planned grants and must appear once
		`INSERT INTO basket_grant VALUES (1, 1, 1, 1), (2, 1, 1, 1), (3, 2, 2, 1), (4, 3, 1, 0), (5, 4, 1, 1)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed %q: %v", stmt, err)
		}
	}
}

func TestPlannedCitizensUsesDefaultQuery(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedNexusDB(t, cfg.Database.DSN)

	source, err := persons.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer source.Close()

	people, err := source.PlannedCitizens(context.Background())
	if err != nil {
		t.Fatalf("PlannedCitizens: %v", err)
	}
	if len(people) != 1 || people[0].CPR != "0101011234" {
		t.Fatalf("unexpected people: %#v", people)
	}
}

func TestPlannedCitizensFindsCPRColumnByName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.db")
	db, err := sql.Open(sqldb.DriverSQLite, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE citizens (name TEXT, CPR TEXT); INSERT INTO citizens VALUES ('A', '0101011234'), ('B', NULL)`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	people, err := persons.NewSQLSource(db, `SELECT name, CPR FROM citizens ORDER BY name`).PlannedCitizens(context.Background())
	if err != nil {
		t.Fatalf("PlannedCitizens: %v", err)
	}
	if len(people) != 1 || people[0].CPR != "0101011234" {
		t.Fatalf("unexpected people: %#v", people)
	}
}

func TestOpenRequiresDatabaseSettings(t *testing.T) {
	cfg := config.Default()
	if _, err := persons.Open(context.Background(), &cfg); err == nil {
		t.Fatal("expected error without database settings")
	}
}
