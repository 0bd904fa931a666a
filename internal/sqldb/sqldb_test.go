package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func TestOpenSQLite(t *testing.T) {
	db, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	var one int
	if err := db.QueryRow("SELECT 1").Scan(&one); err != nil || one != 1 {
		t.Fatalf("query: %v %d", err, one)
	}
}

func TestOpenRejectsBadInput(t *testing.T) {
	if _, err := Open(context.Background(), "oracle", "x"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if _, err := Open(context.Background(), DriverPostgres, " "); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestOverrideSQLOpen(t *testing.T) {
	sentinel := errors.New("boom")
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, sentinel })
	_, err := Open(context.Background(), DriverSQLServer, "sqlserver://x")
	restore()
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected override error, got %v", err)
	}
}

func TestPlaceholder(t *testing.T) {
	cases := map[string]string{
		DriverSQLServer: "@p2",
		DriverPostgres:  "$2",
		DriverSQLite:    "?",
	}
	for driver, want := range cases {
		if got := Placeholder(driver, 2); got != want {
			t.Errorf("Placeholder(%s) = %q, want %q", driver, got, want)
		}
	}
}
