package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"grantcloser/internal/config"
	"grantcloser/internal/sqldb"
	"grantcloser/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Regelsæt.xlsx")
	if result := CheckRules(path); result.Passed {
		t.Fatal("expected failure for missing workbook")
	}
	testsupport.WriteRulesWorkbook(t, path, []string{"Hjemmehjælp"}, []string{"§ 83|Serviceloven"})
	result := CheckRules(path)
	if !result.Passed || !strings.Contains(result.Detail, "1 names, 1 paragraphs") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckDatabase(t *testing.T) {
	ok := CheckDatabase(context.Background(), "db", sqldb.DriverSQLite, filepath.Join(t.TempDir(), "x.db"))
	if !ok.Passed {
		t.Fatalf("expected sqlite to pass, got %s", ok.Detail)
	}
	if missing := CheckDatabase(context.Background(), "db", sqldb.DriverSQLite, ""); missing.Passed {
		t.Fatal("expected missing dsn to fail")
	}
}

func newNexusServer(t *testing.T, homeStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":300}`))
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(homeStatus)
		_, _ = w.Write([]byte(`{"_links":{}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckNexus(t *testing.T) {
	srv := newNexusServer(t, http.StatusOK)
	cfg := testsupport.NewConfig(t, testsupport.WithNexusURL(srv.URL+"/api/", srv.URL+"/token"))
	if result := CheckNexus(context.Background(), cfg); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}

	failing := newNexusServer(t, http.StatusServiceUnavailable)
	cfg = testsupport.NewConfig(t, testsupport.WithNexusURL(failing.URL+"/api/", failing.URL+"/token"))
	if result := CheckNexus(context.Background(), cfg); result.Passed {
		t.Fatal("expected failure for unavailable API")
	}

	cfg.Nexus.ClientID = ""
	if result := CheckNexus(context.Background(), cfg); result.Passed || !strings.Contains(result.Detail, "client_id") {
		t.Fatalf("expected missing credentials, got %+v", result)
	}
}

func TestRunAllSkipsDisabledTracking(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := RunAll(context.Background(), cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 checks, got %d", len(results))
	}
	if Passed(results) {
		t.Fatal("expected failures without a workbook or Nexus server")
	}

	cfg.Tracking = config.Tracking{Enabled: true, Driver: config.DriverSQLite, DSN: filepath.Join(t.TempDir(), "t.db"), Table: "Tracking"}
	if got := len(RunAll(context.Background(), cfg)); got != 5 {
		t.Fatalf("expected tracking check, got %d results", got)
	}
	if RunAll(context.Background(), nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}
