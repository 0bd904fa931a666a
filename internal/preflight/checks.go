package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"grantcloser/internal/config"
	"grantcloser/internal/logging"
	"grantcloser/internal/nexus"
	"grantcloser/internal/rules"
	"grantcloser/internal/sqldb"
)

const checkTimeout = 15 * time.Second

// CheckNexus verifies that a token can be obtained and the API root answers.
func CheckNexus(ctx context.Context, cfg *config.Config) Result {
	const name = "Nexus API"
	if err := cfg.RequireNexus(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	client, err := nexus.NewFromConfig(checkCtx, cfg, logging.NewNop())
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if _, err := client.Home(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Nexus.BaseURL}
}

// CheckDatabase opens and pings a database.
func CheckDatabase(ctx context.Context, name, driver, dsn string) Result {
	if dsn == "" {
		return Result{Name: name, Detail: "connection settings missing"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	db, err := sqldb.Open(checkCtx, driver, dsn)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	_ = db.Close()
	return Result{Name: name, Passed: true, Detail: driver + " reachable"}
}

// CheckRules loads the rule workbook.
func CheckRules(path string) Result {
	const name = "Rule workbook"
	catalog, err := rules.LoadWorkbook(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d names, %d paragraphs)", path, len(catalog.Names()), len(catalog.Paragraphs()))}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (host unreachable)"
	}
	return err.Error()
}
