// Package persons reads the citizens that hold grants waiting for closure
// from the Nexus reporting database.
package persons

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"grantcloser/internal/config"
	"grantcloser/internal/sqldb"
)

// Person is one citizen returned by the lookup query.
type Person struct {
	CPR string
}

// Source lists citizens with at least one "Planlagt, ikke bestilt" grant.
type Source interface {
	PlannedCitizens(ctx context.Context) ([]Person, error)
}

// SQLSource runs a configurable query against a database/sql handle.
type SQLSource struct {
	db    *sql.DB
	query string
	owned bool
}

// NewSQLSource wraps an existing handle. The caller keeps ownership of db.
func NewSQLSource(db *sql.DB, query string) *SQLSource {
	return &SQLSource{db: db, query: query}
}

// Open connects to the configured database.
func Open(ctx context.Context, cfg *config.Config) (*SQLSource, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	db, err := sqldb.Open(ctx, cfg.Database.Driver, cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("open citizen database: %w", err)
	}
	return &SQLSource{db: db, query: cfg.Database.Query, owned: true}, nil
}

// Close releases the database handle when Open created it.
func (s *SQLSource) Close() error {
	if s == nil || s.db == nil || !s.owned {
		return nil
	}
	return s.db.Close()
}

// PlannedCitizens runs the lookup query. The CPR is read from a column named
// "cpr" (any case) or, failing that, the first column. Blank values are
// skipped.
func (s *SQLSource) PlannedCitizens(ctx context.Context) ([]Person, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("citizen source is not connected")
	}
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query citizens: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read citizen columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, errors.New("citizen query returned no columns")
	}
	cprIndex := 0
	for i, name := range columns {
		if strings.EqualFold(name, "cpr") {
			cprIndex = i
			break
		}
	}

	var people []Person
	values := make([]any, len(columns))
	for rows.Next() {
		var cpr sql.NullString
		for i := range values {
			if i == cprIndex {
				values[i] = &cpr
				continue
			}
			values[i] = new(any)
		}
		if err := rows.Scan(values...); err != nil {
			return nil, fmt.Errorf("scan citizen: %w", err)
		}
		value := strings.TrimSpace(cpr.String)
		if value == "" {
			continue
		}
		people = append(people, Person{CPR: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate citizens: %w", err)
	}
	return people, nil
}
