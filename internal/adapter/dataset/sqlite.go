package dataset

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"resilience-ai/internal/domain"
)

// SQLiteStore implements domain.DatasetStore on a single SQLite database.
// Wide per-dataset CSV exports are melted into one narrow indicators table.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at dbPath and runs the
// schema migration.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open dataset db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate dataset db: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS indicators (
			dataset      TEXT    NOT NULL,
			country_name TEXT    NOT NULL,
			country_code TEXT    NOT NULL DEFAULT '',
			year         INTEGER NOT NULL,
			indicator    TEXT    NOT NULL,
			value        REAL    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_indicators_lookup
			ON indicators (dataset, country_name, year);
		CREATE INDEX IF NOT EXISTS idx_indicators_metric
			ON indicators (dataset, indicator, year);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadCSVDir imports every agent_<dataset>.csv file under dir. Existing
// rows for a dataset are replaced wholesale on reload.
func (s *SQLiteStore) LoadCSVDir(ctx context.Context, dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "agent_*.csv"))
	if err != nil {
		return fmt.Errorf("scan dataset dir: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("%w: no agent_*.csv files in %s", domain.ErrDatasetUnavailable, dir)
	}

	for _, path := range matches {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "agent_"), ".csv")
		n, err := s.loadCSV(ctx, name, path)
		if err != nil {
			return fmt.Errorf("load dataset %s: %w", name, err)
		}
		s.logger.Info("dataset loaded", "dataset", name, "rows", n)
	}
	return nil
}

// loadCSV melts one wide CSV into indicator rows. Expected layout: a
// country column, an optional ISO code column, a year column, and one
// column per indicator. Unparseable cells are skipped.
func (s *SQLiteStore) loadCSV(ctx context.Context, dataset, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}

	countryCol, codeCol, yearCol := -1, -1, -1
	var valueCols []int
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "country", "country_name", "name":
			countryCol = i
		case "iso3", "iso_code", "country_code", "code":
			codeCol = i
		case "year":
			yearCol = i
		default:
			valueCols = append(valueCols, i)
		}
	}
	if countryCol < 0 || yearCol < 0 {
		return 0, fmt.Errorf("%s: header lacks country or year column", filepath.Base(path))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM indicators WHERE dataset = ?", dataset); err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(
		"INSERT INTO indicators (dataset, country_name, country_code, year, indicator, value) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read row: %w", err)
		}
		if countryCol >= len(record) || yearCol >= len(record) {
			continue
		}

		country := strings.TrimSpace(record[countryCol])
		year, err := strconv.Atoi(strings.TrimSpace(record[yearCol]))
		if country == "" || err != nil {
			continue
		}
		code := ""
		if codeCol >= 0 && codeCol < len(record) {
			code = strings.TrimSpace(record[codeCol])
		}

		for _, ci := range valueCols {
			if ci >= len(record) {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(record[ci]), 64)
			if err != nil {
				continue
			}
			if _, err := stmt.Exec(dataset, country, code, year, header[ci], v); err != nil {
				return 0, err
			}
			inserted++
		}
	}

	return inserted, tx.Commit()
}

// countryClause matches on country_name or country_code, case-insensitively.
const countryClause = "(country_name = ? COLLATE NOCASE OR country_code = ? COLLATE NOCASE)"

// Indicators implements domain.DatasetStore.
func (s *SQLiteStore) Indicators(ctx context.Context, dataset, country string, year int) ([]domain.IndicatorValue, error) {
	q := "SELECT indicator, AVG(value) FROM indicators WHERE dataset = ? AND " + countryClause
	args := []any{dataset, country, country}
	if year > 0 {
		q += " AND year = ?"
		args = append(args, year)
	}
	q += " GROUP BY indicator ORDER BY indicator"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.IndicatorValue
	for rows.Next() {
		var iv domain.IndicatorValue
		if err := rows.Scan(&iv.Indicator, &iv.Value); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no %s data for %q", domain.ErrNotFound, dataset, country)
	}
	return out, rows.Err()
}

// Trend implements domain.DatasetStore.
func (s *SQLiteStore) Trend(ctx context.Context, dataset, country, metric string, yearStart, yearEnd int) ([]domain.YearValue, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT year, AVG(value) FROM indicators WHERE dataset = ? AND "+countryClause+
			" AND indicator = ? AND year BETWEEN ? AND ? GROUP BY year ORDER BY year",
		dataset, country, country, metric, yearStart, yearEnd,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.YearValue
	for rows.Next() {
		var yv domain.YearValue
		if err := rows.Scan(&yv.Year, &yv.Value); err != nil {
			return nil, err
		}
		out = append(out, yv)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no %s data for %q %d-%d", domain.ErrNotFound, dataset, country, yearStart, yearEnd)
	}
	return out, rows.Err()
}

// Compare implements domain.DatasetStore. Countries without data are
// omitted from the result.
func (s *SQLiteStore) Compare(ctx context.Context, dataset string, countries []string, year int) ([]domain.CountrySnapshot, error) {
	var out []domain.CountrySnapshot
	for _, c := range countries {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		ivs, err := s.Indicators(ctx, dataset, c, year)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, domain.CountrySnapshot{Country: c, Indicators: ivs})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no %s data for any of the requested countries", domain.ErrNotFound, dataset)
	}
	return out, nil
}

// TopCountries implements domain.DatasetStore.
func (s *SQLiteStore) TopCountries(ctx context.Context, dataset, metric string, year, limit int) ([]domain.CountryValue, error) {
	if limit <= 0 {
		limit = 15
	}
	q := "SELECT country_name, AVG(value) AS v FROM indicators WHERE dataset = ? AND indicator = ?"
	args := []any{dataset, metric}
	if year > 0 {
		q += " AND year = ?"
		args = append(args, year)
	}
	q += " GROUP BY country_name ORDER BY v DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CountryValue
	for rows.Next() {
		var cv domain.CountryValue
		if err := rows.Scan(&cv.Country, &cv.Value); err != nil {
			return nil, err
		}
		out = append(out, cv)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no %s data for metric %q", domain.ErrNotFound, dataset, metric)
	}
	return out, rows.Err()
}

// Metrics implements domain.DatasetStore.
func (s *SQLiteStore) Metrics(ctx context.Context, dataset string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT indicator FROM indicators WHERE dataset = ? ORDER BY indicator", dataset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

var _ domain.DatasetStore = (*SQLiteStore)(nil)
