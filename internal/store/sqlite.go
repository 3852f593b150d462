package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLite persists results to a SQLite file so the export collaborator can
// read them after the run. Insertion order is the rowid order.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSQLite opens or creates the results database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}

	// SQLite supports a single writer; batching gains nothing at crawl rates.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		host TEXT NOT NULL,
		depth INTEGER NOT NULL,
		referrer TEXT,
		outcome TEXT NOT NULL,
		http_status INTEGER,
		failure_reason TEXT,
		external INTEGER NOT NULL,
		resource_type TEXT,
		outbound_links TEXT,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_url ON results(url);
	CREATE INDEX IF NOT EXISTS idx_results_outcome ON results(outcome);
	`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create results schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Append inserts the result as a new row.
func (s *SQLite) Append(result PageResult) error {
	links, err := json.Marshal(result.Links)
	if err != nil {
		return fmt.Errorf("encode outbound links: %w", err)
	}

	external := 0
	if result.External {
		external = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		`INSERT INTO results
			(url, host, depth, referrer, outcome, http_status, failure_reason, external, resource_type, outbound_links, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.URL,
		result.Host,
		result.Depth,
		result.Referrer,
		string(result.Outcome),
		result.HTTPStatus,
		result.FailureReason,
		external,
		result.ResourceType,
		string(links),
		result.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append result: %w", err)
	}

	return nil
}

// Snapshot reads all results back in insertion order.
func (s *SQLite) Snapshot() ([]PageResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT url, host, depth, referrer, outcome, http_status, failure_reason, external, resource_type, outbound_links, timestamp
		FROM results ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot results: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	results := []PageResult{}
	for rows.Next() {
		var result PageResult
		var outcome string
		var external int
		var links string

		err := rows.Scan(
			&result.URL,
			&result.Host,
			&result.Depth,
			&result.Referrer,
			&outcome,
			&result.HTTPStatus,
			&result.FailureReason,
			&external,
			&result.ResourceType,
			&links,
			&result.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}

		result.Outcome = Outcome(outcome)
		result.External = external != 0

		if links != "" {
			if err := json.Unmarshal([]byte(links), &result.Links); err != nil {
				return nil, fmt.Errorf("decode outbound links: %w", err)
			}
		}

		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}

	return results, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
