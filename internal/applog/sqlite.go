package applog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteSink mirrors log entries into a sqlite database. Each process
// run gets its own run id so runs can be told apart when querying.
type SqliteSink struct {
	db    *sql.DB
	runID string
}

func OpenSqlite(path string) (*SqliteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	create := `CREATE TABLE IF NOT EXISTS applications (
		id INTEGER NOT NULL PRIMARY KEY,
		run_id TEXT,
		timestamp TEXT,
		company TEXT,
		channel TEXT,
		target TEXT,
		status TEXT,
		details TEXT
	);`
	if _, err := db.Exec(create); err != nil {
		db.Close()
		return nil, fmt.Errorf("create applications table: %w", err)
	}

	return &SqliteSink{db: db, runID: uuid.NewString()}, nil
}

func (s *SqliteSink) Record(e Entry) error {
	const insert = `INSERT INTO applications(run_id, timestamp, company, channel, target, status, details)
		VALUES(?, ?, ?, ?, ?, ?, ?);`
	_, err := s.db.Exec(insert, s.runID,
		e.Timestamp.Format("2006-01-02T15:04:05"), e.Company, e.Channel, e.Target, e.Status, e.Details)
	if err != nil {
		return fmt.Errorf("insert log row: %w", err)
	}
	return nil
}

func (s *SqliteSink) Close() error {
	return s.db.Close()
}
