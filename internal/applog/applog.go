// Package applog is the append-only record of every application
// attempt. The CSV file is the source of truth; a sqlite mirror is
// kept alongside for ad-hoc querying and is strictly best-effort.
package applog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"autoapply/internal/config"
)

const (
	ChannelEmail = "email"
	ChannelForm  = "form"
)

const (
	StatusDryRun = "dry_run"
	StatusSent   = "sent"
	StatusOK     = "ok"
	StatusCheck  = "check"
	StatusError  = "error"
)

// Entry is one attempt's outcome. Entries are never updated or
// deleted.
type Entry struct {
	Timestamp time.Time
	Company   string
	Channel   string
	Target    string
	Status    string
	Details   string
}

var header = []string{"timestamp", "company", "channel", "target", "status", "details"}

func (e Entry) row() []string {
	return []string{
		e.Timestamp.Format("2006-01-02T15:04:05"),
		e.Company,
		e.Channel,
		e.Target,
		e.Status,
		e.Details,
	}
}

// Append writes one row to the CSV log at path, creating parent
// directories and the header row on first write.
func Append(path string, e Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	_, statErr := os.Stat(path)
	writeHeader := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			f.Close()
			return fmt.Errorf("write log header: %w", err)
		}
	}
	if err := w.Write(e.row()); err != nil {
		f.Close()
		return fmt.Errorf("write log row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush log: %w", err)
	}
	return f.Close()
}

// Book bundles the CSV log with the optional sqlite mirror.
type Book struct {
	csvPath string
	sink    *SqliteSink
	log     *zap.Logger
}

func NewBook(cfg config.Logging, log *zap.Logger) *Book {
	b := &Book{csvPath: cfg.OutputCSV, log: log}
	if cfg.SqliteDB != "" {
		sink, err := OpenSqlite(cfg.SqliteDB)
		if err != nil {
			log.Warn("sqlite mirror disabled", zap.String("db", cfg.SqliteDB), zap.Error(err))
		} else {
			b.sink = sink
		}
	}
	return b
}

func (b *Book) Append(e Entry) error {
	if b.sink != nil {
		if err := b.sink.Record(e); err != nil {
			b.log.Warn("sqlite mirror write failed", zap.Error(err))
		}
	}
	return Append(b.csvPath, e)
}

func (b *Book) Close() {
	if b.sink == nil {
		return
	}
	if err := b.sink.Close(); err != nil {
		b.log.Warn("sqlite mirror close failed", zap.Error(err))
	}
}
