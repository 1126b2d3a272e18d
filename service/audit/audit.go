// Package audit records every dispatched call to a rotating JSON log and a
// queryable sqlite table, so an operator can both tail recent activity and
// ask "who called what, and when". Adapted from storage.AuditLogger
// (storage/audit.go), which logged MUD security events the same way:
// lumberjack for rotation, one JSON object per line.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zond/sqly"
	"gopkg.in/natefinch/lumberjack.v2"

	_ "modernc.org/sqlite"
)

// Record is one row of call history: one entry per dispatched call,
// written once the call reaches a terminal state.
type Record struct {
	ID        int64 `sqly:"pkey"`
	Time      string
	Path      string
	Interface string
	Method    string
	PeerPID   int64
	PeerUID   int64
	State     string
}

// Logger writes Records to both a rotating JSON file (for tailing) and a
// sqlite table (for querying), the way storage.AuditLogger paired a
// lumberjack-backed JSON log with the main sqlite database.
type Logger struct {
	mu      sync.Mutex
	writer  io.WriteCloser
	enc     *json.Encoder
	db      *sqly.DB
}

// Open creates a Logger writing its JSON trail to jsonPath (rotated by
// lumberjack the way storage.NewAuditLogger configures it) and its queryable
// history to a "Record" table (the one Recent queries) in a sqlite
// database under dbDir.
func Open(ctx context.Context, jsonPath, dbDir string) (*Logger, error) {
	db, err := sqly.Open("sqlite", filepath.Join(dbDir, "audit.db"))
	if err != nil {
		return nil, err
	}
	if err := db.CreateTableIfNotExists(ctx, Record{}); err != nil {
		return nil, err
	}
	writer := &lumberjack.Logger{
		Filename:   jsonPath,
		MaxSize:    100,
		MaxBackups: 10,
		MaxAge:     365,
		Compress:   true,
	}
	return &Logger{
		writer: writer,
		enc:    json.NewEncoder(writer),
		db:     db,
	}, nil
}

// Log appends rec to the JSON trail and upserts it into the sqlite table.
func (l *Logger) Log(ctx context.Context, rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec.Time == "" {
		rec.Time = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if err := l.enc.Encode(rec); err != nil {
		return err
	}
	return l.db.Write(ctx, func(tx *sqly.Tx) error {
		return tx.Upsert(ctx, &rec, true)
	})
}

// Recent returns the last n Records ordered newest first, the counterpart
// of a wizard console tailing storage.AuditLogger's file but backed by the
// sqlite table instead of a file scan.
func (l *Logger) Recent(ctx context.Context, n int) ([]Record, error) {
	var records []Record
	err := sqlx.SelectContext(ctx, l.db, &records, "SELECT * FROM Record ORDER BY ID DESC LIMIT ?", n)
	return records, err
}

// Close closes both the JSON writer and the sqlite database.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err1 := l.writer.Close()
	err2 := l.db.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
