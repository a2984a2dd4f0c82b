// Package state persists transfer run history so failed items survive
// the process and can be inspected or retried later.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Ning0612/drivemirror/internal/domain"
)

// Manager handles run-history persistence
type Manager struct {
	db *sql.DB
}

// RunRecord represents one completed transfer run
type RunRecord struct {
	ID           int64
	SourceRootID string
	DestRootID   string
	StartTime    time.Time
	EndTime      time.Time
	Status       string // "success", "partial", "failed", "cancelled"
	FilesTotal   int
	FilesOK      int
	Bytes        int64
	Error        string
}

// FailedItem is one file that could not be transferred in a run
type FailedItem struct {
	RunID  int64
	Path   string
	Reason string
	Detail string
}

// NewManager opens (creating if needed) the history database in dataDir
func NewManager(dataDir string) (*Manager, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "drivemirror.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection prevents "database is locked" errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	manager := &Manager{db: db}

	if err := manager.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return manager, nil
}

// initSchema creates the database schema
func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_root_id TEXT NOT NULL,
		dest_root_id TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		files_total INTEGER DEFAULT 0,
		files_ok INTEGER DEFAULT 0,
		bytes INTEGER DEFAULT 0,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS failed_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		path TEXT NOT NULL,
		reason TEXT NOT NULL,
		detail TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_start ON runs(start_time DESC);
	CREATE INDEX IF NOT EXISTS idx_failed_items_run ON failed_items(run_id);
	`

	_, err := m.db.Exec(schema)
	return err
}

// validStatuses for a run record
var validStatuses = map[string]bool{
	"success":   true,
	"partial":   true,
	"failed":    true,
	"cancelled": true,
}

// SaveRun records a completed run and its failed items in one transaction
func (m *Manager) SaveRun(record RunRecord, failed []FailedItem) (int64, error) {
	if !validStatuses[record.Status] {
		return 0, fmt.Errorf("invalid status: %s", record.Status)
	}

	tx, err := m.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO runs (source_root_id, dest_root_id, start_time, end_time, status, files_total, files_ok, bytes, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.SourceRootID,
		record.DestRootID,
		record.StartTime,
		record.EndTime,
		record.Status,
		record.FilesTotal,
		record.FilesOK,
		record.Bytes,
		record.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run record: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for _, item := range failed {
		if _, err := tx.Exec(
			`INSERT INTO failed_items (run_id, path, reason, detail) VALUES (?, ?, ?, ?)`,
			runID, item.Path, item.Reason, item.Detail,
		); err != nil {
			return 0, fmt.Errorf("failed to save failed item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run record: %w", err)
	}

	return runID, nil
}

// RecordSummary converts a transfer summary into a run record and saves it
func (m *Manager) RecordSummary(sourceRootID, destRootID string, start, end time.Time, summary *domain.Summary, runErr error) (int64, error) {
	status := "success"
	switch {
	case summary.Cancelled > 0:
		status = "cancelled"
	case summary.Succeeded == 0 && len(summary.Failed) > 0:
		status = "failed"
	case len(summary.Failed) > 0:
		status = "partial"
	}

	record := RunRecord{
		SourceRootID: sourceRootID,
		DestRootID:   destRootID,
		StartTime:    start,
		EndTime:      end,
		Status:       status,
		FilesTotal:   summary.TotalFiles,
		FilesOK:      summary.Succeeded,
		Bytes:        summary.Bytes,
	}
	if runErr != nil {
		record.Error = runErr.Error()
	}

	failed := make([]FailedItem, 0, len(summary.Failed))
	for _, res := range summary.Failed {
		item := FailedItem{Path: res.Node.Path, Reason: res.Reason}
		if res.Err != nil {
			item.Detail = res.Err.Error()
		}
		failed = append(failed, item)
	}

	return m.SaveRun(record, failed)
}

// History retrieves the most recent runs, newest first
func (m *Manager) History(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := m.db.Query(`
		SELECT id, source_root_id, dest_root_id, start_time, end_time, status, files_total, files_ok, bytes, error
		FROM runs
		ORDER BY start_time DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var record RunRecord
		err := rows.Scan(
			&record.ID,
			&record.SourceRootID,
			&record.DestRootID,
			&record.StartTime,
			&record.EndTime,
			&record.Status,
			&record.FilesTotal,
			&record.FilesOK,
			&record.Bytes,
			&record.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// FailedItems retrieves the failed items for a run
func (m *Manager) FailedItems(runID int64) ([]FailedItem, error) {
	rows, err := m.db.Query(
		`SELECT run_id, path, reason, detail FROM failed_items WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed items: %w", err)
	}
	defer rows.Close()

	var items []FailedItem
	for rows.Next() {
		var item FailedItem
		if err := rows.Scan(&item.RunID, &item.Path, &item.Reason, &item.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan failed item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating failed items: %w", err)
	}

	return items, nil
}

// LastSuccess retrieves the most recent fully-successful run, or nil
func (m *Manager) LastSuccess() (*RunRecord, error) {
	var record RunRecord
	err := m.db.QueryRow(`
		SELECT id, source_root_id, dest_root_id, start_time, end_time, status, files_total, files_ok, bytes, error
		FROM runs
		WHERE status = 'success'
		ORDER BY start_time DESC
		LIMIT 1`).Scan(
		&record.ID,
		&record.SourceRootID,
		&record.DestRootID,
		&record.StartTime,
		&record.EndTime,
		&record.Status,
		&record.FilesTotal,
		&record.FilesOK,
		&record.Bytes,
		&record.Error,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last success: %w", err)
	}

	return &record, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
