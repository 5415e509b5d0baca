package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:roundkids.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS patients (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			bed_number INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS checklist_tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			patient_id TEXT,
			category_id INTEGER NOT NULL,
			category TEXT,
			description TEXT NOT NULL,
			responsible TEXT NOT NULL,
			deadline TEXT,
			status TEXT NOT NULL,
			justification TEXT,
			patient_name TEXT,
			time_label TEXT,
			created_by TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checklist_tasks_status ON checklist_tasks(status)`,
		`CREATE TABLE IF NOT EXISTS patient_alerts (
			id TEXT PRIMARY KEY,
			patient_id TEXT,
			description TEXT NOT NULL,
			responsible TEXT NOT NULL,
			time_label TEXT NOT NULL,
			status TEXT NOT NULL,
			justification TEXT,
			created_by TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_patient_alerts_status ON patient_alerts(status)`,
		`CREATE TABLE IF NOT EXISTS clinical_alerts (
			id TEXT PRIMARY KEY,
			category_id INTEGER NOT NULL,
			patient_id TEXT,
			description TEXT NOT NULL,
			status TEXT NOT NULL,
			triaged INTEGER NOT NULL DEFAULT 0,
			created_by TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clinical_alerts_status ON clinical_alerts(status)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
