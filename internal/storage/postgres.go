package storage

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/roundkids?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db, rebind: rebindDollar}}, nil
}

// rebindDollar rewrites `?` placeholders to postgres $N form. No query
// in this package embeds a literal question mark.
func rebindDollar(query string) string {
	var sb strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(ch)
	}
	return sb.String()
}

func (s *postgresStore) Init(ctx context.Context) error {
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
			id BIGSERIAL PRIMARY KEY,
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
			triaged BOOLEAN NOT NULL DEFAULT FALSE,
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
