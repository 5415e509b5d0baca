package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"roundkids/internal/config"
)

// ErrRowNotFound reports a transition write that matched no row.
var ErrRowNotFound = errors.New("storage: row not found")

// TaskRow mirrors one checklist_tasks row. The table stores a real
// deadline column; ids are integers.
type TaskRow struct {
	ID            int64
	PatientID     string
	CategoryID    int
	CategoryName  string
	Description   string
	Responsible   string
	Deadline      time.Time
	Status        string
	Justification string
	PatientName   string
	TimeLabel     string
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PatientAlertRow mirrors one patient_alerts row. No deadline column;
// the deadline is derived from TimeLabel at normalization time.
type PatientAlertRow struct {
	ID            string
	PatientID     string
	Description   string
	Responsible   string
	TimeLabel     string
	Status        string
	Justification string
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ClinicalAlertRow mirrors one clinical_alerts row. PatientID may be
// empty for system alerts not yet linked to a patient.
type ClinicalAlertRow struct {
	ID          string
	CategoryID  int
	PatientID   string
	Description string
	Status      string
	Triaged     bool
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type PatientRow struct {
	ID        string
	Name      string
	BedNumber int
}

type CategoryRow struct {
	ID   int
	Name string
}

// Store is the persistence boundary. One logical table per alert
// source plus the patient directory and the category catalog.
type Store interface {
	Init(ctx context.Context) error
	Close() error

	ListChecklistTasks(ctx context.Context) ([]TaskRow, error)
	ListPatientAlerts(ctx context.Context) ([]PatientAlertRow, error)
	ListClinicalAlerts(ctx context.Context) ([]ClinicalAlertRow, error)
	ListPatients(ctx context.Context) ([]PatientRow, error)
	ListCategories(ctx context.Context) ([]CategoryRow, error)

	InsertChecklistTask(ctx context.Context, row TaskRow) error
	InsertPatientAlert(ctx context.Context, row PatientAlertRow) error
	InsertClinicalAlert(ctx context.Context, row ClinicalAlertRow) error

	SetChecklistTaskStatus(ctx context.Context, id int64, status string, now time.Time) error
	SetPatientAlertStatus(ctx context.Context, id string, status string, now time.Time) error
	SetClinicalAlertStatus(ctx context.Context, id string, status string, now time.Time) error

	SetChecklistTaskJustification(ctx context.Context, id int64, text string, now time.Time) error
	SetPatientAlertJustification(ctx context.Context, id string, text string, now time.Time) error
}

func NewStore(cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// baseStore carries the shared DML. Statements are written with `?`
// placeholders; the postgres store rebinds them to $N.
type baseStore struct {
	db     *sql.DB
	rebind func(string) string
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (b *baseStore) bind(query string) string {
	if b.rebind != nil {
		return b.rebind(query)
	}
	return query
}

// Timestamps are persisted as RFC3339 UTC text on both drivers so the
// created_at date-prefix filter works on the stored representation.
func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (b *baseStore) ListChecklistTasks(ctx context.Context) ([]TaskRow, error) {
	rows, err := b.db.QueryContext(ctx, b.bind(
		`SELECT id, patient_id, category_id, category, description, responsible,
		        deadline, status, justification, patient_name, time_label,
		        created_by, created_at, updated_at
		 FROM checklist_tasks`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TaskRow
	for rows.Next() {
		var r TaskRow
		var patientID, category, justification, patientName, timeLabel, createdBy sql.NullString
		var deadline, createdAt, updatedAt sql.NullString
		if err := rows.Scan(&r.ID, &patientID, &r.CategoryID, &category, &r.Description,
			&r.Responsible, &deadline, &r.Status, &justification, &patientName,
			&timeLabel, &createdBy, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		r.PatientID = patientID.String
		r.CategoryName = category.String
		r.Justification = justification.String
		r.PatientName = patientName.String
		r.TimeLabel = timeLabel.String
		r.CreatedBy = createdBy.String
		r.Deadline = parseTime(deadline.String)
		r.CreatedAt = parseTime(createdAt.String)
		r.UpdatedAt = parseTime(updatedAt.String)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *baseStore) ListPatientAlerts(ctx context.Context) ([]PatientAlertRow, error) {
	rows, err := b.db.QueryContext(ctx, b.bind(
		`SELECT id, patient_id, description, responsible, time_label, status,
		        justification, created_by, created_at, updated_at
		 FROM patient_alerts`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PatientAlertRow
	for rows.Next() {
		var r PatientAlertRow
		var patientID, justification, createdBy sql.NullString
		var createdAt, updatedAt sql.NullString
		if err := rows.Scan(&r.ID, &patientID, &r.Description, &r.Responsible,
			&r.TimeLabel, &r.Status, &justification, &createdBy, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		r.PatientID = patientID.String
		r.Justification = justification.String
		r.CreatedBy = createdBy.String
		r.CreatedAt = parseTime(createdAt.String)
		r.UpdatedAt = parseTime(updatedAt.String)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *baseStore) ListClinicalAlerts(ctx context.Context) ([]ClinicalAlertRow, error) {
	rows, err := b.db.QueryContext(ctx, b.bind(
		`SELECT id, category_id, patient_id, description, status, triaged,
		        created_by, created_at, updated_at
		 FROM clinical_alerts`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ClinicalAlertRow
	for rows.Next() {
		var r ClinicalAlertRow
		var patientID, createdBy sql.NullString
		var createdAt, updatedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.CategoryID, &patientID, &r.Description,
			&r.Status, &r.Triaged, &createdBy, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		r.PatientID = patientID.String
		r.CreatedBy = createdBy.String
		r.CreatedAt = parseTime(createdAt.String)
		r.UpdatedAt = parseTime(updatedAt.String)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *baseStore) ListPatients(ctx context.Context) ([]PatientRow, error) {
	rows, err := b.db.QueryContext(ctx, b.bind(
		`SELECT id, name, bed_number FROM patients`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PatientRow
	for rows.Next() {
		var r PatientRow
		var bed sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Name, &bed); err != nil {
			return nil, err
		}
		r.BedNumber = int(bed.Int64)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *baseStore) ListCategories(ctx context.Context) ([]CategoryRow, error) {
	rows, err := b.db.QueryContext(ctx, b.bind(
		`SELECT id, name FROM categories`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CategoryRow
	for rows.Next() {
		var r CategoryRow
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *baseStore) InsertChecklistTask(ctx context.Context, row TaskRow) error {
	_, err := b.db.ExecContext(ctx, b.bind(
		`INSERT INTO checklist_tasks
		 (patient_id, category_id, category, description, responsible, deadline,
		  status, justification, patient_name, time_label, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		nullable(row.PatientID), row.CategoryID, nullable(row.CategoryName),
		row.Description, row.Responsible, fmtTime(row.Deadline), row.Status,
		nullable(row.Justification), nullable(row.PatientName), nullable(row.TimeLabel),
		nullable(row.CreatedBy), fmtTime(row.CreatedAt), fmtTime(row.UpdatedAt))
	return err
}

func (b *baseStore) InsertPatientAlert(ctx context.Context, row PatientAlertRow) error {
	_, err := b.db.ExecContext(ctx, b.bind(
		`INSERT INTO patient_alerts
		 (id, patient_id, description, responsible, time_label, status,
		  justification, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		row.ID, nullable(row.PatientID), row.Description, row.Responsible,
		row.TimeLabel, row.Status, nullable(row.Justification),
		nullable(row.CreatedBy), fmtTime(row.CreatedAt), fmtTime(row.UpdatedAt))
	return err
}

func (b *baseStore) InsertClinicalAlert(ctx context.Context, row ClinicalAlertRow) error {
	_, err := b.db.ExecContext(ctx, b.bind(
		`INSERT INTO clinical_alerts
		 (id, category_id, patient_id, description, status, triaged,
		  created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		row.ID, row.CategoryID, nullable(row.PatientID), row.Description,
		row.Status, row.Triaged, nullable(row.CreatedBy),
		fmtTime(row.CreatedAt), fmtTime(row.UpdatedAt))
	return err
}

func (b *baseStore) SetChecklistTaskStatus(ctx context.Context, id int64, status string, now time.Time) error {
	return b.expectOne(b.db.ExecContext(ctx, b.bind(
		`UPDATE checklist_tasks SET status = ?, updated_at = ? WHERE id = ?`),
		status, fmtTime(now), id))
}

func (b *baseStore) SetPatientAlertStatus(ctx context.Context, id string, status string, now time.Time) error {
	return b.expectOne(b.db.ExecContext(ctx, b.bind(
		`UPDATE patient_alerts SET status = ?, updated_at = ? WHERE id = ?`),
		status, fmtTime(now), id))
}

func (b *baseStore) SetClinicalAlertStatus(ctx context.Context, id string, status string, now time.Time) error {
	return b.expectOne(b.db.ExecContext(ctx, b.bind(
		`UPDATE clinical_alerts SET status = ?, updated_at = ? WHERE id = ?`),
		status, fmtTime(now), id))
}

func (b *baseStore) SetChecklistTaskJustification(ctx context.Context, id int64, text string, now time.Time) error {
	return b.expectOne(b.db.ExecContext(ctx, b.bind(
		`UPDATE checklist_tasks SET justification = ?, updated_at = ? WHERE id = ?`),
		text, fmtTime(now), id))
}

func (b *baseStore) SetPatientAlertJustification(ctx context.Context, id string, text string, now time.Time) error {
	return b.expectOne(b.db.ExecContext(ctx, b.bind(
		`UPDATE patient_alerts SET justification = ?, updated_at = ? WHERE id = ?`),
		text, fmtTime(now), id))
}

func (b *baseStore) expectOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRowNotFound
	}
	return nil
}
