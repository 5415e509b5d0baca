package source

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"roundkids/internal/model"
	"roundkids/internal/storage"
)

// clinical_alerts rows normally sit in status "ativo" until a
// clinician acts on them; the table never held a deadline, so rows
// surface as untriaged and classify as freshly alerting.
var categorizedWriteStatus = map[Op]string{
	OpComplete: "concluido",
	OpHide:     "oculto",
}

type CategorizedReader struct {
	store storage.Store
}

func NewCategorizedReader(store storage.Store) *CategorizedReader {
	return &CategorizedReader{store: store}
}

func (r *CategorizedReader) Source() model.Source {
	return model.SourceCategorizedAlert
}

func (r *CategorizedReader) FetchRaw(ctx context.Context) ([]model.PartialAlert, error) {
	rows, err := r.store.ListClinicalAlerts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.PartialAlert, 0, len(rows))
	for _, row := range rows {
		responsible := row.CreatedBy
		if responsible == "" {
			responsible = "Sistema"
		}
		out = append(out, model.PartialAlert{
			ID:          row.ID,
			Source:      model.SourceCategorizedAlert,
			PatientID:   row.PatientID,
			CategoryID:  row.CategoryID,
			Description: row.Description,
			Responsible: responsible,
			CreatedAt:   row.CreatedAt,
			RawText:     row.Status,
			Triaged:     row.Triaged,
		})
	}
	return out, nil
}

func (r *CategorizedReader) Apply(ctx context.Context, id string, tr Transition) error {
	switch tr.Op {
	case OpComplete, OpHide:
		return r.store.SetClinicalAlertStatus(ctx, id, categorizedWriteStatus[tr.Op], tr.Now)
	case OpJustify:
		// Untriaged alerts never reach the overdue state, so there is
		// nothing to justify on this source.
		return fmt.Errorf("categorized alert: unsupported op %q", tr.Op)
	default:
		return fmt.Errorf("categorized alert: unsupported op %q", tr.Op)
	}
}

// IngestInput is one event arriving on the categorized alert feed.
type IngestInput struct {
	CategoryID  int
	PatientID   string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
}

// Ingest writes a feed event as a fresh active row. Used by the Kafka
// consumer; creation through the lifecycle manager targets the other
// two sources.
func (r *CategorizedReader) Ingest(ctx context.Context, in IngestInput) error {
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return r.store.InsertClinicalAlert(ctx, storage.ClinicalAlertRow{
		ID:          uuid.NewString(),
		CategoryID:  in.CategoryID,
		PatientID:   in.PatientID,
		Description: in.Description,
		Status:      "ativo",
		CreatedBy:   in.CreatedBy,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	})
}
