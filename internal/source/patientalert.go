package source

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"roundkids/internal/model"
	"roundkids/internal/storage"
)

// patient_alerts keeps its own capitalized vocabulary ("Pendente",
// "Aberto", "Concluido") plus the shared "oculto" soft delete.
var patientAlertWriteStatus = map[Op]string{
	OpComplete: "Concluido",
	OpHide:     "oculto",
}

type PatientAlertReader struct {
	store storage.Store
}

func NewPatientAlertReader(store storage.Store) *PatientAlertReader {
	return &PatientAlertReader{store: store}
}

func (r *PatientAlertReader) Source() model.Source {
	return model.SourcePatientAlert
}

func (r *PatientAlertReader) FetchRaw(ctx context.Context) ([]model.PartialAlert, error) {
	rows, err := r.store.ListPatientAlerts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.PartialAlert, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.PartialAlert{
			ID:            row.ID,
			Source:        model.SourcePatientAlert,
			PatientID:     row.PatientID,
			Description:   row.Description,
			Responsible:   row.Responsible,
			CreatedAt:     row.CreatedAt,
			TimeLabel:     row.TimeLabel,
			RawText:       row.Status,
			Justification: row.Justification,
			Triaged:       true,
		})
	}
	return out, nil
}

func (r *PatientAlertReader) Apply(ctx context.Context, id string, tr Transition) error {
	switch tr.Op {
	case OpJustify:
		return r.store.SetPatientAlertJustification(ctx, id, tr.Justification, tr.Now)
	case OpComplete, OpHide:
		return r.store.SetPatientAlertStatus(ctx, id, patientAlertWriteStatus[tr.Op], tr.Now)
	default:
		return fmt.Errorf("patient alert: unsupported op %q", tr.Op)
	}
}

func (r *PatientAlertReader) CreateAlert(ctx context.Context, in CreateInput) error {
	return r.store.InsertPatientAlert(ctx, storage.PatientAlertRow{
		ID:          uuid.NewString(),
		PatientID:   in.PatientID,
		Description: in.Description,
		Responsible: in.Responsible,
		TimeLabel:   in.TimeLabel,
		Status:      "Pendente",
		CreatedBy:   in.CreatedBy,
		CreatedAt:   in.CreatedAt,
		UpdatedAt:   in.CreatedAt,
	})
}
