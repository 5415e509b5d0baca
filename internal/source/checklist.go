package source

import (
	"context"
	"fmt"
	"strconv"

	"roundkids/internal/model"
	"roundkids/internal/storage"
)

// checklist_tasks status vocabulary. The table predates the live
// classifier and still persists display statuses alongside terminal
// ones; readers surface the raw string and let normalization fold it.
var checklistWriteStatus = map[Op]string{
	OpComplete: "concluido",
	OpHide:     "oculto",
}

type ChecklistReader struct {
	store storage.Store
}

func NewChecklistReader(store storage.Store) *ChecklistReader {
	return &ChecklistReader{store: store}
}

func (r *ChecklistReader) Source() model.Source {
	return model.SourceChecklistTask
}

func (r *ChecklistReader) FetchRaw(ctx context.Context) ([]model.PartialAlert, error) {
	rows, err := r.store.ListChecklistTasks(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.PartialAlert, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.PartialAlert{
			ID:            strconv.FormatInt(row.ID, 10),
			Source:        model.SourceChecklistTask,
			PatientID:     row.PatientID,
			EmbeddedName:  row.PatientName,
			CategoryID:    row.CategoryID,
			CategoryName:  row.CategoryName,
			Description:   row.Description,
			Responsible:   row.Responsible,
			CreatedAt:     row.CreatedAt,
			Deadline:      row.Deadline,
			TimeLabel:     row.TimeLabel,
			RawText:       row.Status,
			Justification: row.Justification,
			Triaged:       true,
		})
	}
	return out, nil
}

func (r *ChecklistReader) Apply(ctx context.Context, id string, tr Transition) error {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("checklist task id %q: %w", id, err)
	}
	switch tr.Op {
	case OpJustify:
		return r.store.SetChecklistTaskJustification(ctx, rowID, tr.Justification, tr.Now)
	case OpComplete, OpHide:
		return r.store.SetChecklistTaskStatus(ctx, rowID, checklistWriteStatus[tr.Op], tr.Now)
	default:
		return fmt.Errorf("checklist task: unsupported op %q", tr.Op)
	}
}

func (r *ChecklistReader) CreateAlert(ctx context.Context, in CreateInput) error {
	return r.store.InsertChecklistTask(ctx, storage.TaskRow{
		PatientID:    in.PatientID,
		CategoryID:   in.CategoryID,
		CategoryName: in.CategoryName,
		Description:  in.Description,
		Responsible:  in.Responsible,
		Deadline:     in.Deadline,
		Status:       "alerta",
		PatientName:  in.PatientName,
		TimeLabel:    in.TimeLabel,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    in.CreatedAt,
		UpdatedAt:    in.CreatedAt,
	})
}
