package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"roundkids/internal/model"
	"roundkids/internal/source"
)

type appliedCall struct {
	id string
	tr source.Transition
}

type fakeReader struct {
	src      model.Source
	partials []model.PartialAlert
	fetchErr error
	applyErr error
	applied  []appliedCall
	created  []source.CreateInput
}

func (f *fakeReader) Source() model.Source { return f.src }

func (f *fakeReader) FetchRaw(ctx context.Context) ([]model.PartialAlert, error) {
	return f.partials, f.fetchErr
}

func (f *fakeReader) Apply(ctx context.Context, id string, tr source.Transition) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, appliedCall{id: id, tr: tr})
	return nil
}

func (f *fakeReader) CreateAlert(ctx context.Context, in source.CreateInput) error {
	f.created = append(f.created, in)
	return nil
}

func lifecycleFixture() (*Lifecycle, *fakeReader, *fakeReader, *fakeReader) {
	tasks := &fakeReader{src: model.SourceChecklistTask}
	patient := &fakeReader{src: model.SourcePatientAlert}
	categorized := &fakeReader{src: model.SourceCategorizedAlert}
	lc := NewLifecycle(source.NewRegistry(tasks, patient, categorized), nil)
	lc.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }
	return lc, tasks, patient, categorized
}

func overdueAlert(src model.Source, id string) model.Alert {
	return model.Alert{
		ID: id, Source: src, Triaged: true,
		RawStatus: model.RawOpen, RawText: "alerta",
		CreatedAt: time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC),
		Deadline:  time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
	}
}

func TestCompleteRoutesToOwningSource(t *testing.T) {
	lc, tasks, patient, _ := lifecycleFixture()
	if err := lc.Complete(context.Background(), overdueAlert(model.SourcePatientAlert, "u-1")); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if len(patient.applied) != 1 || patient.applied[0].tr.Op != source.OpComplete {
		t.Fatalf("patient source did not receive the write: %+v", patient.applied)
	}
	if len(tasks.applied) != 0 {
		t.Fatal("write leaked to a foreign source")
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	lc, tasks, _, _ := lifecycleFixture()
	a := overdueAlert(model.SourceChecklistTask, "7")
	a.RawStatus = model.RawCompleted
	if err := lc.Complete(context.Background(), a); err != nil {
		t.Fatalf("completing a completed alert must be a no-op, got %v", err)
	}
	if len(tasks.applied) != 0 {
		t.Fatal("no write should happen for an already completed alert")
	}
}

func TestJustifyRequiresOverdue(t *testing.T) {
	lc, _, patient, categorized := lifecycleFixture()

	onTime := overdueAlert(model.SourcePatientAlert, "u-2")
	onTime.Deadline = time.Date(2026, 8, 29, 18, 0, 0, 0, time.UTC)
	err := lc.Justify(context.Background(), onTime, "aguardando exame")
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if invalid.From != model.StatusOnTime {
		t.Fatalf("rejection should carry the live status, got %s", invalid.From)
	}

	done := overdueAlert(model.SourcePatientAlert, "u-3")
	done.RawStatus = model.RawCompleted
	if err := lc.Justify(context.Background(), done, "x"); !errors.As(err, &invalid) {
		t.Fatalf("justify on completed alert must be rejected, got %v", err)
	}

	alerting := overdueAlert(model.SourceCategorizedAlert, "u-4")
	alerting.Triaged = false
	if err := lc.Justify(context.Background(), alerting, "x"); !errors.As(err, &invalid) {
		t.Fatalf("justify on alerting alert must be rejected, got %v", err)
	}

	if len(patient.applied)+len(categorized.applied) != 0 {
		t.Fatal("rejected justify must not write")
	}
}

func TestJustifyWritesTextOnly(t *testing.T) {
	lc, _, patient, _ := lifecycleFixture()
	a := overdueAlert(model.SourcePatientAlert, "u-5")
	if err := lc.Justify(context.Background(), a, "plantão sobrecarregado"); err != nil {
		t.Fatalf("justify failed: %v", err)
	}
	if len(patient.applied) != 1 {
		t.Fatalf("expected one write, got %d", len(patient.applied))
	}
	got := patient.applied[0].tr
	if got.Op != source.OpJustify || got.Justification != "plantão sobrecarregado" {
		t.Fatalf("unexpected transition: %+v", got)
	}
}

func TestHideRequiresCompleted(t *testing.T) {
	lc, tasks, _, _ := lifecycleFixture()

	open := overdueAlert(model.SourceChecklistTask, "8")
	err := lc.Hide(context.Background(), open)
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("hide on overdue alert must be rejected, got %v", err)
	}

	done := overdueAlert(model.SourceChecklistTask, "9")
	done.RawStatus = model.RawCompleted
	if err := lc.Hide(context.Background(), done); err != nil {
		t.Fatalf("hide on completed alert failed: %v", err)
	}
	if len(tasks.applied) != 1 || tasks.applied[0].tr.Op != source.OpHide {
		t.Fatalf("expected one hide write, got %+v", tasks.applied)
	}
}

func TestWriteFailureSurfaced(t *testing.T) {
	lc, _, patient, _ := lifecycleFixture()
	patient.applyErr = errors.New("connection reset")
	err := lc.Complete(context.Background(), overdueAlert(model.SourcePatientAlert, "u-6"))
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("expected WriteError, got %v", err)
	}
	if we.Ref.ID != "u-6" || we.Op != source.OpComplete {
		t.Fatalf("write error lost context: %+v", we)
	}
}

func TestCreateTargetsByCategory(t *testing.T) {
	lc, tasks, patient, _ := lifecycleFixture()

	err := lc.Create(context.Background(), CreateRequest{
		PatientID:   "p1",
		Description: "reavaliar sedação",
		Responsible: "Médico",
		TimeLabel:   "3 horas",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(patient.created) != 1 || len(tasks.created) != 0 {
		t.Fatal("ad-hoc alert must target the patient alert source")
	}
	in := patient.created[0]
	if !in.Deadline.Equal(in.CreatedAt.Add(3 * time.Hour)) {
		t.Fatalf("deadline not derived from label: %+v", in)
	}

	err = lc.Create(context.Background(), CreateRequest{
		PatientID:   "p1",
		CategoryID:  4,
		Description: "checar balanço hídrico",
		Responsible: "Enfermagem",
		TimeLabel:   "1 hora",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(tasks.created) != 1 {
		t.Fatal("categorized request must target the checklist source")
	}
}

func TestCreateValidatesInput(t *testing.T) {
	lc, _, _, _ := lifecycleFixture()
	err := lc.Create(context.Background(), CreateRequest{Responsible: "Médico"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	err = lc.Create(context.Background(), CreateRequest{Description: "x"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
