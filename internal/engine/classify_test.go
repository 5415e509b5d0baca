package engine

import (
	"testing"
	"time"

	"roundkids/internal/model"
)

func TestClassifyIsDeterministic(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	a := model.Alert{
		ID: "1", Source: model.SourcePatientAlert, Triaged: true,
		RawStatus: model.RawOpen,
		CreatedAt: now.Add(-time.Hour), Deadline: now.Add(time.Hour),
	}
	first, firstOK := Classify(a, now)
	for i := 0; i < 10; i++ {
		got, ok := Classify(a, now)
		if got != first || ok != firstOK {
			t.Fatalf("classification changed between identical calls: %s vs %s", first, got)
		}
	}
}

func TestClassifyCompletedIsTerminal(t *testing.T) {
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	a := model.Alert{
		ID: "1", Source: model.SourceChecklistTask, Triaged: true,
		RawStatus: model.RawCompleted,
		Deadline:  base,
	}
	for _, now := range []time.Time{
		base.Add(-24 * time.Hour),
		base,
		base.Add(24 * time.Hour),
		base.Add(365 * 24 * time.Hour),
	} {
		live, visible := Classify(a, now)
		if !visible || live != model.StatusCompleted {
			t.Fatalf("completed alert at now=%v classified %s", now, live)
		}
	}
}

func TestClassifyBoundaryIsOverdue(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	a := model.Alert{
		ID: "1", Source: model.SourcePatientAlert, Triaged: true,
		RawStatus: model.RawOpen,
		Deadline:  now,
	}
	live, visible := Classify(a, now)
	if !visible || live != model.StatusOverdue {
		t.Fatalf("deadline == now must classify overdue, got %s", live)
	}
}

func TestClassifyHiddenExcluded(t *testing.T) {
	a := model.Alert{ID: "1", Source: model.SourceChecklistTask, RawStatus: model.RawHidden}
	if _, visible := Classify(a, time.Now()); visible {
		t.Fatal("hidden alert must not be visible in any view")
	}
}

func TestClassifyUntriagedCategorizedIsAlerting(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	a := model.Alert{
		ID: "1", Source: model.SourceCategorizedAlert,
		RawStatus: model.RawOpen,
		Deadline:  now.Add(-time.Hour),
	}
	live, visible := Classify(a, now)
	if !visible || live != model.StatusAlerting {
		t.Fatalf("untriaged categorized alert classified %s, want %s", live, model.StatusAlerting)
	}
	a.Triaged = true
	live, _ = Classify(a, now)
	if live != model.StatusOverdue {
		t.Fatalf("triaged categorized alert past deadline classified %s", live)
	}
}

// Scenario: "2 horas" at T means on time at T+1h and overdue at T+3h.
func TestClassifyTwoHourWindow(t *testing.T) {
	created := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	a := model.Alert{
		ID: "1", Source: model.SourcePatientAlert, Triaged: true,
		RawStatus: model.RawOpen,
		CreatedAt: created,
		Deadline:  created.Add(2 * time.Hour),
	}
	if live, _ := Classify(a, created.Add(time.Hour)); live != model.StatusOnTime {
		t.Fatalf("at T+1h classified %s, want %s", live, model.StatusOnTime)
	}
	if live, _ := Classify(a, created.Add(3*time.Hour)); live != model.StatusOverdue {
		t.Fatalf("at T+3h classified %s, want %s", live, model.StatusOverdue)
	}
}
