package normalize

import (
	"testing"
	"time"

	"roundkids/internal/model"
)

func TestDurationFromLabel(t *testing.T) {
	cases := []struct {
		label string
		want  time.Duration
	}{
		{"1 hora", time.Hour},
		{"2 horas", 2 * time.Hour},
		{"3 horas", 3 * time.Hour},
		{"12 horas", 12 * time.Hour},
		{"30 minutos", 30 * time.Minute},
		{"", 0},
		{"sem prazo", 0},
		{"-2 horas", 0},
		{"  4 horas  ", 4 * time.Hour},
	}
	for _, tc := range cases {
		if got := DurationFromLabel(tc.label); got != tc.want {
			t.Errorf("DurationFromLabel(%q) = %v, want %v", tc.label, got, tc.want)
		}
	}
}

func TestDeriveDeadlinePrefersStored(t *testing.T) {
	created := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	stored := created.Add(5 * time.Hour)
	if got := DeriveDeadline(created, stored, "1 hora"); !got.Equal(stored) {
		t.Fatalf("expected stored deadline, got %v", got)
	}
	if got := DeriveDeadline(created, time.Time{}, "2 horas"); !got.Equal(created.Add(2 * time.Hour)) {
		t.Fatalf("expected created+2h, got %v", got)
	}
}

func TestStatusVocabulary(t *testing.T) {
	cases := []struct {
		src  model.Source
		raw  string
		want model.RawStatus
	}{
		{model.SourceChecklistTask, "alerta", model.RawOpen},
		{model.SourceChecklistTask, "fora_do_prazo", model.RawOpen},
		{model.SourceChecklistTask, "concluido", model.RawCompleted},
		{model.SourceChecklistTask, "oculto", model.RawHidden},
		{model.SourcePatientAlert, "Pendente", model.RawOpen},
		{model.SourcePatientAlert, "Aberto", model.RawOpen},
		{model.SourcePatientAlert, "Concluido", model.RawCompleted},
		{model.SourceCategorizedAlert, "ativo", model.RawOpen},
		{model.SourceCategorizedAlert, "oculto", model.RawHidden},
		// Unrecognized strings fail open rather than dropping the alert.
		{model.SourceChecklistTask, "???", model.RawOpen},
		{model.SourcePatientAlert, "", model.RawOpen},
	}
	for _, tc := range cases {
		if got := Status(tc.src, tc.raw); got != tc.want {
			t.Errorf("Status(%s, %q) = %s, want %s", tc.src, tc.raw, got, tc.want)
		}
	}
}

func TestActiveMarkers(t *testing.T) {
	for _, raw := range []string{"alerta", "aberto", "Pendente", "ativo", "PENDENTE"} {
		if !IsActiveMarker(raw) {
			t.Errorf("expected %q to be an active marker", raw)
		}
	}
	for _, raw := range []string{"no_prazo", "concluido", "oculto", ""} {
		if IsActiveMarker(raw) {
			t.Errorf("did not expect %q to be an active marker", raw)
		}
	}
}

func TestBuildResolvesDirectory(t *testing.T) {
	created := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	dir := Directory{
		Patients: map[string]model.Patient{
			"p1": {ID: "p1", Name: "Ana Souza", BedNumber: 110},
		},
		Categories: map[int]string{3: "Respiratório"},
	}
	partials := []model.PartialAlert{
		{
			ID: "1", Source: model.SourceChecklistTask, PatientID: "p1",
			EmbeddedName: "stale name", CategoryID: 3,
			Description: "checar ventilação", Responsible: "Enfermagem",
			CreatedAt: created, TimeLabel: "2 horas", RawText: "alerta",
		},
		{
			ID: "2", Source: model.SourcePatientAlert, PatientID: "missing",
			EmbeddedName: "Bruno Lima",
			Description:  "avaliar dor", Responsible: "Médico",
			CreatedAt: created, TimeLabel: "1 hora", RawText: "Pendente",
		},
		{
			ID: "3", Source: model.SourceCategorizedAlert,
			Description: "alerta de sistema", Responsible: "Sistema",
			CreatedAt: created, RawText: "ativo",
		},
	}
	alerts := Build(partials, dir, nil)
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(alerts))
	}

	a := alerts[0]
	if a.PatientName != "Ana Souza" || a.BedNumber != 110 || !a.PatientKnown {
		t.Fatalf("directory lookup not applied: %+v", a)
	}
	if a.CategoryName != "Respiratório" {
		t.Fatalf("category not resolved: %q", a.CategoryName)
	}
	if !a.Deadline.Equal(created.Add(2 * time.Hour)) {
		t.Fatalf("deadline = %v, want created+2h", a.Deadline)
	}

	b := alerts[1]
	if b.PatientName != "Bruno Lima" {
		t.Fatalf("embedded name fallback not applied: %q", b.PatientName)
	}
	if b.PatientKnown {
		t.Fatal("patient absent from directory must not be marked known")
	}

	c := alerts[2]
	if c.PatientName != "Desconhecido" {
		t.Fatalf("unknown sentinel not applied: %q", c.PatientName)
	}
	if c.CategoryName != "Geral" {
		t.Fatalf("default category not applied: %q", c.CategoryName)
	}
}

func TestBuildSkipsMalformedRecords(t *testing.T) {
	created := time.Now().UTC()
	partials := []model.PartialAlert{
		{ID: "", Source: model.SourceChecklistTask, CreatedAt: created},
		{ID: "ok", Source: model.SourcePatientAlert, Description: "x", CreatedAt: created, RawText: "Pendente"},
		{ID: "bad-source", Source: model.Source("nope"), CreatedAt: created},
	}
	alerts := Build(partials, Directory{}, nil)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 surviving alert, got %d", len(alerts))
	}
	if alerts[0].ID != "ok" {
		t.Fatalf("wrong survivor: %q", alerts[0].ID)
	}
}

func TestBuildMalformedLabelDefaultsToDue(t *testing.T) {
	created := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	alerts := Build([]model.PartialAlert{
		{ID: "1", Source: model.SourcePatientAlert, CreatedAt: created, TimeLabel: "logo", RawText: "Aberto"},
	}, Directory{}, nil)
	if len(alerts) != 1 {
		t.Fatalf("record with bad label must survive, got %d alerts", len(alerts))
	}
	if !alerts[0].Deadline.Equal(created) {
		t.Fatalf("bad label should mean immediately due, deadline = %v", alerts[0].Deadline)
	}
}
