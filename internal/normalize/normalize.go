// Package normalize merges the three partial record streams and the
// patient directory into the unified alert set, and owns the status
// vocabulary mapping for every source.
package normalize

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"roundkids/internal/logging"
	"roundkids/internal/model"
)

// statusVocab maps each source's persisted status strings onto the
// shared three-value enum. Matching is case-insensitive on the trimmed
// string; anything unrecognized stays Open so an alert is never
// silently dropped for having a bad status.
var statusVocab = map[model.Source]map[string]model.RawStatus{
	model.SourceChecklistTask: {
		"alerta":        model.RawOpen,
		"no_prazo":      model.RawOpen,
		"fora_do_prazo": model.RawOpen,
		"concluido":     model.RawCompleted,
		"oculto":        model.RawHidden,
	},
	model.SourcePatientAlert: {
		"pendente":  model.RawOpen,
		"aberto":    model.RawOpen,
		"concluido": model.RawCompleted,
		"oculto":    model.RawHidden,
	},
	model.SourceCategorizedAlert: {
		"ativo":     model.RawOpen,
		"concluido": model.RawCompleted,
		"oculto":    model.RawHidden,
	},
}

// activeMarkers are the raw strings that place an Open row in the
// Alerting bucket. The per-source vocabularies are inconsistent on
// purpose; this reflects what the tables actually hold.
var activeMarkers = map[string]bool{
	"alerta":   true,
	"aberto":   true,
	"pendente": true,
	"ativo":    true,
}

func Status(src model.Source, raw string) model.RawStatus {
	key := strings.ToLower(strings.TrimSpace(raw))
	if vocab, ok := statusVocab[src]; ok {
		if st, ok := vocab[key]; ok {
			return st
		}
	}
	return model.RawOpen
}

func IsActiveMarker(raw string) bool {
	return activeMarkers[strings.ToLower(strings.TrimSpace(raw))]
}

// DurationFromLabel parses a human deadline label like "3 horas" or
// "1 hora" into a duration. A malformed or empty label yields zero,
// which makes the alert immediately due rather than rejected.
func DurationFromLabel(label string) time.Duration {
	fields := strings.Fields(strings.TrimSpace(label))
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return 0
	}
	if len(fields) > 1 && strings.HasPrefix(strings.ToLower(fields[1]), "min") {
		return time.Duration(n) * time.Minute
	}
	return time.Duration(n) * time.Hour
}

// DeriveDeadline prefers a stored deadline and otherwise computes one
// from the creation time and the time label.
func DeriveDeadline(createdAt, stored time.Time, label string) time.Time {
	if !stored.IsZero() {
		return stored
	}
	return createdAt.Add(DurationFromLabel(label))
}

// Directory is the snapshot joined against every partial record.
type Directory struct {
	Patients        map[string]model.Patient
	Categories      map[int]string
	UnknownPatient  string
	DefaultCategory string
}

func (d Directory) unknown() string {
	if d.UnknownPatient == "" {
		return "Desconhecido"
	}
	return d.UnknownPatient
}

func (d Directory) defaultCategory() string {
	if d.DefaultCategory == "" {
		return "Geral"
	}
	return d.DefaultCategory
}

// Build produces the unified alert set. A malformed record is skipped
// with a log line and never aborts the rest of the batch.
func Build(partials []model.PartialAlert, dir Directory, logger *slog.Logger) []model.Alert {
	logger = logging.OrDiscard(logger)
	out := make([]model.Alert, 0, len(partials))
	for _, p := range partials {
		if p.ID == "" || !p.Source.Valid() {
			logger.Warn("skipping malformed record",
				"source", string(p.Source),
				"id", p.ID,
			)
			continue
		}
		a := model.Alert{
			ID:            p.ID,
			Source:        p.Source,
			PatientID:     p.PatientID,
			CategoryID:    p.CategoryID,
			Description:   p.Description,
			Responsible:   p.Responsible,
			CreatedAt:     p.CreatedAt,
			Deadline:      DeriveDeadline(p.CreatedAt, p.Deadline, p.TimeLabel),
			RawStatus:     Status(p.Source, p.RawText),
			RawText:       p.RawText,
			TimeLabel:     p.TimeLabel,
			Justification: p.Justification,
			Triaged:       p.Triaged,
		}

		// Display fields: directory first, then whatever the raw row
		// carried, then the sentinel.
		if patient, ok := dir.Patients[p.PatientID]; ok && p.PatientID != "" {
			a.PatientKnown = true
			a.PatientName = patient.Name
			a.BedNumber = patient.BedNumber
		}
		if a.PatientName == "" {
			a.PatientName = p.EmbeddedName
		}
		if a.PatientName == "" {
			a.PatientName = dir.unknown()
		}
		if a.BedNumber == 0 {
			a.BedNumber = p.EmbeddedBed
		}

		a.CategoryName = p.CategoryName
		if a.CategoryName == "" {
			a.CategoryName = dir.Categories[p.CategoryID]
		}
		if a.CategoryName == "" {
			a.CategoryName = dir.defaultCategory()
		}

		if p.CreatedAt.IsZero() {
			logger.Warn("record has no creation time, deadline defaults to immediately due",
				"source", string(p.Source),
				"id", p.ID,
			)
		}
		out = append(out, a)
	}
	return out
}
