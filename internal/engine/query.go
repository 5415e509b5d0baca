package engine

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"roundkids/internal/model"
	"roundkids/internal/normalize"
)

// FilterByStatus returns the alerts belonging to one display bucket
// at the given instant. Hidden rows never appear.
//
// The Alerting bucket is keyed on the original status string, not the
// normalized enum: only rows whose raw text is one of the per-source
// active markers ("alerta", "aberto", "Pendente", "ativo") count, and
// completed ones are excluded. Other Open rows fall into OnTime or
// Overdue per the classifier.
func FilterByStatus(alerts []model.Alert, bucket model.LiveStatus, now time.Time) []model.Alert {
	out := make([]model.Alert, 0)
	for _, a := range alerts {
		live, visible := Classify(a, now)
		if !visible {
			continue
		}
		if bucket == model.StatusAlerting {
			if normalize.IsActiveMarker(a.RawText) && live != model.StatusCompleted {
				out = append(out, a)
			}
			continue
		}
		if live == bucket {
			out = append(out, a)
		}
	}
	return out
}

// FilterByLiveStatus is the history view's status filter: plain
// equality against the classified status, marker rule not applied.
func FilterByLiveStatus(alerts []model.Alert, status model.LiveStatus, now time.Time) []model.Alert {
	out := make([]model.Alert, 0)
	for _, a := range alerts {
		live, visible := Classify(a, now)
		if visible && live == status {
			out = append(out, a)
		}
	}
	return out
}

// ExcludeHidden drops rows excluded from every view.
func ExcludeHidden(alerts []model.Alert, now time.Time) []model.Alert {
	out := make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if _, visible := Classify(a, now); visible {
			out = append(out, a)
		}
	}
	return out
}

// FilterBySearch matches case-insensitively against the patient name
// or the bed number rendered as text.
func FilterBySearch(alerts []model.Alert, term string) []model.Alert {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return alerts
	}
	out := make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if strings.Contains(strings.ToLower(a.PatientName), term) {
			out = append(out, a)
			continue
		}
		if a.HasBed() && strings.Contains(strconv.Itoa(a.BedNumber), term) {
			out = append(out, a)
		}
	}
	return out
}

// FilterByDate keeps alerts whose creation timestamp, rendered as
// RFC 3339, starts with the given prefix (typically "YYYY-MM-DD").
func FilterByDate(alerts []model.Alert, isoPrefix string) []model.Alert {
	if isoPrefix == "" {
		return alerts
	}
	out := make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if strings.HasPrefix(a.CreatedAt.UTC().Format(time.RFC3339), isoPrefix) {
			out = append(out, a)
		}
	}
	return out
}

// ExcludePatientless drops records whose patient id did not resolve in
// the directory. Applied only to the history view; the status bucket
// views intentionally keep system alerts with no patient.
func ExcludePatientless(alerts []model.Alert) []model.Alert {
	out := make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.PatientKnown {
			out = append(out, a)
		}
	}
	return out
}

// GroupAndSort orders the history view: bed ascending with missing
// beds last, then patient name, then most recent first. The sort is
// stable, so identical input yields an identical sequence.
func GroupAndSort(alerts []model.Alert) []model.Alert {
	out := make([]model.Alert, len(alerts))
	copy(out, alerts)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		bedA, bedB := sortBed(a), sortBed(b)
		if bedA != bedB {
			return bedA < bedB
		}
		if a.PatientName != b.PatientName {
			return a.PatientName < b.PatientName
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out
}

// SortByDeadline orders a status bucket the way the original task
// list does: soonest deadline first.
func SortByDeadline(alerts []model.Alert) []model.Alert {
	out := make([]model.Alert, len(alerts))
	copy(out, alerts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Deadline.Before(out[j].Deadline)
	})
	return out
}

func sortBed(a model.Alert) int {
	if !a.HasBed() {
		return int(^uint(0) >> 1)
	}
	return a.BedNumber
}

// BedGroup is one bed separator in the history view with its patient
// sections already split out.
type BedGroup struct {
	BedNumber int            `json:"bed_number,omitempty"`
	HasBed    bool           `json:"has_bed"`
	Patients  []PatientGroup `json:"patients"`
}

type PatientGroup struct {
	PatientName string        `json:"patient_name"`
	Alerts      []model.Alert `json:"alerts"`
}

// GroupByBed materializes the separator structure from a list already
// ordered by GroupAndSort.
func GroupByBed(sorted []model.Alert) []BedGroup {
	groups := make([]BedGroup, 0)
	for _, a := range sorted {
		if len(groups) == 0 || groups[len(groups)-1].BedNumber != a.BedNumber || groups[len(groups)-1].HasBed != a.HasBed() {
			groups = append(groups, BedGroup{BedNumber: a.BedNumber, HasBed: a.HasBed()})
		}
		g := &groups[len(groups)-1]
		if len(g.Patients) == 0 || g.Patients[len(g.Patients)-1].PatientName != a.PatientName {
			g.Patients = append(g.Patients, PatientGroup{PatientName: a.PatientName})
		}
		p := &g.Patients[len(g.Patients)-1]
		p.Alerts = append(p.Alerts, a)
	}
	return groups
}
