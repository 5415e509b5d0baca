package engine

import (
	"time"

	"roundkids/internal/model"
)

// Classify derives the live status of an alert at a given instant.
// Pure function of (raw status, deadline, now); the result is never
// persisted, so it cannot go stale against the deadline clock.
//
// The second return value is false for hidden rows, which are not
// rendered in any view. Completed is terminal regardless of deadline.
// An untriaged categorized alert has no deadline to track and stays
// in the alerting state until acted on. The deadline boundary is
// inclusive-overdue: a task due exactly now is already overdue.
func Classify(a model.Alert, now time.Time) (model.LiveStatus, bool) {
	switch a.RawStatus {
	case model.RawHidden:
		return "", false
	case model.RawCompleted:
		return model.StatusCompleted, true
	}
	if a.Source == model.SourceCategorizedAlert && !a.Triaged {
		return model.StatusAlerting, true
	}
	if now.Before(a.Deadline) {
		return model.StatusOnTime, true
	}
	return model.StatusOverdue, true
}
