package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"roundkids/internal/logging"
	"roundkids/internal/model"
	"roundkids/internal/normalize"
	"roundkids/internal/source"
)

// Lifecycle validates and executes the permitted alert transitions.
// Every write is routed to the reader owning the alert's source and
// touches exactly one row; the caller re-fetches afterwards, there is
// no in-memory state to patch.
type Lifecycle struct {
	registry *source.Registry
	logger   *slog.Logger
	now      func() time.Time
}

func NewLifecycle(registry *source.Registry, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{
		registry: registry,
		logger:   logging.OrDiscard(logger),
		now:      time.Now,
	}
}

// CreateRequest describes a clinician-raised alert. A request that
// carries a category id targets the checklist task source; an ad-hoc
// alert without one targets the patient alert source.
type CreateRequest struct {
	PatientID    string
	PatientName  string
	CategoryID   int
	CategoryName string
	Description  string
	Responsible  string
	TimeLabel    string
	CreatedBy    string
}

// ErrInvalidInput marks request validation failures, distinct from
// transition guards and write failures.
var ErrInvalidInput = errors.New("invalid input")

func (l *Lifecycle) Create(ctx context.Context, req CreateRequest) error {
	if strings.TrimSpace(req.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Responsible) == "" {
		return fmt.Errorf("%w: responsible is required", ErrInvalidInput)
	}
	target := model.SourcePatientAlert
	if req.CategoryID > 0 {
		target = model.SourceChecklistTask
	}
	now := l.now().UTC()
	in := source.CreateInput{
		PatientID:    req.PatientID,
		PatientName:  req.PatientName,
		CategoryID:   req.CategoryID,
		CategoryName: req.CategoryName,
		Description:  req.Description,
		Responsible:  req.Responsible,
		TimeLabel:    req.TimeLabel,
		CreatedBy:    req.CreatedBy,
		Deadline:     now.Add(normalize.DurationFromLabel(req.TimeLabel)),
		CreatedAt:    now,
	}
	creator, ok := l.registry.For(target).(source.Creator)
	if !ok {
		return fmt.Errorf("create: source %s does not accept creation", target)
	}
	if err := creator.CreateAlert(ctx, in); err != nil {
		return &WriteError{Ref: model.Ref{Source: target}, Op: "create", Err: err}
	}
	l.logger.Info("alert created",
		"source", string(target),
		"patient_id", req.PatientID,
		"responsible", req.Responsible,
		"time_label", req.TimeLabel,
	)
	return nil
}

// Complete marks an alert done. Idempotent: completing an already
// completed alert is a no-op, not an error.
func (l *Lifecycle) Complete(ctx context.Context, a model.Alert) error {
	now := l.now().UTC()
	live, visible := Classify(a, now)
	if !visible {
		return &InvalidTransitionError{Ref: a.Ref(), Op: source.OpComplete, From: live}
	}
	if live == model.StatusCompleted {
		return nil
	}
	return l.apply(ctx, a, source.Transition{Op: source.OpComplete, Now: now})
}

// Justify records a delay explanation. Legal only while the alert is
// overdue; the raw status is left untouched.
func (l *Lifecycle) Justify(ctx context.Context, a model.Alert, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: justification text is required", ErrInvalidInput)
	}
	now := l.now().UTC()
	live, _ := Classify(a, now)
	if live != model.StatusOverdue {
		return &InvalidTransitionError{Ref: a.Ref(), Op: source.OpJustify, From: live}
	}
	return l.apply(ctx, a, source.Transition{Op: source.OpJustify, Justification: text, Now: now})
}

// Hide soft-deletes a completed alert. There is no unhide.
func (l *Lifecycle) Hide(ctx context.Context, a model.Alert) error {
	now := l.now().UTC()
	live, visible := Classify(a, now)
	if !visible || live != model.StatusCompleted {
		return &InvalidTransitionError{Ref: a.Ref(), Op: source.OpHide, From: live}
	}
	return l.apply(ctx, a, source.Transition{Op: source.OpHide, Now: now})
}

func (l *Lifecycle) apply(ctx context.Context, a model.Alert, tr source.Transition) error {
	reader := l.registry.For(a.Source)
	if err := reader.Apply(ctx, a.ID, tr); err != nil {
		l.logger.Warn("transition write failed",
			"op", string(tr.Op),
			"source", string(a.Source),
			"id", a.ID,
			"err", err,
		)
		return &WriteError{Ref: a.Ref(), Op: tr.Op, Err: err}
	}
	l.logger.Info("transition applied",
		"op", string(tr.Op),
		"source", string(a.Source),
		"id", a.ID,
	)
	return nil
}
