// Package source holds the three read/write adapters between the raw
// alert tables and the unified alert model. Each adapter owns its
// table's status vocabulary; nothing outside this package writes raw
// status strings.
package source

import (
	"context"
	"fmt"
	"time"

	"roundkids/internal/model"
)

// Op is one of the permitted write operations on a source row.
type Op string

const (
	OpComplete Op = "complete"
	OpJustify  Op = "justify"
	OpHide     Op = "hide"
)

// Transition is a single-row write request routed to the owning
// source. Justification is only read for OpJustify.
type Transition struct {
	Op            Op
	Justification string
	Now           time.Time
}

// Reader is the per-source contract: fetch everything, or apply one
// transition to one row. Reads are best effort; a failing reader is
// degraded to an empty source by the caller, never fatal.
type Reader interface {
	Source() model.Source
	FetchRaw(ctx context.Context) ([]model.PartialAlert, error)
	Apply(ctx context.Context, id string, tr Transition) error
}

// CreateInput describes a clinician-raised alert row about to be
// written. Deadline is already derived from TimeLabel by the caller;
// sources that store no deadline column ignore it.
type CreateInput struct {
	PatientID    string
	PatientName  string
	CategoryID   int
	CategoryName string
	Description  string
	Responsible  string
	TimeLabel    string
	CreatedBy    string
	Deadline     time.Time
	CreatedAt    time.Time
}

// Creator is implemented by the sources that accept ad-hoc creation
// (checklist tasks and patient alerts; categorized alerts arrive via
// ingest instead).
type Creator interface {
	CreateAlert(ctx context.Context, in CreateInput) error
}

// Registry routes transitions to the reader owning a source. A lookup
// miss is a wiring bug, not a runtime condition, so it panics.
type Registry struct {
	readers map[model.Source]Reader
}

func NewRegistry(readers ...Reader) *Registry {
	m := make(map[model.Source]Reader, len(readers))
	for _, r := range readers {
		m[r.Source()] = r
	}
	return &Registry{readers: m}
}

func (g *Registry) For(src model.Source) Reader {
	r, ok := g.readers[src]
	if !ok {
		panic(fmt.Sprintf("source: no reader registered for %q", src))
	}
	return r
}

func (g *Registry) All() []Reader {
	out := make([]Reader, 0, len(g.readers))
	for _, r := range g.readers {
		out = append(out, r)
	}
	return out
}
