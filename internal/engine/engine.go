// Package engine derives live alert state from the raw sources:
// fetch-cycle orchestration, the pure status classifier, the
// lifecycle manager, and the query operations behind the status and
// history views.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"roundkids/internal/config"
	"roundkids/internal/logging"
	"roundkids/internal/model"
	"roundkids/internal/normalize"
	"roundkids/internal/source"
	"roundkids/internal/storage"
)

// Engine runs one full fetch cycle per view request. There is no
// background refresh and no cache between cycles; every snapshot is a
// complete recomputation so the derived status can never diverge from
// the store of record.
type Engine struct {
	registry *source.Registry
	store    storage.Store
	dircfg   config.DirectoryConfig
	logger   *slog.Logger
	now      func() time.Time
}

func New(registry *source.Registry, store storage.Store, dircfg config.DirectoryConfig, logger *slog.Logger) *Engine {
	return &Engine{
		registry: registry,
		store:    store,
		dircfg:   dircfg,
		logger:   logging.OrDiscard(logger),
		now:      time.Now,
	}
}

// Snapshot is the outcome of one fetch cycle. Degraded lists sources
// that failed and were treated as empty; the alert list is complete
// for every source that answered.
type Snapshot struct {
	Alerts       []model.Alert
	TakenAt      time.Time
	Degraded     map[model.Source]error
	DirectoryErr error
}

// Fetch reads the three sources and the patient directory
// concurrently, joins all four results, and normalizes. A failed
// reader contributes zero records instead of failing the cycle.
func (e *Engine) Fetch(ctx context.Context) (*Snapshot, error) {
	readers := e.registry.All()

	type sourceResult struct {
		src      model.Source
		partials []model.PartialAlert
		err      error
	}
	results := make([]sourceResult, len(readers))
	var patients []storage.PatientRow
	var categories []storage.CategoryRow
	var patientsErr, categoriesErr error

	var wg sync.WaitGroup
	for i, r := range readers {
		wg.Add(1)
		go func(i int, r source.Reader) {
			defer wg.Done()
			partials, err := r.FetchRaw(ctx)
			results[i] = sourceResult{src: r.Source(), partials: partials, err: err}
		}(i, r)
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		patients, patientsErr = e.store.ListPatients(ctx)
	}()
	go func() {
		defer wg.Done()
		categories, categoriesErr = e.store.ListCategories(ctx)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := &Snapshot{TakenAt: e.now().UTC()}
	var partials []model.PartialAlert
	for _, res := range results {
		if res.err != nil {
			if snap.Degraded == nil {
				snap.Degraded = make(map[model.Source]error)
			}
			srcErr := &SourceUnavailableError{Source: res.src, Err: res.err}
			snap.Degraded[res.src] = srcErr
			e.logger.Warn("source unavailable, treating as empty",
				"source", string(res.src),
				"err", res.err,
			)
			continue
		}
		partials = append(partials, res.partials...)
	}

	dir := normalize.Directory{
		Patients:        make(map[string]model.Patient, len(patients)),
		Categories:      make(map[int]string, len(categories)),
		UnknownPatient:  e.dircfg.UnknownPatient,
		DefaultCategory: e.dircfg.DefaultCategory,
	}
	if patientsErr != nil {
		snap.DirectoryErr = patientsErr
		e.logger.Warn("patient directory unavailable", "err", patientsErr)
	}
	if categoriesErr != nil {
		e.logger.Warn("category catalog unavailable", "err", categoriesErr)
	}
	for _, p := range patients {
		dir.Patients[p.ID] = model.Patient{ID: p.ID, Name: p.Name, BedNumber: p.BedNumber}
	}
	for _, c := range categories {
		dir.Categories[c.ID] = c.Name
	}

	snap.Alerts = normalize.Build(partials, dir, e.logger)
	return snap, nil
}

// ListByStatus returns one display bucket, soonest deadline first.
func (e *Engine) ListByStatus(ctx context.Context, bucket model.LiveStatus) ([]model.Alert, error) {
	snap, err := e.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return SortByDeadline(FilterByStatus(snap.Alerts, bucket, snap.TakenAt)), nil
}

// HistoryFilter narrows the full history view. Zero values mean "no
// filter". Date is an ISO date prefix matched against created_at.
type HistoryFilter struct {
	Search string
	Date   string
	Status model.LiveStatus
}

// ListHistory returns the full history view: hidden rows and records
// with no validated patient excluded, then filtered and ordered by
// bed, patient, and recency.
func (e *Engine) ListHistory(ctx context.Context, f HistoryFilter) ([]model.Alert, error) {
	snap, err := e.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	alerts := ExcludePatientless(ExcludeHidden(snap.Alerts, snap.TakenAt))
	alerts = FilterBySearch(alerts, f.Search)
	alerts = FilterByDate(alerts, f.Date)
	if f.Status != "" {
		alerts = FilterByLiveStatus(alerts, f.Status, snap.TakenAt)
	}
	return GroupAndSort(alerts), nil
}

// HistoryGroups is ListHistory with the bed and patient separator
// structure already materialized for rendering.
func (e *Engine) HistoryGroups(ctx context.Context, f HistoryFilter) ([]BedGroup, error) {
	alerts, err := e.ListHistory(ctx, f)
	if err != nil {
		return nil, err
	}
	return GroupByBed(alerts), nil
}

// Find locates one alert by its compound key in a fresh snapshot.
func (e *Engine) Find(ctx context.Context, ref model.Ref) (model.Alert, bool, error) {
	snap, err := e.Fetch(ctx)
	if err != nil {
		return model.Alert{}, false, err
	}
	for _, a := range snap.Alerts {
		if a.Source == ref.Source && a.ID == ref.ID {
			return a, true, nil
		}
	}
	return model.Alert{}, false, nil
}
