package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"roundkids/internal/config"
	"roundkids/internal/engine"
	"roundkids/internal/logging"
	"roundkids/internal/model"
	"roundkids/internal/storage"
)

type Server struct {
	engine    *engine.Engine
	lifecycle *engine.Lifecycle
	cfg       *config.Config
	logger    *slog.Logger
	version   string
}

func Start(ctx context.Context, cfg *config.Config, eng *engine.Engine, lc *engine.Lifecycle, logger *slog.Logger, version string) *http.Server {
	logger = logging.OrDiscard(logger)
	if !cfg.API.Enabled {
		logger.Info("api disabled")
		return nil
	}
	logger.Info("api enabled", "addr", cfg.API.Addr)
	server := &Server{engine: eng, lifecycle: lc, cfg: cfg, logger: logger, version: version}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", server.handleStatus)
	mux.HandleFunc("/alerts", server.handleAlerts)
	mux.HandleFunc("/alerts/", server.handleTransition)
	mux.HandleFunc("/history", server.handleHistory)
	mux.HandleFunc("/history/groups", server.handleHistoryGroups)

	httpServer := &http.Server{Addr: cfg.API.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server error", "err", err)
		}
	}()
	return httpServer
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339Nano),
		"version": s.version,
		"storage": s.cfg.Storage.Driver,
		"ingest": map[string]any{
			"kafka": s.cfg.Ingest.Kafka.Enabled,
		},
	})
}

// GET /alerts?bucket=no_prazo lists one status bucket.
// POST /alerts creates a clinician-raised alert.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		bucket, ok := model.ParseLiveStatus(r.URL.Query().Get("bucket"))
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown bucket")
			return
		}
		alerts, err := s.engine.ListByStatus(r.Context(), bucket)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"alerts": alerts,
			"count":  len(alerts),
		})
	case http.MethodPost:
		var req struct {
			PatientID    string `json:"patient_id"`
			PatientName  string `json:"patient_name"`
			CategoryID   int    `json:"category_id"`
			CategoryName string `json:"category_name"`
			Description  string `json:"description"`
			Responsible  string `json:"responsible"`
			TimeLabel    string `json:"time_label"`
			CreatedBy    string `json:"created_by"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		err := s.lifecycle.Create(r.Context(), engine.CreateRequest{
			PatientID:    req.PatientID,
			PatientName:  req.PatientName,
			CategoryID:   req.CategoryID,
			CategoryName: req.CategoryName,
			Description:  req.Description,
			Responsible:  req.Responsible,
			TimeLabel:    req.TimeLabel,
			CreatedBy:    req.CreatedBy,
		})
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"status": "ok"})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// POST /alerts/{source}/{id}/{complete|justify|hide}
func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/alerts/")
	parts := strings.Split(path, "/")
	if len(parts) != 3 {
		writeError(w, http.StatusNotFound, "expected /alerts/{source}/{id}/{action}")
		return
	}
	src := model.Source(parts[0])
	if !src.Valid() {
		writeError(w, http.StatusBadRequest, "unknown source")
		return
	}
	ref := model.Ref{Source: src, ID: parts[1]}
	action := parts[2]

	alert, found, err := s.engine.Find(r.Context(), ref)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}

	switch action {
	case "complete":
		err = s.lifecycle.Complete(r.Context(), alert)
	case "justify":
		var req struct {
			Justification string `json:"justification"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		err = s.lifecycle.Justify(r.Context(), alert, req.Justification)
	case "hide":
		err = s.lifecycle.Hide(r.Context(), alert)
	default:
		writeError(w, http.StatusNotFound, "unknown action")
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// GET /history?search=&date=&status=
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	filter, ok := historyFilter(w, r)
	if !ok {
		return
	}
	alerts, err := s.engine.ListHistory(r.Context(), filter)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (s *Server) handleHistoryGroups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	filter, ok := historyFilter(w, r)
	if !ok {
		return
	}
	groups, err := s.engine.HistoryGroups(r.Context(), filter)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"groups": groups,
		"count":  len(groups),
	})
}

func historyFilter(w http.ResponseWriter, r *http.Request) (engine.HistoryFilter, bool) {
	filter := engine.HistoryFilter{
		Search: r.URL.Query().Get("search"),
		Date:   r.URL.Query().Get("date"),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status, ok := model.ParseLiveStatus(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown status")
			return engine.HistoryFilter{}, false
		}
		filter.Status = status
	}
	return filter, true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	var invalid *engine.InvalidTransitionError
	if errors.As(err, &invalid) {
		writeError(w, http.StatusConflict, invalid.Error())
		return
	}
	if errors.Is(err, engine.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, storage.ErrRowNotFound) {
		writeError(w, http.StatusNotFound, "alert row not found")
		return
	}
	s.logger.Error("request failed", "err", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed json")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
