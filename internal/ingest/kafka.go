// Package ingest feeds categorized clinical alerts from an event
// topic into the alert store, standing in for the push channel the
// hospital systems publish on.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"roundkids/internal/config"
	"roundkids/internal/logging"
	"roundkids/internal/source"
)

// alertEvent is the wire shape published on the alert topic.
type alertEvent struct {
	CategoryID  int    `json:"category_id"`
	PatientID   string `json:"patient_id,omitempty"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// StartKafka consumes alert events and inserts them through the
// categorized source writer. Malformed messages are logged and
// dropped; the consumer only stops when the context is canceled.
func StartKafka(ctx context.Context, cfg config.KafkaConfig, sink *source.CategorizedReader, logger *slog.Logger) {
	logger = logging.OrDiscard(logger)
	if !cfg.Enabled {
		logger.Info("kafka ingest disabled")
		return
	}
	logger.Info("kafka ingest enabled",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
		"group_id", cfg.GroupID,
	)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	go func() {
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("kafka read error", "err", err)
				continue
			}
			in, err := decodeAlertEvent(m.Value)
			if err != nil {
				logger.Warn("dropping malformed alert event", "err", err)
				continue
			}
			if err := sink.Ingest(ctx, in); err != nil {
				logger.Warn("alert event insert failed", "err", err)
			}
		}
	}()
}

func decodeAlertEvent(raw []byte) (source.IngestInput, error) {
	var ev alertEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return source.IngestInput{}, err
	}
	if strings.TrimSpace(ev.Description) == "" {
		return source.IngestInput{}, errors.New("alert event has no description")
	}
	in := source.IngestInput{
		CategoryID:  ev.CategoryID,
		PatientID:   strings.TrimSpace(ev.PatientID),
		Description: strings.TrimSpace(ev.Description),
		CreatedBy:   strings.TrimSpace(ev.CreatedBy),
	}
	if ev.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, ev.CreatedAt); err == nil {
			in.CreatedAt = ts.UTC()
		}
	}
	return in, nil
}
