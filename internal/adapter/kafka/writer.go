// Package kafka publishes finished region results to a sink topic for
// downstream consumers (map renderers, dashboards).
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/mchastel/referendum-rollup/internal/config"
	"github.com/mchastel/referendum-rollup/internal/domain"
)

// Writer produces region results to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
	scope  domain.ScopePolicy
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, scope: cfg.Scope}
}

// PublishResults serializes and publishes all region results in a single
// WriteMessages call. Keyed by region code, so a compacted topic always
// holds the latest result per region.
func (w *Writer) PublishResults(ctx context.Context, results []domain.RegionResult) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(results))
	for i := range results {
		msg, err := serializeToMessage(results[i], w.scope)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish region results: %w", err)
	}
	w.logger.Info("region results published", "count", len(results), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RegionResult into a Kafka message.
func serializeToMessage(result domain.RegionResult, scope domain.ScopePolicy) (kafkago.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize region result: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(result.Code),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "scope", Value: []byte(scope)},
			{Key: "computed_at", Value: []byte(result.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}
