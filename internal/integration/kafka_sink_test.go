//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/mchastel/referendum-rollup/internal/adapter/kafka"
	"github.com/mchastel/referendum-rollup/internal/config"
	"github.com/mchastel/referendum-rollup/internal/domain"
)

const testSinkTopic = "test-region-results"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-broker Kafka container and returns its
// bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("rollup-test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestWriterPublishesResults verifies that the sink writer round-trips
// region results through real Kafka with the expected keys and headers.
func TestWriterPublishesResults(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
		Scope:          domain.ScopeMainland,
	}

	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	ratio := 50.0 / 88.0
	computedAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	results := []domain.RegionResult{
		{Code: "84", Name: "Auvergne-Rhône-Alpes", Registered: 100, Abstentions: 10, NullVotes: 2, ChoiceA: 50, ChoiceB: 38, Ratio: &ratio, ComputedAt: computedAt},
		{Code: "93", Name: "Provence-Alpes-Côte d'Azur", Registered: 80, ComputedAt: computedAt},
	}

	require.NoError(t, writer.PublishResults(ctx, results))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make(map[string]domain.RegionResult, len(results))
	headers := make(map[string]map[string]string, len(results))
	for len(received) < len(results) {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from sink topic")

		var res domain.RegionResult
		require.NoError(t, json.Unmarshal(msg.Value, &res))
		received[string(msg.Key)] = res

		h := make(map[string]string, len(msg.Headers))
		for _, hdr := range msg.Headers {
			h[hdr.Key] = string(hdr.Value)
		}
		headers[string(msg.Key)] = h
	}

	ara, ok := received["84"]
	require.True(t, ok, "result keyed by region code")
	assert.Equal(t, "Auvergne-Rhône-Alpes", ara.Name)
	require.NotNil(t, ara.Ratio)
	assert.InDelta(t, ratio, *ara.Ratio, 1e-12)

	paca := received["93"]
	assert.Nil(t, paca.Ratio, "undefined ratio arrives as null")

	assert.Equal(t, "mainland", headers["84"]["scope"])
	assert.Equal(t, computedAt.Format(time.RFC3339), headers["84"]["computed_at"])
}
