//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("county-aqi-risk-test"),
	)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka: %v", err)
		}
	})
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// observation is an EPA annual row as the collector publishes it.
type observation struct {
	State     string  `json:"State"`
	County    string  `json:"County"`
	Year      int     `json:"Year"`
	MedianAQI float64 `json:"Median AQI"`
	MaxAQI    float64 `json:"Max AQI"`
	Hazardous float64 `json:"Hazardous Days"`
}

// threeCountyYears spreads the canonical three-county example over two years
// with identical values, so the five-year averages are unchanged.
func threeCountyYears() []observation {
	var out []observation
	for _, year := range []int{2022, 2023} {
		out = append(out,
			observation{State: "California", County: "Mono", Year: year, MedianAQI: 300, MaxAQI: 600, Hazardous: 2},
			observation{State: "California", County: "Los Angeles", Year: year, MedianAQI: 40, MaxAQI: 80},
			observation{State: "Texas", County: "Harris", Year: year, MedianAQI: 20, MaxAQI: 30},
		)
	}
	return out
}

func observationMessages(t *testing.T, rows []observation) []kafkago.Message {
	t.Helper()
	msgs := make([]kafkago.Message, 0, len(rows))
	for _, r := range rows {
		payload, err := json.Marshal(r)
		require.NoError(t, err)
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(r.State + "|" + r.County),
			Value: payload,
		})
	}
	return msgs
}
