//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bas-flights/telegram-etl/internal/adapter/kafka"
	"github.com/bas-flights/telegram-etl/internal/adapter/regions"
	"github.com/bas-flights/telegram-etl/internal/adapter/sqlite"
	"github.com/bas-flights/telegram-etl/internal/config"
	"github.com/bas-flights/telegram-etl/internal/domain"
	"github.com/bas-flights/telegram-etl/internal/ingest"
	"github.com/bas-flights/telegram-etl/internal/observability"
	"github.com/bas-flights/telegram-etl/internal/pipeline"
)

const (
	testSourceTopic = "test-source"
	testSinkTopic   = "test-sink"

	flightBatch = `(SHR-ZZZZZ
-ZZZZ0705
-M0025/M0027 /ZONA R0,5 4408N04308E/
-DEP/5957N02905E DEST/440846N0430829E DOF/250201 OPR/ООО АЭРОСКАН REG/0J02194 TYP/BLA SID/7772251137)
-TITLE IDEP
-SID 7772251137
-ADD 250201
-ATD 0705
-ADEPZ 5957N02905E
-TITLE IARR
-SID 7772251137
-ADA 250201
-ATA 1600
-ADARRZ 440846N0430829E`

	centerBatch = "Ростовский ЗЦ ЕС ОрВД\n1\t(SHR-ZZZZZ -DEP/4700N04000E DOF/250203 OPR/ИП Петров SID/7772251138)\t\t"
)

// publishedFlight holds a deserialized message read from the sink topic.
type publishedFlight struct {
	Flight  domain.EnrichedFlight
	Key     string
	Headers map[string]string
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedFlight {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var flight domain.EnrichedFlight
	require.NoError(t, json.Unmarshal(msg.Value, &flight), "unmarshal sink message")

	return publishedFlight{Flight: flight, Key: string(msg.Key), Headers: headers}
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}
}

func sinkConsumer(broker string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (extractor)
// and kafka.Writer (loader) round-trip a telegram batch through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-reader")

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("spb-2025-02-01"),
		Value: []byte(flightBatch),
	}))

	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawEvent
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("spb-2025-02-01"), raw.Key)
	assert.Equal(t, []byte(flightBatch), raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	svc := ingest.NewService(regions.NewBoundingBoxLookup(nil), discardLogger(), observability.NewMetricsForTesting())
	flights, err := pipeline.NewTransformer(svc, discardLogger()).Transform(ctx, raw)
	require.NoError(t, err)
	require.Len(t, flights, 1)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, flights))

	consumer := sinkConsumer(broker)
	t.Cleanup(func() { _ = consumer.Close() })

	pf := readPublished(ctx, t, consumer)
	assert.Equal(t, "7772251137", pf.Key)
	assert.Equal(t, "arrived", pf.Headers["status"])
	assert.Equal(t, flights[0].BatchID, pf.Headers["batch_id"])
	_, err = time.Parse(time.RFC3339, pf.Headers["processed_at"])
	assert.NoError(t, err, "processed_at should be valid RFC3339")

	assert.Equal(t, "Ленинградская область", pf.Flight.DepartureRegion)
	require.NotNil(t, pf.Flight.DurationMinutes)
	assert.Equal(t, 535, *pf.Flight.DurationMinutes)
}

// TestPipelineEndToEnd wires Reader → Transformer → (SQLite, Writer) against
// a real broker, with a poison message between two valid batches.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-pipeline")

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("telegrams"), Value: []byte(flightBatch)},
		kafkago.Message{Key: []byte("poison"), Value: []byte{0xff, 0xfe, 0xfd}},
		kafkago.Message{Key: []byte("center"), Value: []byte(centerBatch)},
	))

	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	svc := ingest.NewService(regions.NewBoundingBoxLookup(nil), discardLogger(), metrics)
	p := pipeline.New(reader, pipeline.NewTransformer(svc, discardLogger()),
		pipeline.Loaders{store, writer}, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(broker)
	t.Cleanup(func() { _ = consumer.Close() })

	received := map[string]publishedFlight{}
	for len(received) < 2 {
		pf := readPublished(ctx, t, consumer)
		received[pf.Key] = pf
	}

	// Nothing else should arrive: the poison message was skipped.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no third message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)

	require.Contains(t, received, "7772251137")
	require.Contains(t, received, "7772251138")
	assert.Equal(t, "Ростовский ЗЦ ЕС ОрВД", received["7772251138"].Flight.CenterName)
	assert.Equal(t, "Ростовская область", received["7772251138"].Flight.DepartureRegion)

	stored, err := store.List(ctx, sqlite.Filter{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}
