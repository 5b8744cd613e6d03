package kafka

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	batches  [][]kafkago.Message
	failures int
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("broker unavailable")
	}
	f.batches = append(f.batches, msgs)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testRecords(n int) []domain.CanonicalRecord {
	recs := make([]domain.CanonicalRecord, n)
	for i := range recs {
		recs[i] = domain.CanonicalRecord{
			GridOperator: "Endesa",
			SubstationID: string(rune('A' + i)),
			ColorBucket:  domain.BucketGood,
		}
	}
	return recs
}

func newTestPublisher(w messageWriter, batchSize int) *Publisher {
	p := newPublisher(w, batchSize, slog.New(slog.DiscardHandler))
	p.backoff = 0
	return p
}

func TestSerializeToMessage(t *testing.T) {
	runID := uuid.MustParse("6f1c1f0e-8a0b-4a57-9b64-0f1f1e0d2c3b")
	v := 66.0
	rec := domain.CanonicalRecord{
		GridOperator:    "Endesa",
		SubstationID:    "AL-01",
		SubstationName:  "ALMERIA",
		VoltageKV:       &v,
		CapTotal:        100,
		AvailabilityPct: 25,
		ColorBucket:     domain.BucketLow,
	}

	msg, err := serializeToMessage(runID, rec)
	require.NoError(t, err)

	assert.Equal(t, []byte("Endesa|AL-01"), msg.Key)
	assert.Contains(t, string(msg.Value), `"substation_name":"ALMERIA"`)
	assert.Contains(t, string(msg.Value), `"voltage_kv":66`)
	assert.NotContains(t, string(msg.Value), `"comments"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte(runID.String()), msg.Headers[0].Value)
	assert.Equal(t, "color_bucket", msg.Headers[1].Key)
	assert.Equal(t, []byte("low"), msg.Headers[1].Value)
}

func TestPublish_Batches(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w, 2)

	require.NoError(t, p.Publish(context.Background(), uuid.New(), testRecords(5)))

	require.Len(t, w.batches, 3)
	assert.Len(t, w.batches[0], 2)
	assert.Len(t, w.batches[1], 2)
	assert.Len(t, w.batches[2], 1)
	assert.Equal(t, []byte("Endesa|E"), w.batches[2][0].Key)
}

func TestPublish_RetriesTransientFailure(t *testing.T) {
	w := &fakeWriter{failures: 2}
	p := newTestPublisher(w, 10)

	require.NoError(t, p.Publish(context.Background(), uuid.New(), testRecords(3)))
	require.Len(t, w.batches, 1)
}

func TestPublish_GivesUp(t *testing.T) {
	w := &fakeWriter{failures: maxAttempts}
	p := newTestPublisher(w, 10)

	err := p.Publish(context.Background(), uuid.New(), testRecords(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
	assert.Empty(t, w.batches)
}

func TestPublish_Empty(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w, 10)

	require.NoError(t, p.Publish(context.Background(), uuid.New(), nil))
	assert.Empty(t, w.batches)
}

func TestPublish_CancelledContext(t *testing.T) {
	w := &fakeWriter{failures: 1}
	p := newTestPublisher(w, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, uuid.New(), testRecords(1))
	require.ErrorIs(t, err, context.Canceled)
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newTestPublisher(w, 1).Close())
	assert.True(t, w.closed)
}
