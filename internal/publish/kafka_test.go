package publish

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodwatch/floodwatch/internal/geo"
	"github.com/floodwatch/floodwatch/internal/report"
	"github.com/floodwatch/floodwatch/internal/risk"
	"github.com/floodwatch/floodwatch/internal/snapshot"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafkago.Message
	calls  int
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var generatedAt = time.Date(2026, 8, 2, 4, 30, 0, 0, time.UTC)

func testSnapshot(state string, c risk.Classification) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Region:         geo.Region{State: state, District: geo.UnknownDistrict, Country: geo.DefaultCountry},
		Classification: c,
		WaterLevel:     risk.WaterLevel{Meters: 3.2, Synthetic: true},
		ComputedAt:     generatedAt.Add(-time.Second),
	}
}

func TestSerializeToMessage(t *testing.T) {
	r := report.Build(testSnapshot("Assam", risk.ClassificationHigh), generatedAt)

	msg, err := serializeToMessage(r)
	require.NoError(t, err)

	assert.Equal(t, []byte("Assam"), msg.Key)
	parsed, err := report.Parse(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, risk.ClassificationHigh, parsed.RiskClassification)

	require.Len(t, msg.Headers, 4)
	assert.Equal(t, HeaderClassification, msg.Headers[0].Key)
	assert.Equal(t, []byte("HIGH"), msg.Headers[0].Value)
	assert.Equal(t, []byte(report.Version), msg.Headers[1].Value)
	assert.Equal(t, []byte(generatedAt.Format(time.RFC3339)), msg.Headers[2].Value)
	assert.Equal(t, []byte("true"), msg.Headers[3].Value)
}

func TestKafkaSink_Write(t *testing.T) {
	w := &fakeWriter{}
	sink := newKafkaSink(w, clockwork.NewFakeClockAt(generatedAt), zerolog.Nop())

	err := sink.Write(context.Background(), []*snapshot.Snapshot{
		testSnapshot("Bihar", risk.ClassificationCritical),
		testSnapshot("Kerala", risk.ClassificationModerate),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, w.calls, "one batch per write")
	require.Len(t, w.msgs, 2)
	assert.Equal(t, []byte("Bihar"), w.msgs[0].Key)
	assert.Equal(t, []byte("Kerala"), w.msgs[1].Key)

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestKafkaSink_WriteEmpty(t *testing.T) {
	w := &fakeWriter{}
	sink := newKafkaSink(w, nil, zerolog.Nop())

	require.NoError(t, sink.Write(context.Background(), nil))
	assert.Equal(t, 0, w.calls)
}

func TestKafkaSink_WriteError(t *testing.T) {
	brokerDown := errors.New("dial tcp: connection refused")
	sink := newKafkaSink(&fakeWriter{err: brokerDown}, nil, zerolog.Nop())

	err := sink.Write(context.Background(), []*snapshot.Snapshot{testSnapshot("Assam", risk.ClassificationLow)})
	assert.ErrorIs(t, err, brokerDown)
}
