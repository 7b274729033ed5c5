package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetcast/core/artifact"
	"github.com/kilianp07/fleetcast/core/encoder"
	"github.com/kilianp07/fleetcast/core/forecast"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/core/prediction"
	"github.com/kilianp07/fleetcast/internal/eventbus"
)

type message struct {
	topic   string
	payload []byte
}

type memPublisher struct {
	mu   sync.Mutex
	msgs []message
	sent chan struct{}
}

func newMemPublisher() *memPublisher { return &memPublisher{sent: make(chan struct{}, 16)} }

func (m *memPublisher) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	m.msgs = append(m.msgs, message{topic, payload})
	m.mu.Unlock()
	m.sent <- struct{}{}
	return nil
}

func (m *memPublisher) last(t *testing.T) message {
	t.Helper()
	select {
	case <-m.sent:
	case <-time.After(time.Second):
		t.Fatal("nothing published")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.msgs[len(m.msgs)-1]
}

func testForecaster(t *testing.T) forecast.Forecaster {
	t.Helper()
	enc, err := encoder.FromLabels([]string{"1", "2"})
	require.NoError(t, err)
	b, err := artifact.NewBundle(enc, prediction.NewJointBackend(prediction.JointFunc(func(r model.FeatureRow) (float64, float64) {
		return float64(r.Year % 10), float64(r.Month)
	})), "v1")
	require.NoError(t, err)
	return forecast.New(b, forecast.Config{})
}

func TestForecastPublisher_Topics(t *testing.T) {
	p := NewForecastPublisher(newMemPublisher(), "fleet/")
	assert.Equal(t, "fleet/forecast/all", p.ForecastTopic(""))
	assert.Equal(t, "fleet/forecast/2", p.ForecastTopic("2"))
	assert.Equal(t, "fleet/forecast/a_b_c", p.ForecastTopic("a/b+c"))
	assert.Equal(t, "fleet/errors", p.ErrorTopic())
}

func TestForecastPublisher_FromBus(t *testing.T) {
	mem := newMemPublisher()
	p := NewForecastPublisher(mem, "fleet")
	bus := eventbus.NewTyped[forecast.Event]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx, bus)

	f := forecast.NewObserved(testForecaster(t), bus)
	_, err := f.Forecast(forecast.WithRequestID(ctx, "r1"), model.Period{Year: 2025, Month: 10}, 3, "Bus 2")
	require.NoError(t, err)

	msg := mem.last(t)
	assert.Equal(t, "fleet/forecast/2", msg.topic)
	var got struct {
		RequestID string `json:"request_id"`
		Forecast  struct {
			Order   []string `json:"order"`
			Periods map[string]struct {
				Prediction model.PredictionResult `json:"prediction"`
			} `json:"periods"`
		} `json:"forecast"`
	}
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, "r1", got.RequestID)
	assert.Equal(t, []string{"2025-10", "2025-11", "2025-12"}, got.Forecast.Order)
	assert.Equal(t, model.PredictionResult{Trips: 5, Passengers: 12}, got.Forecast.Periods["2025-12"].Prediction)
}

func TestForecastPublisher_IgnoresFailures(t *testing.T) {
	mem := newMemPublisher()
	p := NewForecastPublisher(mem, "fleet")
	p.Handle(forecast.Event{Err: errors.New("boom")})
	p.Handle(forecast.Event{Kind: forecast.KindDays})
	assert.Empty(t, mem.msgs)
}

func TestRequestHandler(t *testing.T) {
	mem := newMemPublisher()
	h := NewRequestHandler(testForecaster(t), NewForecastPublisher(mem, "fleet"), 5)
	h.now = func() time.Time { return time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC) }

	h.Process([]byte(`{"request_id":"q1","entity":"all"}`))
	msg := mem.last(t)
	assert.Equal(t, "fleet/response/q1", msg.topic)
	var ok ForecastMessage
	require.NoError(t, json.Unmarshal(msg.payload, &ok))
	assert.Equal(t, "q1", ok.RequestID)

	h.Process([]byte(`{"request_id":"q2","year":2025,"month":1,"horizon":2,"entity":"7","reply_to":"client/inbox"}`))
	msg = mem.last(t)
	assert.Equal(t, "client/inbox", msg.topic)
	var fail ErrorMessage
	require.NoError(t, json.Unmarshal(msg.payload, &fail))
	assert.Equal(t, forecast.OutcomeUnknownEntity, fail.Code)
	assert.Equal(t, []string{"1", "2"}, fail.KnownLabels)

	h.Process([]byte(`not json`))
	msg = mem.last(t)
	assert.Equal(t, "fleet/errors", msg.topic)
}
