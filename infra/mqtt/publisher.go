package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/kilianp07/fleetcast/core/forecast"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/infra/logger"
	"github.com/kilianp07/fleetcast/internal/eventbus"
)

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// ForecastMessage is the payload published for a completed forecast.
type ForecastMessage struct {
	RequestID   string                `json:"request_id"`
	Kind        string                `json:"kind"`
	GeneratedAt time.Time             `json:"generated_at"`
	Forecast    *model.ForecastResult `json:"forecast"`
}

// ErrorMessage is the payload published for a failed request.
type ErrorMessage struct {
	RequestID string `json:"request_id"`
	forecast.ErrorInfo
}

// ForecastPublisher publishes forecast results under a topic prefix:
// <prefix>/forecast/<entity> for results and <prefix>/errors for failures.
type ForecastPublisher struct {
	pub    Publisher
	prefix string
	log    logger.Logger
}

// NewForecastPublisher wraps pub.
func NewForecastPublisher(pub Publisher, prefix string) *ForecastPublisher {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &ForecastPublisher{pub: pub, prefix: strings.TrimSuffix(prefix, "/"), log: logger.New("mqtt_publisher")}
}

// ForecastTopic returns the topic results for entity are published on.
func (p *ForecastPublisher) ForecastTopic(entity string) string {
	e := strings.TrimSpace(entity)
	if e == "" {
		e = forecast.DefaultAllSentinel
	}
	return p.prefix + "/forecast/" + topicSafe(e)
}

// ErrorTopic returns the topic failures are published on.
func (p *ForecastPublisher) ErrorTopic() string { return p.prefix + "/errors" }

// PublishResult publishes res on its entity topic, or on replyTo when set.
func (p *ForecastPublisher) PublishResult(requestID, kind, replyTo string, res *model.ForecastResult) error {
	payload, err := json.Marshal(ForecastMessage{RequestID: requestID, Kind: kind, GeneratedAt: time.Now().UTC(), Forecast: res})
	if err != nil {
		return err
	}
	topic := replyTo
	if topic == "" {
		topic = p.ForecastTopic(res.Entity)
	}
	return p.pub.Publish(topic, payload)
}

// PublishError publishes err on the error topic, or on replyTo when set.
func (p *ForecastPublisher) PublishError(requestID, replyTo string, err error) error {
	payload, merr := json.Marshal(ErrorMessage{RequestID: requestID, ErrorInfo: forecast.Describe(err)})
	if merr != nil {
		return merr
	}
	topic := replyTo
	if topic == "" {
		topic = p.ErrorTopic()
	}
	return p.pub.Publish(topic, payload)
}

// Handle publishes successful monthly forecasts carried by ev.
func (p *ForecastPublisher) Handle(ev forecast.Event) {
	if ev.Err != nil || ev.Result == nil {
		return
	}
	if err := p.PublishResult(ev.RequestID, ev.Kind, "", ev.Result); err != nil {
		p.log.Errorf("publish forecast %s: %v", ev.RequestID, err)
	}
}

// Start publishes every event from bus until ctx is canceled or the bus closes.
func (p *ForecastPublisher) Start(ctx context.Context, bus *eventbus.TypedBus[forecast.Event]) {
	if bus == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				p.Handle(ev)
			}
		}
	}()
}

// topicSafe replaces MQTT wildcard and separator characters.
func topicSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', ' ':
			return '_'
		}
		return r
	}, s)
}
