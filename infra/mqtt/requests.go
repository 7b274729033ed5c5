package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/fleetcast/core/calendar"
	"github.com/kilianp07/fleetcast/core/forecast"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/infra/logger"
)

// Request is the payload accepted on <prefix>/request. Year and Month default
// to the current month and Horizon to the configured default. Replies go to
// ReplyTo or <prefix>/response/<request_id>.
type Request struct {
	RequestID string `json:"request_id"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Horizon   int    `json:"horizon"`
	Entity    string `json:"entity"`
	ReplyTo   string `json:"reply_to"`
}

// RequestHandler answers forecast requests received over MQTT.
type RequestHandler struct {
	f              forecast.Forecaster
	pub            *ForecastPublisher
	defaultHorizon int
	timeout        time.Duration
	now            func() time.Time
	log            logger.Logger
}

// NewRequestHandler returns a handler replying through pub.
func NewRequestHandler(f forecast.Forecaster, pub *ForecastPublisher, defaultHorizon int) *RequestHandler {
	if defaultHorizon <= 0 {
		defaultHorizon = 1
	}
	return &RequestHandler{
		f:              f,
		pub:            pub,
		defaultHorizon: defaultHorizon,
		timeout:        10 * time.Second,
		now:            time.Now,
		log:            logger.New("mqtt_requests"),
	}
}

// Topic is the request topic for prefix.
func (h *RequestHandler) Topic() string { return h.pub.prefix + "/request" }

// ResponseTopic is where replies go when a request names no reply_to.
func (h *RequestHandler) ResponseTopic(requestID string) string {
	return h.pub.prefix + "/response/" + topicSafe(requestID)
}

// OnMessage implements paho.MessageHandler.
func (h *RequestHandler) OnMessage(_ paho.Client, msg paho.Message) {
	h.Process(msg.Payload())
}

// Process decodes one request, runs the forecast and publishes the reply.
func (h *RequestHandler) Process(payload []byte) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		h.log.Warnf("invalid request payload: %v", err)
		_ = h.pub.PublishError("", "", fmt.Errorf("decode request: %w", err))
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.ReplyTo == "" {
		req.ReplyTo = h.ResponseTopic(req.RequestID)
	}
	anchor := calendar.Current(h.now)
	if req.Year != 0 || req.Month != 0 {
		anchor = model.Period{Year: req.Year, Month: req.Month}
	}
	horizon := req.Horizon
	if horizon == 0 {
		horizon = h.defaultHorizon
	}

	ctx, cancel := context.WithTimeout(forecast.WithRequestID(context.Background(), req.RequestID), h.timeout)
	defer cancel()
	res, err := h.f.Forecast(ctx, anchor, horizon, req.Entity)
	if err != nil {
		if perr := h.pub.PublishError(req.RequestID, req.ReplyTo, err); perr != nil {
			h.log.Errorf("publish error reply %s: %v", req.RequestID, perr)
		}
		return
	}
	if err := h.pub.PublishResult(req.RequestID, forecast.KindForecast, req.ReplyTo, res); err != nil {
		h.log.Errorf("publish reply %s: %v", req.RequestID, err)
	}
}
