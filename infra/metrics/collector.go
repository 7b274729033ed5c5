package metrics

import (
	"context"

	"github.com/kilianp07/fleetcast/core/forecast"
	coremetrics "github.com/kilianp07/fleetcast/core/metrics"
	"github.com/kilianp07/fleetcast/infra/logger"
	"github.com/kilianp07/fleetcast/internal/eventbus"
)

// StartEventCollector subscribes to the forecast event bus and records every
// event on sink. It stops when the context is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[forecast.Event], sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	log := logger.New("metrics-collector")
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
				if err := sink.RecordForecast(ev); err != nil {
					log.Warnf("record forecast %s: %v", ev.RequestID, err)
				}
			}
		}
	}()
}
