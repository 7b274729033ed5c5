package forecastlog

import (
	"context"
	"time"

	"github.com/kilianp07/fleetcast/core/forecast"
	"github.com/kilianp07/fleetcast/core/logger"
	"github.com/kilianp07/fleetcast/internal/eventbus"
)

// StartRecorder appends every event published on bus to store until ctx is
// canceled or the bus is closed. The returned channel is closed when the
// recorder has stopped.
func StartRecorder(ctx context.Context, bus *eventbus.TypedBus[forecast.Event], store LogStore, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || store == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				actx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := store.Append(actx, RecordFromEvent(ev)); err != nil && log != nil {
					log.Errorf("append forecast log %s: %v", ev.RequestID, err)
				}
				cancel()
			}
		}
	}()
	return done
}
