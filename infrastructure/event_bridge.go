package infrastructure

import (
	"context"

	"streambet/events"

	log "github.com/sirupsen/logrus"
)

// ExternalPublisher forwards committed events out of the process
type ExternalPublisher interface {
	Publish(event events.Event) error
}

// BridgeEvents forwards every event emitted on the bus to the external publisher.
// Publish failures are logged and never reach the service that raised the event.
func BridgeEvents(bus *events.Bus, publisher ExternalPublisher) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		if err := publisher.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Warn("Failed to forward event to message bus")
		}
	})
}
