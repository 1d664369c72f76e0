package infrastructure

import (
	"fmt"

	"streambet/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeBalanceChange:
		return "users.balance_changed"
	case events.EventTypeUserCreated:
		return "users.created"
	case events.EventTypeWagerPlaced:
		return "betting.placed"
	case events.EventTypeMarketSettled:
		return "markets.settled"
	case events.EventTypeMarketUpdated:
		return "markets.updated"
	case events.EventTypeChatMessageCreated:
		return "chat.message_created"
	case events.EventTypeChatMessageDeleted:
		return "chat.message_deleted"
	default:
		return fmt.Sprintf("unknown.%s", event.Type())
	}
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	switch subject {
	case "users.balance_changed":
		return events.EventTypeBalanceChange
	case "users.created":
		return events.EventTypeUserCreated
	case "betting.placed":
		return events.EventTypeWagerPlaced
	case "markets.settled":
		return events.EventTypeMarketSettled
	case "markets.updated":
		return events.EventTypeMarketUpdated
	case "chat.message_created":
		return events.EventTypeChatMessageCreated
	case "chat.message_deleted":
		return events.EventTypeChatMessageDeleted
	default:
		return events.EventType(subject)
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"users.balance_changed",
		"users.created",
		"betting.placed",
		"markets.settled",
		"markets.updated",
		"chat.message_created",
		"chat.message_deleted",
	}
}
