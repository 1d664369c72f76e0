package fanout

import (
	"context"

	"streambet/events"
)

const (
	MessageTypeChat          = "chat_message"
	MessageTypeChatDeleted   = "chat_message_deleted"
	MessageTypeMarketSettled = "market_settled"
	MessageTypeMarketUpdated = "market_updated"
)

// Subscribe broadcasts chat and market events to the clients of the affected market
func Subscribe(bus *events.Bus, registry *Registry) {
	bus.Subscribe(events.EventTypeChatMessageCreated, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.ChatMessageCreatedEvent); ok {
			registry.Broadcast(e.MarketID, Message{Type: MessageTypeChat, Data: e})
		}
	})

	bus.Subscribe(events.EventTypeChatMessageDeleted, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.ChatMessageDeletedEvent); ok {
			registry.Broadcast(e.MarketID, Message{Type: MessageTypeChatDeleted, Data: e})
		}
	})

	bus.Subscribe(events.EventTypeMarketSettled, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.MarketSettledEvent); ok {
			registry.Broadcast(e.MarketID, Message{Type: MessageTypeMarketSettled, Data: e})
		}
	})

	bus.Subscribe(events.EventTypeMarketUpdated, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.MarketUpdatedEvent); ok {
			registry.Broadcast(e.MarketID, Message{Type: MessageTypeMarketUpdated, Data: e})
		}
	})
}
