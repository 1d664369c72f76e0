package events

import (
	"context"
	"sync"
	"time"

	"streambet/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange      EventType = "balance_change"
	EventTypeUserCreated        EventType = "user_created"
	EventTypeWagerPlaced        EventType = "wager_placed"
	EventTypeMarketSettled      EventType = "market_settled"
	EventTypeMarketUpdated      EventType = "market_updated"
	EventTypeChatMessageCreated EventType = "chat_message_created"
	EventTypeChatMessageDeleted EventType = "chat_message_deleted"
)

// AllEventTypes lists every event type emitted by the services
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeBalanceChange,
		EventTypeUserCreated,
		EventTypeWagerPlaced,
		EventTypeMarketSettled,
		EventTypeMarketUpdated,
		EventTypeChatMessageCreated,
		EventTypeChatMessageDeleted,
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a wallet balance change recorded in the ledger
type BalanceChangeEvent struct {
	UserID          uuid.UUID              `json:"user_id"`
	MarketID        *uuid.UUID             `json:"market_id,omitempty"`
	OldBalance      int64                  `json:"old_balance"`
	NewBalance      int64                  `json:"new_balance"`
	TransactionType models.TransactionType `json:"transaction_type"`
	ChangeAmount    int64                  `json:"change_amount"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// UserCreatedEvent represents a new user creation
type UserCreatedEvent struct {
	UserID         uuid.UUID `json:"user_id"`
	TelegramID     int64     `json:"telegram_id"`
	Username       string    `json:"username"`
	InitialBalance int64     `json:"initial_balance"`
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// WagerPlacedEvent represents an admitted wager
type WagerPlacedEvent struct {
	WagerID   uuid.UUID `json:"wager_id"`
	UserID    uuid.UUID `json:"user_id"`
	MarketID  uuid.UUID `json:"market_id"`
	OutcomeID uuid.UUID `json:"outcome_id"`
	Amount    int64     `json:"amount"`
}

func (e WagerPlacedEvent) Type() EventType {
	return EventTypeWagerPlaced
}

// MarketSettledEvent represents a market that reached FINISHED through settlement
type MarketSettledEvent struct {
	MarketID         uuid.UUID `json:"market_id"`
	WinningOutcomeID uuid.UUID `json:"winning_outcome_id"`
	TotalPool        int64     `json:"total_pool"`
	TotalPaid        int64     `json:"total_paid"`
	Remainder        int64     `json:"remainder"`
	Refunded         bool      `json:"refunded"`
	WagerCount       int       `json:"wager_count"`
}

func (e MarketSettledEvent) Type() EventType {
	return EventTypeMarketSettled
}

// MarketUpdatedEvent represents an administrative change to a market
type MarketUpdatedEvent struct {
	MarketID        uuid.UUID           `json:"market_id"`
	Status          models.MarketStatus `json:"status"`
	BettingLockedAt time.Time           `json:"betting_locked_at"`
}

func (e MarketUpdatedEvent) Type() EventType {
	return EventTypeMarketUpdated
}

// ChatMessageCreatedEvent represents a posted chat message
type ChatMessageCreatedEvent struct {
	MessageID uuid.UUID `json:"message_id"`
	MarketID  uuid.UUID `json:"market_id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func (e ChatMessageCreatedEvent) Type() EventType {
	return EventTypeChatMessageCreated
}

// ChatMessageDeletedEvent represents a soft-deleted chat message
type ChatMessageDeletedEvent struct {
	MessageID uuid.UUID `json:"message_id"`
	MarketID  uuid.UUID `json:"market_id"`
}

func (e ChatMessageDeletedEvent) Type() EventType {
	return EventTypeChatMessageDeleted
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds the handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes() {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event")

	// handlers run asynchronously so a slow subscriber cannot stall a commit
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until it commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Pending returns the events stashed so far
func (b *TransactionalBus) Pending() []Event {
	return b.pending
}

// Flush emits the stashed events; called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events")

	// the transaction context may already be done
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops stashed events after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
