package events

import (
	"context"
	"sync"

	"luckybot/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange       EventType = "balance_change"
	EventTypeAccountCreated      EventType = "account_created"
	EventTypeDepositConfirmed    EventType = "deposit_confirmed"
	EventTypePacketClaimed       EventType = "packet_claimed"
	EventTypePacketRefunded      EventType = "packet_refunded"
	EventTypeWithdrawalRequested EventType = "withdrawal_requested"
	EventTypeWithdrawalSettled   EventType = "withdrawal_settled"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	DiscordID  int64
	OldBalance int64
	NewBalance int64
	Kind       models.EntryKind
	Amount     int64
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// AccountCreatedEvent represents a new account creation
type AccountCreatedEvent struct {
	DiscordID   int64
	Username    string
	SignupBonus int64
}

func (e AccountCreatedEvent) Type() EventType {
	return EventTypeAccountCreated
}

// DepositConfirmedEvent represents a deposit order matched to an external transfer
type DepositConfirmedEvent struct {
	OrderID   int64
	DiscordID int64
	Amount    int64
	TxHash    string
}

func (e DepositConfirmedEvent) Type() EventType {
	return EventTypeDepositConfirmed
}

// PacketClaimedEvent represents one successful claim against a packet
type PacketClaimedEvent struct {
	PacketID  string
	SenderID  int64
	DiscordID int64
	Amount    int64
	Boom      bool
	Penalty   int64
	Finished  bool
}

func (e PacketClaimedEvent) Type() EventType {
	return EventTypePacketClaimed
}

// PacketRefundedEvent represents an expired packet's remainder returned to its sender
type PacketRefundedEvent struct {
	PacketID string
	SenderID int64
	Amount   int64
}

func (e PacketRefundedEvent) Type() EventType {
	return EventTypePacketRefunded
}

// WithdrawalRequestedEvent represents a new withdrawal with funds frozen
type WithdrawalRequestedEvent struct {
	RequestID     int64
	DiscordID     int64
	Amount        int64
	WalletAddress string
}

func (e WithdrawalRequestedEvent) Type() EventType {
	return EventTypeWithdrawalRequested
}

// WithdrawalSettledEvent represents an admin decision on a withdrawal
type WithdrawalSettledEvent struct {
	RequestID int64
	DiscordID int64
	Amount    int64
	Approved  bool
	Refunded  bool
}

func (e WithdrawalSettledEvent) Type() EventType {
	return EventTypeWithdrawalSettled
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

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make([]Handler, 0)
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking; notification delivery
	// is best effort and must never hold up or roll back financial state
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

// TransactionalBus holds pending events coupled to a unit of work.
// Events are flushed to the underlying bus only after the database commit.
type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

// NewTransactionalBus creates a transactional bus wrapping the real one
func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes an event until the transaction commits
func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events; called after a successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Events outlive the transaction context that produced them
	eventCtx := context.Background()

	for _, ev := range b.pending {
		log.WithFields(log.Fields{
			"eventType": ev.Type(),
		}).Debug("Emitting event after commit")
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events; called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
