package events

import (
	"context"
	"sync"

	"github.com/brcommerce/pagbank-gateway/pkg/enums"
)

// Type names a domain event.
type Type string

const (
	TypeOrderPaid       Type = "order.paid"
	TypeOrderOnHold     Type = "order.on_hold"
	TypeOrderFailed     Type = "order.failed"
	TypeOrderRefunded   Type = "order.refunded"
	TypeChargeDeclined  Type = "charge.declined"
	TypeRenewalFailed   Type = "subscription.renewal_failed"
	TypeRenewalComplete Type = "subscription.renewed"
)

// OrderEvent carries a status transition on an order.
type OrderEvent struct {
	OrderID      int64
	ChargeID     string
	ChargeStatus enums.ChargeStatus
	OrderStatus  enums.OrderStatus
	Gateway      enums.GatewayID
}

// SubscriptionEvent carries the result of a renewal attempt.
type SubscriptionEvent struct {
	SubscriptionID string
	OrderID        int64
	FailureCount   int
}

// Handler consumes a published event. Handler errors stay with the handler;
// publication never fails the publishing operation.
type Handler func(ctx context.Context, payload any)

// Dispatcher is a minimal in-process pub/sub fabric. Order transitions and
// renewal outcomes fan out through it so side effects (notes, mail,
// inventory) stay out of the payment path.
type Dispatcher struct {
	mtx      sync.RWMutex
	handlers map[Type][]Handler
}

// NewDispatcher builds an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[Type][]Handler)}
}

// Subscribe registers a handler for the event type.
func (d *Dispatcher) Subscribe(eventType Type, handler Handler) {
	if d == nil || handler == nil {
		return
	}
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// Publish invokes every handler registered for the event type, in order, on
// the calling goroutine.
func (d *Dispatcher) Publish(ctx context.Context, eventType Type, payload any) {
	if d == nil {
		return
	}
	d.mtx.RLock()
	handlers := append([]Handler(nil), d.handlers[eventType]...)
	d.mtx.RUnlock()
	for _, handler := range handlers {
		handler(ctx, payload)
	}
}
