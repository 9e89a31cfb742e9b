package events

import (
	"context"
	"testing"

	"github.com/brcommerce/pagbank-gateway/pkg/enums"
)

func TestDispatcherFansOutInOrder(t *testing.T) {
	d := NewDispatcher()
	var seen []string

	d.Subscribe(TypeOrderPaid, func(_ context.Context, payload any) {
		event := payload.(OrderEvent)
		if event.OrderID != 42 {
			t.Fatalf("unexpected order id %d", event.OrderID)
		}
		seen = append(seen, "first")
	})
	d.Subscribe(TypeOrderPaid, func(_ context.Context, _ any) {
		seen = append(seen, "second")
	})
	d.Subscribe(TypeOrderFailed, func(_ context.Context, _ any) {
		t.Fatal("handler for another type must not fire")
	})

	d.Publish(context.Background(), TypeOrderPaid, OrderEvent{
		OrderID:      42,
		ChargeStatus: enums.ChargeStatusPaid,
		OrderStatus:  enums.OrderStatusProcessing,
	})

	if len(seen) != 2 || seen[0] != "first" || seen[1] != "second" {
		t.Fatalf("unexpected handler order %v", seen)
	}
}

func TestDispatcherNilSafety(t *testing.T) {
	var d *Dispatcher
	d.Subscribe(TypeOrderPaid, func(context.Context, any) {})
	d.Publish(context.Background(), TypeOrderPaid, nil)

	real := NewDispatcher()
	real.Subscribe(TypeOrderPaid, nil)
	real.Publish(context.Background(), TypeOrderPaid, nil)
}
