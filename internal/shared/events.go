package shared

import (
	"context"
	"time"
)

// Event type names published after successful writes.
const (
	EventProductCreated  = "product.created"
	EventProductUpdated  = "product.updated"
	EventProductDeleted  = "product.deleted"
	EventStockChanged    = "stock.changed"
	EventCustomerCreated = "customer.created"
	EventCustomerUpdated = "customer.updated"
	EventCustomerDeleted = "customer.deleted"
	EventOrderCreated    = "order.created"
	EventOrderUpdated    = "order.updated"
	EventOrderDeleted    = "order.deleted"
	EventOrderStatus     = "order.status"
	EventInvoiceCreated  = "invoice.created"
	EventInvoicePayment  = "invoice.payment"
	EventSettingsUpdated = "settings.updated"
)

// Event describes a committed domain change.
type Event struct {
	Type     string         `json:"type"`
	EntityID string         `json:"entity_id"`
	Data     map[string]any `json:"data,omitempty"`
	At       time.Time      `json:"at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType, entityID string, data map[string]any) Event {
	return Event{Type: eventType, EntityID: entityID, Data: data, At: time.Now().UTC()}
}

// EventPublisher receives committed domain events. Implementations must not block.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event)
}

// Publishers fans an event out to every member.
type Publishers []EventPublisher

// Publish implements EventPublisher.
func (p Publishers) Publish(ctx context.Context, evt Event) {
	for _, pub := range p {
		if pub != nil {
			pub.Publish(ctx, evt)
		}
	}
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, Event) {}
