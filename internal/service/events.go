package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Hizbul38/book-porter-api/internal/model"
)

// Lifecycle events are fire-and-forget: the order mutation has already
// committed, the audit trail catches up asynchronously.
func publishOrderEvent(ctx context.Context, ch *amqp.Channel, ev model.OrderEvent) {
	if ch == nil {
		return
	}
	body, _ := json.Marshal(ev)
	_ = ch.PublishWithContext(ctx, "", "order-events", false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
}

func newOrderEvent(t model.OrderEventType, o *model.Order) model.OrderEvent {
	return model.OrderEvent{
		ID:         uuid.New(),
		Type:       t,
		OrderID:    o.ID,
		BookID:     o.BookID,
		UserID:     o.UserID,
		Status:     o.Status,
		Payment:    o.Payment,
		OccurredAt: time.Now().UTC(),
	}
}
