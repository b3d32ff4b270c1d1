package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderEventType string

const (
	OrderEventPlaced        OrderEventType = "order.placed"
	OrderEventCancelled     OrderEventType = "order.cancelled"
	OrderEventStatusChanged OrderEventType = "order.status_changed"
)

// OrderEvent is published after an order change has been committed
type OrderEvent struct {
	Type       OrderEventType  `json:"type"`
	OrderID    uint            `json:"order_id"`
	Number     string          `json:"number"`
	Status     OrderStatus     `json:"status"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func NewOrderEvent(eventType OrderEventType, order *Order) OrderEvent {
	return OrderEvent{
		Type:       eventType,
		OrderID:    order.ID,
		Number:     order.Number,
		Status:     order.Status,
		GrandTotal: order.GrandTotal,
		OccurredAt: time.Now().UTC(),
	}
}
