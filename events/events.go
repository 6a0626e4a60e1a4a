// Package events announces order lifecycle changes to other systems. Delivery is best
// effort: callers log publish failures and carry on.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ray-remotestate/foodie/config"
	"github.com/ray-remotestate/foodie/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Type string

const (
	OrderCreated        Type = "created"
	OrderStatusChanged  Type = "status_changed"
	OrderCancelled      Type = "cancelled"
	OrderRated          Type = "rated"
	OrderRefunded       Type = "refunded"
	OrderDriverAssigned Type = "driver_assigned"
	OrderDeleted        Type = "deleted"
)

type OrderEvent struct {
	Type         Type               `json:"type"`
	OrderID      uuid.UUID          `json:"orderId"`
	OrderNumber  string             `json:"orderNumber"`
	CustomerID   uuid.UUID          `json:"customerId"`
	RestaurantID uuid.UUID          `json:"restaurantId"`
	Status       models.OrderStatus `json:"status"`
	Total        decimal.Decimal    `json:"total"`
	OccurredAt   time.Time          `json:"occurredAt"`
}

func NewOrderEvent(t Type, order *models.Order) OrderEvent {
	return OrderEvent{
		Type:         t,
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		CustomerID:   order.CustomerID,
		RestaurantID: order.RestaurantID,
		Status:       order.Status,
		Total:        order.Pricing.Total,
		OccurredAt:   order.UpdatedAt,
	}
}

// RoutingKey is the topic routing key, e.g. order.status_changed.
func (e OrderEvent) RoutingKey() string {
	return "order." + string(e.Type)
}

type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, OrderEvent) error { return nil }
func (Noop) Close() error { return nil }

// New builds the publisher selected by cfg.Driver.
func New(cfg config.Events, log logrus.FieldLogger) (Publisher, error) {
	switch cfg.Driver {
	case "", "none":
		return Noop{}, nil
	case "rabbitmq":
		return DialRabbit(cfg.RabbitMQURL, cfg.Exchange, log)
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	}
	return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
}
