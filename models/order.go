package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusPickedUp  OrderStatus = "picked-up"
	StatusOnTheWay  OrderStatus = "on-the-way"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// StatusSequence is the forward path every order follows; cancelled sits outside it.
var StatusSequence = []OrderStatus{
	StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusPickedUp, StatusOnTheWay, StatusDelivered,
}

// Rank returns the position of s in StatusSequence, or -1 for cancelled and unknown values.
func (s OrderStatus) Rank() int {
	for i, status := range StatusSequence {
		if status == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) IsValid() bool {
	return s == StatusCancelled || s.Rank() >= 0
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type PaymentMethod string

const (
	PaymentCard          PaymentMethod = "card"
	PaymentCash          PaymentMethod = "cash"
	PaymentDigitalWallet PaymentMethod = "digital-wallet"
)

func (p PaymentMethod) IsValid() bool {
	return p == PaymentCard || p == PaymentCash || p == PaymentDigitalWallet
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type Order struct {
	ID                    uuid.UUID       `db:"id" json:"id"`
	OrderNumber           string          `db:"order_number" json:"orderNumber"`
	CustomerID            uuid.UUID       `db:"customer_id" json:"customerId"`
	RestaurantID          uuid.UUID       `db:"restaurant_id" json:"restaurantId"`
	DriverID              *uuid.UUID      `db:"driver_id" json:"driverId,omitempty"`
	Items                 []OrderItem     `db:"items" json:"items"`
	Pricing               Pricing         `db:"-" json:"pricing"`
	DeliveryAddress       Address         `db:"delivery_address" json:"deliveryAddress"`
	ContactInfo           ContactInfo     `db:"contact_info" json:"contactInfo"`
	Status                OrderStatus     `db:"status" json:"status"`
	PaymentMethod         PaymentMethod   `db:"payment_method" json:"paymentMethod"`
	PaymentStatus         PaymentStatus   `db:"payment_status" json:"paymentStatus"`
	SpecialInstructions   string          `db:"special_instructions" json:"specialInstructions,omitempty"`
	TrackingHistory       []TrackingEntry `db:"tracking_history" json:"trackingHistory"`
	Rating                *OrderRating    `db:"rating" json:"rating,omitempty"`
	Cancellation          *Cancellation   `db:"cancellation" json:"cancellation,omitempty"`
	Refund                *Refund         `db:"refund" json:"refund,omitempty"`
	EstimatedDeliveryTime time.Time       `db:"estimated_delivery_time" json:"estimatedDeliveryTime"`
	ActualDeliveryTime    *time.Time      `db:"actual_delivery_time" json:"actualDeliveryTime,omitempty"`
	Version               int             `db:"version" json:"version"`
	CreatedAt             time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time       `db:"updated_at" json:"updatedAt"`
}

// ContactInfo is the customer's phone and email as they were when the order was placed.
type ContactInfo struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// OrderItem is a line of an order. Name, Price and Customizations are copies of the
// catalog entry at the time the order was placed.
type OrderItem struct {
	MenuItemID          uuid.UUID             `json:"menuItem"`
	Name                string                `json:"name"`
	Price               decimal.Decimal       `json:"price"`
	Quantity            int                   `json:"quantity"`
	Customizations      []CustomizationOption `json:"customizations"`
	SpecialInstructions string                `json:"specialInstructions,omitempty"`
	Subtotal            decimal.Decimal       `json:"subtotal"`
}

type Pricing struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	ServiceFee  decimal.Decimal `json:"serviceFee"`
	Discount    decimal.Decimal `json:"discount"`
	Tip         decimal.Decimal `json:"tip"`
	Total       decimal.Decimal `json:"total"`
}

// Balanced reports whether Total matches its components.
func (p Pricing) Balanced() bool {
	sum := p.Subtotal.Add(p.Tax).Add(p.DeliveryFee).Add(p.ServiceFee).Add(p.Tip).Sub(p.Discount)
	return sum.Equal(p.Total)
}

type TrackingEntry struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Note      string      `json:"note,omitempty"`
	ActorID   uuid.UUID   `json:"actorId"`
}

type OrderRating struct {
	Food     int       `json:"food"`
	Delivery int       `json:"delivery"`
	Overall  int       `json:"overall"`
	Comment  string    `json:"comment,omitempty"`
	RatedAt  time.Time `json:"ratedAt"`
}

type Cancellation struct {
	Reason        string    `json:"reason,omitempty"`
	CancelledBy   Role      `json:"cancelledBy"`
	CancelledByID uuid.UUID `json:"cancelledById"`
	CancelledAt   time.Time `json:"cancelledAt"`
}

type Refund struct {
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason,omitempty"`
	RefundedBy uuid.UUID       `json:"refundedBy"`
	RefundedAt time.Time       `json:"refundedAt"`
}

type OrderStats struct {
	TotalOrders       int             `json:"totalOrders"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
	PendingOrders     int             `json:"pendingOrders"`
	ConfirmedOrders   int             `json:"confirmedOrders"`
	DeliveredOrders   int             `json:"deliveredOrders"`
	CancelledOrders   int             `json:"cancelledOrders"`
}
