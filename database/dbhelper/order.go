package dbhelper

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/ray-remotestate/foodie/apperr"
	"github.com/ray-remotestate/foodie/database"
	"github.com/ray-remotestate/foodie/models"
)

const orderColumns = `o.id, o.order_number, o.customer_id, o.restaurant_id, o.driver_id, o.items,
	o.subtotal, o.tax, o.delivery_fee, o.service_fee, o.discount, o.tip, o.total,
	o.delivery_address, o.contact_info, o.status, o.payment_method, o.payment_status, o.special_instructions,
	o.tracking_history, o.rating, o.cancellation, o.refund, o.estimated_delivery_time,
	o.actual_delivery_time, o.version, o.created_at, o.updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	var o models.Order
	p := &o.Pricing
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.RestaurantID, &o.DriverID, asJSON(&o.Items),
		&p.Subtotal, &p.Tax, &p.DeliveryFee, &p.ServiceFee, &p.Discount, &p.Tip, &p.Total,
		asJSON(&o.DeliveryAddress), asJSON(&o.ContactInfo), &o.Status, &o.PaymentMethod, &o.PaymentStatus, &o.SpecialInstructions,
		asJSON(&o.TrackingHistory), asJSON(&o.Rating), asJSON(&o.Cancellation), asJSON(&o.Refund),
		&o.EstimatedDeliveryTime, &o.ActualDeliveryTime, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if o.TrackingHistory == nil {
		o.TrackingHistory = []models.TrackingEntry{}
	}
	return &o, nil
}

// OrderStore persists orders for the engine and serves the order listings.
type OrderStore struct {
	DB *sql.DB
}

// CreateOrder inserts the order and credits the customer and restaurant totals in one
// transaction.
func (s OrderStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return database.Tx(ctx, s.DB, func(tx *sql.Tx) error {
		p := order.Pricing
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, order_number, customer_id, restaurant_id, driver_id, items,
				subtotal, tax, delivery_fee, service_fee, discount, tip, total,
				delivery_address, contact_info, status, payment_method, payment_status, special_instructions,
				tracking_history, estimated_delivery_time, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
				$21, $22, $23, $24)`,
			order.ID, order.OrderNumber, order.CustomerID, order.RestaurantID, order.DriverID, asJSON(&order.Items),
			p.Subtotal, p.Tax, p.DeliveryFee, p.ServiceFee, p.Discount, p.Tip, p.Total,
			asJSON(&order.DeliveryAddress), asJSON(&order.ContactInfo), order.Status, order.PaymentMethod, order.PaymentStatus,
			order.SpecialInstructions, asJSON(&order.TrackingHistory), order.EstimatedDeliveryTime,
			order.Version, order.CreatedAt, order.UpdatedAt)
		if err != nil {
			return database.Classify(err)
		}
		if err := CreditOrder(ctx, tx, order.CustomerID, p.Total); err != nil {
			return err
		}
		return CreditRestaurant(ctx, tx, order.RestaurantID, p.Total)
	})
}

func (s OrderStore) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := scanOrder(s.DB.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", id, database.Classify(err))
	}
	return order, nil
}

// UpdateOrder writes the mutable fields only if nobody has written since order was read,
// and bumps order.Version on success.
func (s OrderStore) UpdateOrder(ctx context.Context, order *models.Order) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE orders SET driver_id = $3, status = $4, payment_status = $5, tracking_history = $6,
			rating = $7, cancellation = $8, refund = $9, actual_delivery_time = $10, updated_at = $11,
			version = version + 1
		WHERE id = $1 AND version = $2`,
		order.ID, order.Version, order.DriverID, order.Status, order.PaymentStatus,
		asJSON(&order.TrackingHistory), asJSON(&order.Rating), asJSON(&order.Cancellation), asJSON(&order.Refund),
		order.ActualDeliveryTime, order.UpdatedAt)
	if err != nil {
		return database.Classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return database.Classify(err)
	}
	if n == 0 {
		var exists bool
		if err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, order.ID).Scan(&exists); err != nil {
			return database.Classify(err)
		}
		if !exists {
			return fmt.Errorf("order %s: %w", order.ID, apperr.ErrNotFound)
		}
		return fmt.Errorf("order %s at version %d: %w", order.ID, order.Version, apperr.ErrConflict)
	}
	order.Version++
	return nil
}

func (s OrderStore) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	return affectedOne(res, err, "order", id)
}

// OrderFilter narrows a listing. RestaurantIDs, when non-nil, restricts results to
// those restaurants; an empty non-nil slice matches nothing.
type OrderFilter struct {
	CustomerID    uuid.UUID
	RestaurantIDs []uuid.UUID
	RestaurantID  uuid.UUID
	DriverID      uuid.UUID
	Status        models.OrderStatus
	Page          Page
}

func (f OrderFilter) where(a *args) string {
	where := []string{"TRUE"}
	if f.CustomerID != uuid.Nil {
		where = append(where, "o.customer_id = "+a.add(f.CustomerID))
	}
	if f.RestaurantIDs != nil {
		where = append(where, "o.restaurant_id = ANY("+a.add(pq.Array(uuidStrings(f.RestaurantIDs)))+"::uuid[])")
	}
	if f.RestaurantID != uuid.Nil {
		where = append(where, "o.restaurant_id = "+a.add(f.RestaurantID))
	}
	if f.DriverID != uuid.Nil {
		where = append(where, "o.driver_id = "+a.add(f.DriverID))
	}
	if f.Status != "" {
		where = append(where, "o.status = "+a.add(f.Status))
	}
	return strings.Join(where, " AND ")
}

func (s OrderStore) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, int, error) {
	var a args
	cond := filter.where(&a)

	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders o WHERE `+cond, a...).Scan(&total); err != nil {
		return nil, 0, database.Classify(err)
	}

	page := filter.Page.normalize()
	rows, err := s.DB.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders o WHERE `+cond+
		` ORDER BY o.created_at DESC LIMIT `+a.add(page.Limit)+` OFFSET `+a.add(page.Offset()), a...)
	if err != nil {
		return nil, 0, database.Classify(err)
	}
	defer rows.Close()

	orders := make([]models.Order, 0, page.Limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, database.Classify(err)
		}
		orders = append(orders, *o)
	}
	return orders, total, database.Classify(rows.Err())
}

// OrderStats aggregates the orders the filter matches. Revenue excludes cancelled orders.
func (s OrderStore) OrderStats(ctx context.Context, filter OrderFilter) (models.OrderStats, error) {
	var a args
	cond := filter.where(&a)
	var stats models.OrderStats
	err := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(o.total) FILTER (WHERE o.status <> 'cancelled'), 0),
			COALESCE(ROUND(AVG(o.total) FILTER (WHERE o.status <> 'cancelled'), 2), 0),
			COUNT(*) FILTER (WHERE o.status = 'pending'),
			COUNT(*) FILTER (WHERE o.status = 'confirmed'),
			COUNT(*) FILTER (WHERE o.status = 'delivered'),
			COUNT(*) FILTER (WHERE o.status = 'cancelled')
		FROM orders o WHERE `+cond, a...).
		Scan(&stats.TotalOrders, &stats.TotalRevenue, &stats.AverageOrderValue,
			&stats.PendingOrders, &stats.ConfirmedOrders, &stats.DeliveredOrders, &stats.CancelledOrders)
	return stats, database.Classify(err)
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
