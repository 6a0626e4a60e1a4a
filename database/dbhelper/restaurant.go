package dbhelper

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/ray-remotestate/foodie/database"
	"github.com/ray-remotestate/foodie/models"
	"github.com/shopspring/decimal"
)

const restaurantColumns = `r.id, r.name, r.description, r.cuisine, r.address, r.contact, r.rating_average,
	r.rating_count, r.delivery_fee, r.minimum_order, r.estimated_time, r.delivery_radius, r.is_active,
	r.owner_id, r.total_orders, r.total_revenue, r.created_at, r.updated_at`

func scanRestaurant(row interface{ Scan(...any) error }) (*models.Restaurant, error) {
	var r models.Restaurant
	err := row.Scan(&r.ID, &r.Name, &r.Description, pq.Array(&r.Cuisine), asJSON(&r.Address), asJSON(&r.Contact),
		&r.Rating.Average, &r.Rating.Count, &r.DeliveryInfo.Fee, &r.DeliveryInfo.MinimumOrder,
		&r.DeliveryInfo.EstimatedTime, &r.DeliveryInfo.Radius, &r.IsActive,
		&r.OwnerID, &r.TotalOrders, &r.TotalRevenue, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func CreateRestaurant(ctx context.Context, q Querier, r *models.Restaurant) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO restaurants (id, name, description, cuisine, address, contact, delivery_fee, minimum_order,
			estimated_time, delivery_radius, is_active, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		r.ID, r.Name, r.Description, pq.Array(r.Cuisine), asJSON(&r.Address), asJSON(&r.Contact),
		r.DeliveryInfo.Fee, r.DeliveryInfo.MinimumOrder, r.DeliveryInfo.EstimatedTime, r.DeliveryInfo.Radius,
		r.IsActive, r.OwnerID).
		Scan(&r.CreatedAt, &r.UpdatedAt)
	return database.Classify(err)
}

// GetRestaurant returns a non-archived restaurant whether or not it is active.
func GetRestaurant(ctx context.Context, q Querier, id uuid.UUID) (*models.Restaurant, error) {
	r, err := scanRestaurant(q.QueryRowContext(ctx, `
		SELECT `+restaurantColumns+` FROM restaurants r
		WHERE r.id = $1 AND r.archived_at IS NULL`, id))
	if err != nil {
		return nil, fmt.Errorf("restaurant %s: %w", id, database.Classify(err))
	}
	return r, nil
}

// RestaurantOwner returns the owner of a restaurant, archived or not.
func RestaurantOwner(ctx context.Context, q Querier, id uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID
	err := q.QueryRowContext(ctx, `SELECT owner_id FROM restaurants WHERE id = $1`, id).Scan(&owner)
	if err != nil {
		return uuid.Nil, fmt.Errorf("restaurant %s: %w", id, database.Classify(err))
	}
	return owner, nil
}

// UpdateRestaurant writes the editable fields. Owner and running totals are left alone.
func UpdateRestaurant(ctx context.Context, q Querier, r *models.Restaurant) error {
	err := q.QueryRowContext(ctx, `
		UPDATE restaurants SET name = $2, description = $3, cuisine = $4, address = $5, contact = $6,
			delivery_fee = $7, minimum_order = $8, estimated_time = $9, delivery_radius = $10, is_active = $11,
			updated_at = now()
		WHERE id = $1 AND archived_at IS NULL
		RETURNING updated_at`,
		r.ID, r.Name, r.Description, pq.Array(r.Cuisine), asJSON(&r.Address), asJSON(&r.Contact),
		r.DeliveryInfo.Fee, r.DeliveryInfo.MinimumOrder, r.DeliveryInfo.EstimatedTime, r.DeliveryInfo.Radius,
		r.IsActive).
		Scan(&r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("restaurant %s: %w", r.ID, database.Classify(err))
	}
	return nil
}

// ArchiveRestaurant soft-deletes a restaurant and takes it off the market.
func ArchiveRestaurant(ctx context.Context, q Querier, id uuid.UUID) error {
	res, err := q.ExecContext(ctx, `
		UPDATE restaurants SET archived_at = now(), is_active = FALSE, updated_at = now()
		WHERE id = $1 AND archived_at IS NULL`, id)
	return affectedOne(res, err, "restaurant", id)
}

type RestaurantFilter struct {
	Cuisine    string
	ZipCode    string
	MinRating  float64
	OwnerID    uuid.UUID
	ActiveOnly bool
	Page       Page
}

func ListRestaurants(ctx context.Context, q Querier, filter RestaurantFilter) ([]models.Restaurant, int, error) {
	var a args
	where := []string{"r.archived_at IS NULL"}
	if filter.ActiveOnly {
		where = append(where, "r.is_active")
	}
	if filter.Cuisine != "" {
		where = append(where, a.add(strings.ToLower(filter.Cuisine))+" = ANY (SELECT LOWER(c) FROM unnest(r.cuisine) c)")
	}
	if filter.ZipCode != "" {
		where = append(where, "r.address ->> 'zipCode' = "+a.add(filter.ZipCode))
	}
	if filter.MinRating > 0 {
		where = append(where, "r.rating_average >= "+a.add(filter.MinRating))
	}
	if filter.OwnerID != uuid.Nil {
		where = append(where, "r.owner_id = "+a.add(filter.OwnerID))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM restaurants r WHERE `+cond, a...).Scan(&total); err != nil {
		return nil, 0, database.Classify(err)
	}

	page := filter.Page.normalize()
	rows, err := q.QueryContext(ctx, `SELECT `+restaurantColumns+` FROM restaurants r WHERE `+cond+
		` ORDER BY r.rating_average DESC, r.name LIMIT `+a.add(page.Limit)+` OFFSET `+a.add(page.Offset()), a...)
	if err != nil {
		return nil, 0, database.Classify(err)
	}
	defer rows.Close()

	restaurants := make([]models.Restaurant, 0, page.Limit)
	for rows.Next() {
		r, err := scanRestaurant(rows)
		if err != nil {
			return nil, 0, database.Classify(err)
		}
		restaurants = append(restaurants, *r)
	}
	return restaurants, total, database.Classify(rows.Err())
}

// OwnedRestaurantIDs lists every restaurant owned by ownerID, archived ones included, so
// orders placed before archiving stay visible to the owner.
func OwnedRestaurantIDs(ctx context.Context, q Querier, ownerID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM restaurants WHERE owner_id = $1`, ownerID)
	if err != nil {
		return nil, database.Classify(err)
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, database.Classify(err)
		}
		ids = append(ids, id)
	}
	return ids, database.Classify(rows.Err())
}

// CreditRestaurant adds a placed order to the restaurant's running totals.
func CreditRestaurant(ctx context.Context, q Querier, id uuid.UUID, total decimal.Decimal) error {
	res, err := q.ExecContext(ctx, `
		UPDATE restaurants SET total_orders = total_orders + 1, total_revenue = total_revenue + $2
		WHERE id = $1`, id, total)
	return affectedOne(res, err, "restaurant", id)
}

// SetRestaurantRating overwrites the stored rating; used when seeding a catalog.
func SetRestaurantRating(ctx context.Context, q Querier, id uuid.UUID, rating models.Rating) error {
	res, err := q.ExecContext(ctx, `
		UPDATE restaurants SET rating_average = $2, rating_count = $3 WHERE id = $1`,
		id, rating.Average, rating.Count)
	return affectedOne(res, err, "restaurant", id)
}
