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

const menuColumns = `m.id, m.restaurant_id, m.name, m.description, m.price, m.category, m.is_available,
	m.is_popular, m.preparation_time, m.customizations, m.allergens, m.rating_average, m.rating_count,
	m.created_at, m.updated_at`

func scanMenuItem(row interface{ Scan(...any) error }) (*models.MenuItem, error) {
	var m models.MenuItem
	err := row.Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Description, &m.Price, &m.Category, &m.IsAvailable,
		&m.IsPopular, &m.PreparationTime, asJSON(&m.Customizations), pq.Array(&m.Allergens),
		&m.Rating.Average, &m.Rating.Count, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func CreateMenuItem(ctx context.Context, q Querier, m *models.MenuItem) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Customizations == nil {
		m.Customizations = []models.CustomizationOption{}
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO menu_items (id, restaurant_id, name, description, price, category, is_available, is_popular,
			preparation_time, customizations, allergens)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		m.ID, m.RestaurantID, m.Name, m.Description, m.Price, m.Category, m.IsAvailable, m.IsPopular,
		m.PreparationTime, asJSON(&m.Customizations), pq.Array(m.Allergens)).
		Scan(&m.CreatedAt, &m.UpdatedAt)
	return database.Classify(err)
}

// GetMenuItem returns a non-archived item, available or not.
func GetMenuItem(ctx context.Context, q Querier, id uuid.UUID) (*models.MenuItem, error) {
	m, err := scanMenuItem(q.QueryRowContext(ctx, `
		SELECT `+menuColumns+` FROM menu_items m
		WHERE m.id = $1 AND m.archived_at IS NULL`, id))
	if err != nil {
		return nil, fmt.Errorf("menu item %s: %w", id, database.Classify(err))
	}
	return m, nil
}

func UpdateMenuItem(ctx context.Context, q Querier, m *models.MenuItem) error {
	if m.Customizations == nil {
		m.Customizations = []models.CustomizationOption{}
	}
	err := q.QueryRowContext(ctx, `
		UPDATE menu_items SET name = $2, description = $3, price = $4, category = $5, is_available = $6,
			is_popular = $7, preparation_time = $8, customizations = $9, allergens = $10, updated_at = now()
		WHERE id = $1 AND archived_at IS NULL
		RETURNING updated_at`,
		m.ID, m.Name, m.Description, m.Price, m.Category, m.IsAvailable, m.IsPopular, m.PreparationTime,
		asJSON(&m.Customizations), pq.Array(m.Allergens)).
		Scan(&m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("menu item %s: %w", m.ID, database.Classify(err))
	}
	return nil
}

func ArchiveMenuItem(ctx context.Context, q Querier, id uuid.UUID) error {
	res, err := q.ExecContext(ctx, `
		UPDATE menu_items SET archived_at = now(), is_available = FALSE, updated_at = now()
		WHERE id = $1 AND archived_at IS NULL`, id)
	return affectedOne(res, err, "menu item", id)
}

type MenuFilter struct {
	RestaurantID  uuid.UUID
	Category      string
	MinPrice      decimal.NullDecimal
	MaxPrice      decimal.NullDecimal
	Search        string
	AvailableOnly bool
	Page          Page
}

// ListMenuItems pages through menu items of active restaurants. Search is a
// full-text match over name and description.
func ListMenuItems(ctx context.Context, q Querier, filter MenuFilter) ([]models.MenuItem, int, error) {
	var a args
	where := []string{
		"m.archived_at IS NULL",
		"EXISTS (SELECT 1 FROM restaurants r WHERE r.id = m.restaurant_id AND r.archived_at IS NULL)",
	}
	if filter.AvailableOnly {
		where = append(where, "m.is_available")
	}
	if filter.RestaurantID != uuid.Nil {
		where = append(where, "m.restaurant_id = "+a.add(filter.RestaurantID))
	}
	if filter.Category != "" {
		where = append(where, "m.category = "+a.add(filter.Category))
	}
	if filter.MinPrice.Valid {
		where = append(where, "m.price >= "+a.add(filter.MinPrice.Decimal))
	}
	if filter.MaxPrice.Valid {
		where = append(where, "m.price <= "+a.add(filter.MaxPrice.Decimal))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, "to_tsvector('english', m.name || ' ' || m.description) @@ plainto_tsquery('english', "+a.add(s)+")")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM menu_items m WHERE `+cond, a...).Scan(&total); err != nil {
		return nil, 0, database.Classify(err)
	}

	page := filter.Page.normalize()
	rows, err := q.QueryContext(ctx, `SELECT `+menuColumns+` FROM menu_items m WHERE `+cond+
		` ORDER BY m.rating_average DESC, m.name LIMIT `+a.add(page.Limit)+` OFFSET `+a.add(page.Offset()), a...)
	if err != nil {
		return nil, 0, database.Classify(err)
	}
	defer rows.Close()

	items := make([]models.MenuItem, 0, page.Limit)
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, 0, database.Classify(err)
		}
		items = append(items, *m)
	}
	return items, total, database.Classify(rows.Err())
}
