package dbhelper

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/ray-remotestate/foodie/models"
)

// Catalog serves restaurant and menu lookups to the order engine.
type Catalog struct {
	DB *sql.DB
}

func (c Catalog) GetRestaurant(ctx context.Context, id uuid.UUID) (*models.Restaurant, error) {
	return GetRestaurant(ctx, c.DB, id)
}

func (c Catalog) GetMenuItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	return GetMenuItem(ctx, c.DB, id)
}

func (c Catalog) RestaurantOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	return RestaurantOwner(ctx, c.DB, id)
}

// Drivers checks the delivery role for driver assignment.
type Drivers struct {
	DB *sql.DB
}

func (d Drivers) IsDriver(ctx context.Context, userID uuid.UUID) (bool, error) {
	return HasRole(ctx, d.DB, userID, models.RoleDelivery)
}

// Customers reads the contact details snapshotted onto new orders.
type Customers struct {
	DB *sql.DB
}

func (c Customers) ContactInfo(ctx context.Context, userID uuid.UUID) (models.ContactInfo, error) {
	user, err := GetUserByID(ctx, c.DB, userID)
	if err != nil {
		return models.ContactInfo{}, err
	}
	return models.ContactInfo{Phone: user.Phone, Email: user.Email}, nil
}
