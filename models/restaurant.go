package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Restaurant struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Description  string          `db:"description" json:"description"`
	Cuisine      []string        `db:"cuisine" json:"cuisine"`
	Address      Address         `db:"address" json:"address"`
	Contact      Contact         `db:"contact" json:"contact"`
	Rating       Rating          `db:"-" json:"rating"`
	DeliveryInfo DeliveryInfo    `db:"-" json:"deliveryInfo"`
	IsActive     bool            `db:"is_active" json:"isActive"`
	OwnerID      uuid.UUID       `db:"owner_id" json:"ownerId"`
	TotalOrders  int             `db:"total_orders" json:"totalOrders"`
	TotalRevenue decimal.Decimal `db:"total_revenue" json:"totalRevenue"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

type Contact struct {
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type DeliveryInfo struct {
	Fee           decimal.Decimal `json:"fee"`
	MinimumOrder  decimal.Decimal `json:"minimumOrder"`
	EstimatedTime int             `json:"estimatedTime"` // minutes
	Radius        float64         `json:"radius"`        // miles
}

type MenuItem struct {
	ID              uuid.UUID             `db:"id" json:"id"`
	RestaurantID    uuid.UUID             `db:"restaurant_id" json:"restaurantId"`
	Name            string                `db:"name" json:"name"`
	Description     string                `db:"description" json:"description"`
	Price           decimal.Decimal       `db:"price" json:"price"`
	Category        string                `db:"category" json:"category"`
	IsAvailable     bool                  `db:"is_available" json:"isAvailable"`
	IsPopular       bool                  `db:"is_popular" json:"isPopular"`
	PreparationTime int                   `db:"preparation_time" json:"preparationTime"` // minutes
	Customizations  []CustomizationOption `db:"customizations" json:"customizations"`
	Allergens       []string              `db:"allergens" json:"allergens"`
	Rating          Rating                `db:"-" json:"rating"`
	CreatedAt       time.Time             `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time             `db:"updated_at" json:"updatedAt"`
}

// CustomizationOption is a selectable add-on priced per unit of the line it is applied to.
type CustomizationOption struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Option looks up a customization by name.
func (m *MenuItem) Option(name string) (CustomizationOption, bool) {
	for _, opt := range m.Customizations {
		if opt.Name == name {
			return opt, true
		}
	}
	return CustomizationOption{}, false
}

var MenuCategories = []string{
	"appetizer", "main-course", "dessert", "beverage", "side", "salad", "soup", "pizza", "burger", "pasta", "other",
}
