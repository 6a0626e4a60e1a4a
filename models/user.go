package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleRestaurant Role = "restaurant"
	RoleDelivery   Role = "delivery"
	RoleCustomer   Role = "customer"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleRestaurant || r == RoleDelivery || r == RoleCustomer
}

// ParseRoles normalizes role names and drops anything outside the closed set.
func ParseRoles(names []string) []Role {
	roles := make([]Role, 0, len(names))
	for _, name := range names {
		role := Role(strings.ToLower(strings.TrimSpace(name)))
		if role.IsValid() {
			roles = append(roles, role)
		}
	}
	return roles
}

func RoleNames(roles []Role) []string {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return names
}

type User struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Email         string          `db:"email" json:"email"`
	Phone         string          `db:"phone" json:"phone"`
	Password      string          `db:"password" json:"-"`
	Roles         []Role          `db:"-" json:"roles"`
	Address       Address         `db:"address" json:"address"`
	IsActive      bool            `db:"is_active" json:"isActive"`
	TotalOrders   int             `db:"total_orders" json:"totalOrders"`
	TotalSpent    decimal.Decimal `db:"total_spent" json:"totalSpent"`
	LoyaltyPoints int             `db:"loyalty_points" json:"loyaltyPoints"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	ArchivedAt    *time.Time      `db:"archived_at" json:"archivedAt,omitempty"`
}

type Address struct {
	Street       string       `json:"street"`
	City         string       `json:"city"`
	State        string       `json:"state"`
	ZipCode      string       `json:"zipCode"`
	Instructions string       `json:"instructions,omitempty"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UserStats summarizes a customer's order history.
type UserStats struct {
	TotalOrders       int             `json:"totalOrders"`
	TotalSpent        decimal.Decimal `json:"totalSpent"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
	Restaurants       []uuid.UUID     `json:"favoriteRestaurants"`
}
