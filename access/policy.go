// Package access decides what an authenticated actor may do. Roles come from the token;
// ownership comes from the resource being acted on.
package access

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/ray-remotestate/foodie/apperr"
	"github.com/ray-remotestate/foodie/models"
)

type Capability int

const (
	PlaceOrder Capability = iota
	ViewOrder
	AdvanceStatus
	CancelOrder
	RateOrder
	RefundOrder
	AssignDriver
	DeleteOrder
	CreateRestaurant
	ManageRestaurant
	ManageUsers
)

var capabilityNames = map[Capability]string{
	PlaceOrder:       "place order",
	ViewOrder:        "view order",
	AdvanceStatus:    "advance order status",
	CancelOrder:      "cancel order",
	RateOrder:        "rate order",
	RefundOrder:      "refund order",
	AssignDriver:     "assign driver",
	DeleteOrder:      "delete order",
	CreateRestaurant: "create restaurant",
	ManageRestaurant: "manage restaurant",
	ManageUsers:      "manage users",
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("capability(%d)", int(c))
}

type Actor struct {
	ID    uuid.UUID
	Roles []models.Role
}

func (a Actor) Has(role models.Role) bool {
	return slices.Contains(a.Roles, role)
}

// Resource carries the ownership facts a decision depends on. Zero IDs never match.
type Resource struct {
	CustomerID uuid.UUID
	OwnerID    uuid.UUID
	DriverID   uuid.UUID
	// Target is the requested status for AdvanceStatus.
	Target models.OrderStatus
}

// OrderResource builds the resource for an order whose restaurant is owned by ownerID.
func OrderResource(order *models.Order, ownerID uuid.UUID) Resource {
	res := Resource{CustomerID: order.CustomerID, OwnerID: ownerID}
	if order.DriverID != nil {
		res.DriverID = *order.DriverID
	}
	return res
}

var driverStatuses = []models.OrderStatus{models.StatusPickedUp, models.StatusOnTheWay, models.StatusDelivered}

type Policy struct{}

func (Policy) Allowed(actor Actor, capability Capability, res Resource) bool {
	if actor.ID == uuid.Nil {
		return false
	}
	// Only the customer who placed an order may rate it, admins included.
	if capability == RateOrder {
		return matches(actor.ID, res.CustomerID)
	}
	if actor.Has(models.RoleAdmin) {
		return true
	}
	isCustomer := actor.Has(models.RoleCustomer) && matches(actor.ID, res.CustomerID)
	isOwner := actor.Has(models.RoleRestaurant) && matches(actor.ID, res.OwnerID)
	isDriver := actor.Has(models.RoleDelivery) && matches(actor.ID, res.DriverID)

	switch capability {
	case PlaceOrder:
		return actor.Has(models.RoleCustomer)
	case ViewOrder:
		return isCustomer || isOwner || isDriver
	case AdvanceStatus:
		switch {
		case isOwner:
			return true
		case isDriver && slices.Contains(driverStatuses, res.Target):
			return true
		case isCustomer:
			return res.Target == models.StatusCancelled
		}
		return false
	case CancelOrder:
		return isCustomer || isOwner
	case AssignDriver, ManageRestaurant:
		return isOwner
	case CreateRestaurant:
		return actor.Has(models.RoleRestaurant)
	}
	// RefundOrder, DeleteOrder and ManageUsers are admin only.
	return false
}

// Authorize returns an error wrapping apperr.ErrUnauthorized when the capability is denied.
func (p Policy) Authorize(actor Actor, capability Capability, res Resource) error {
	if p.Allowed(actor, capability, res) {
		return nil
	}
	return fmt.Errorf("%w: %s", apperr.ErrUnauthorized, capability)
}

func matches(actorID, id uuid.UUID) bool {
	return id != uuid.Nil && actorID == id
}
