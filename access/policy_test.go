package access

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/ray-remotestate/foodie/apperr"
	"github.com/ray-remotestate/foodie/models"
	"github.com/stretchr/testify/assert"
)

func TestPolicy_Allowed(t *testing.T) {
	customer := Actor{ID: uuid.New(), Roles: []models.Role{models.RoleCustomer}}
	owner := Actor{ID: uuid.New(), Roles: []models.Role{models.RoleRestaurant}}
	driver := Actor{ID: uuid.New(), Roles: []models.Role{models.RoleDelivery}}
	admin := Actor{ID: uuid.New(), Roles: []models.Role{models.RoleAdmin}}
	stranger := Actor{ID: uuid.New(), Roles: []models.Role{models.RoleCustomer}}

	res := Resource{CustomerID: customer.ID, OwnerID: owner.ID, DriverID: driver.ID}
	with := func(target models.OrderStatus) Resource {
		r := res
		r.Target = target
		return r
	}

	tests := []struct {
		name  string
		actor Actor
		cap   Capability
		res   Resource
		want  bool
	}{
		{"customer views own order", customer, ViewOrder, res, true},
		{"stranger cannot view", stranger, ViewOrder, res, false},
		{"driver views assigned order", driver, ViewOrder, res, true},
		{"customer may cancel via status", customer, AdvanceStatus, with(models.StatusCancelled), true},
		{"customer may not confirm", customer, AdvanceStatus, with(models.StatusConfirmed), false},
		{"owner may confirm", owner, AdvanceStatus, with(models.StatusConfirmed), true},
		{"driver may mark delivered", driver, AdvanceStatus, with(models.StatusDelivered), true},
		{"driver may not confirm", driver, AdvanceStatus, with(models.StatusConfirmed), false},
		{"driver may not cancel", driver, AdvanceStatus, with(models.StatusCancelled), false},
		{"admin may set anything", admin, AdvanceStatus, with(models.StatusPreparing), true},
		{"customer rates own order", customer, RateOrder, res, true},
		{"admin cannot rate for customer", admin, RateOrder, res, false},
		{"owner cannot rate", owner, RateOrder, res, false},
		{"owner cancels", owner, CancelOrder, res, true},
		{"driver cannot cancel", driver, CancelOrder, res, false},
		{"only admin refunds", owner, RefundOrder, res, false},
		{"admin refunds", admin, RefundOrder, res, true},
		{"owner assigns driver", owner, AssignDriver, res, true},
		{"restaurant role creates restaurant", owner, CreateRestaurant, Resource{}, true},
		{"customer cannot create restaurant", customer, CreateRestaurant, Resource{}, false},
		{"customer places order", customer, PlaceOrder, Resource{}, true},
		{"driver cannot place order", driver, PlaceOrder, Resource{}, false},
		{"anonymous denied", Actor{Roles: []models.Role{models.RoleAdmin}}, ViewOrder, res, false},
	}

	var p Policy
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Allowed(tt.actor, tt.cap, tt.res))
		})
	}
}

func TestPolicy_AuthorizeWrapsUnauthorized(t *testing.T) {
	var p Policy
	err := p.Authorize(Actor{ID: uuid.New(), Roles: []models.Role{models.RoleCustomer}}, RefundOrder, Resource{})
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
	assert.Contains(t, err.Error(), "refund order")
}

func TestPolicy_ZeroOwnerNeverMatches(t *testing.T) {
	var p Policy
	owner := Actor{ID: uuid.New(), Roles: []models.Role{models.RoleRestaurant}}
	assert.False(t, p.Allowed(owner, ManageRestaurant, Resource{}))
}
