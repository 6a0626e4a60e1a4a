// Package ordering is the order lifecycle engine: it prices carts, creates orders and
// moves them through the status state machine. It holds no state between calls; every
// operation is one read-modify-write against the Store.
package ordering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ray-remotestate/foodie/access"
	"github.com/ray-remotestate/foodie/apperr"
	"github.com/ray-remotestate/foodie/models"
	"github.com/sirupsen/logrus"
)

// Catalog resolves the authoritative restaurant and menu data.
type Catalog interface {
	GetRestaurant(ctx context.Context, id uuid.UUID) (*models.Restaurant, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
	// RestaurantOwner resolves the owner even after the restaurant was archived, so
	// orders placed before that stay manageable.
	RestaurantOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// Store persists orders. UpdateOrder must only succeed when the stored version equals
// order.Version, bump the version on success and fail with apperr.ErrConflict otherwise.
// CreateOrder also credits the customer's and restaurant's running totals.
type Store interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order) error
}

type NumberGenerator interface {
	NextOrderNumber(ctx context.Context) (string, error)
}

// Drivers reports whether a user may be assigned to deliver orders.
type Drivers interface {
	IsDriver(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Customers supplies the contact details copied onto a new order.
type Customers interface {
	ContactInfo(ctx context.Context, userID uuid.UUID) (models.ContactInfo, error)
}

type Authorizer interface {
	Authorize(actor access.Actor, capability access.Capability, res access.Resource) error
}

type Config struct {
	Catalog    Catalog
	Store      Store
	Numbers    NumberGenerator
	Authorizer Authorizer
	// Drivers is optional; without it any user ID can be assigned.
	Drivers    Drivers
	// Customers is optional; without it orders carry no contact snapshot.
	Customers  Customers
	Calculator *Calculator
	Now        func() time.Time
	Logger     logrus.FieldLogger
}

type Engine struct {
	catalog   Catalog
	store     Store
	numbers   NumberGenerator
	authz     Authorizer
	drivers   Drivers
	customers Customers
	calc      *Calculator
	now       func() time.Time
	log       logrus.FieldLogger
}

func NewEngine(cfg Config) *Engine {
	e := &Engine{
		catalog:   cfg.Catalog,
		store:     cfg.Store,
		numbers:   cfg.Numbers,
		authz:     cfg.Authorizer,
		drivers:   cfg.Drivers,
		customers: cfg.Customers,
		calc:      cfg.Calculator,
		now:       cfg.Now,
		log:       cfg.Logger,
	}
	if e.authz == nil {
		e.authz = access.Policy{}
	}
	if e.calc == nil {
		e.calc = NewCalculator(DefaultPolicy())
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	return e
}

func (e *Engine) CreateOrder(ctx context.Context, actor access.Actor, req CreateOrderRequest) (*models.Order, error) {
	if err := e.authz.Authorize(actor, access.PlaceOrder, access.Resource{}); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	restaurant, err := e.catalog.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("restaurant %s: %w", req.RestaurantID, err)
	}
	if !restaurant.IsActive {
		return nil, fmt.Errorf("%w: %s is not accepting orders", apperr.ErrItemUnavailable, restaurant.Name)
	}

	items, prep, err := ResolveLines(ctx, e.catalog, restaurant.ID, req.Items)
	if err != nil {
		return nil, err
	}
	pricing := e.calc.Quote(items, req.Tip)

	var contact models.ContactInfo
	if e.customers != nil {
		if contact, err = e.customers.ContactInfo(ctx, actor.ID); err != nil {
			return nil, fmt.Errorf("customer %s: %w", actor.ID, err)
		}
	}

	number, err := e.numbers.NextOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	order := &models.Order{
		ID:                    uuid.New(),
		OrderNumber:           number,
		CustomerID:            actor.ID,
		RestaurantID:          restaurant.ID,
		Items:                 items,
		Pricing:               pricing,
		DeliveryAddress:       req.DeliveryAddress,
		ContactInfo:           contact,
		Status:                models.StatusPending,
		PaymentMethod:         models.PaymentMethod(req.PaymentMethod),
		PaymentStatus:         models.PaymentPending,
		SpecialInstructions:   req.SpecialInstructions,
		TrackingHistory:       []models.TrackingEntry{},
		EstimatedDeliveryTime: now.Add(estimateDelivery(restaurant, prep)),
		Version:               1,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := e.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	e.log.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"customer_id":  order.CustomerID,
		"total":        order.Pricing.Total.StringFixed(2),
	}).Info("order created")
	return order, nil
}

// GetOrder returns the order if the actor may see it.
func (e *Engine) GetOrder(ctx context.Context, orderID uuid.UUID, actor access.Actor) (*models.Order, error) {
	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	res, err := e.resource(ctx, order, actor)
	if err != nil {
		return nil, err
	}
	if err := e.authz.Authorize(actor, access.ViewOrder, res); err != nil {
		return nil, err
	}
	return order, nil
}

func (e *Engine) AdvanceStatus(ctx context.Context, orderID uuid.UUID, target models.OrderStatus, note string, actor access.Actor) (*models.Order, error) {
	if !target.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperr.ErrValidation, target)
	}
	return e.mutate(ctx, orderID, func(order *models.Order, now time.Time) error {
		if order.Status.IsTerminal() {
			return fmt.Errorf("%w: order is already %s", apperr.ErrInvalidTransition, order.Status)
		}
		res, err := e.resource(ctx, order, actor)
		if err != nil {
			return err
		}
		res.Target = target
		if err := e.authz.Authorize(actor, access.AdvanceStatus, res); err != nil {
			return err
		}
		if err := CheckTransition(order.Status, target); err != nil {
			return err
		}

		if target == models.StatusCancelled {
			order.Cancellation = &models.Cancellation{
				Reason:        note,
				CancelledBy:   cancellingRole(order, actor),
				CancelledByID: actor.ID,
				CancelledAt:   now,
			}
		}
		if target == models.StatusDelivered {
			order.ActualDeliveryTime = &now
		}
		setStatus(order, target, note, actor, now)
		return nil
	})
}

func (e *Engine) CancelOrder(ctx context.Context, orderID uuid.UUID, reason string, actor access.Actor) (*models.Order, error) {
	if len(reason) > MaxInstructionsLength {
		return nil, fmt.Errorf("%w: reason too long", apperr.ErrValidation)
	}
	return e.mutate(ctx, orderID, func(order *models.Order, now time.Time) error {
		res, err := e.resource(ctx, order, actor)
		if err != nil {
			return err
		}
		if err := e.authz.Authorize(actor, access.CancelOrder, res); err != nil {
			return err
		}
		if err := CheckCancellable(order.Status); err != nil {
			return err
		}
		order.Cancellation = &models.Cancellation{
			Reason:        reason,
			CancelledBy:   cancellingRole(order, actor),
			CancelledByID: actor.ID,
			CancelledAt:   now,
		}
		setStatus(order, models.StatusCancelled, reason, actor, now)
		return nil
	})
}

func (e *Engine) RateOrder(ctx context.Context, orderID uuid.UUID, req RatingRequest, actor access.Actor) (*models.Order, error) {
	return e.mutate(ctx, orderID, func(order *models.Order, now time.Time) error {
		if err := e.authz.Authorize(actor, access.RateOrder, access.Resource{CustomerID: order.CustomerID}); err != nil {
			return err
		}
		if order.Status != models.StatusDelivered {
			return fmt.Errorf("%w: order is %s", apperr.ErrNotDeliverable, order.Status)
		}
		if order.Rating != nil {
			return apperr.ErrAlreadyRated
		}
		if err := req.Validate(); err != nil {
			return err
		}
		order.Rating = &models.OrderRating{
			Food:     req.Food,
			Delivery: req.Delivery,
			Overall:  req.Overall,
			Comment:  req.Comment,
			RatedAt:  now,
		}
		return nil
	})
}

// RecordRefund stores the refund fact once. It does not move money.
func (e *Engine) RecordRefund(ctx context.Context, orderID uuid.UUID, req RefundRequest, actor access.Actor) (*models.Order, error) {
	return e.mutate(ctx, orderID, func(order *models.Order, now time.Time) error {
		if err := e.authz.Authorize(actor, access.RefundOrder, access.OrderResource(order, uuid.Nil)); err != nil {
			return err
		}
		if !order.Status.IsTerminal() {
			return fmt.Errorf("%w: only cancelled or delivered orders can be refunded", apperr.ErrInvalidTransition)
		}
		if order.Refund != nil {
			return apperr.ErrAlreadyRefunded
		}
		if !req.Amount.IsPositive() || req.Amount.GreaterThan(order.Pricing.Total) {
			return fmt.Errorf("%w: refund amount must be greater than 0 and at most %s", apperr.ErrValidation, order.Pricing.Total.StringFixed(2))
		}
		order.Refund = &models.Refund{
			Amount:     req.Amount.Round(2),
			Reason:     req.Reason,
			RefundedBy: actor.ID,
			RefundedAt: now,
		}
		order.PaymentStatus = models.PaymentRefunded
		return nil
	})
}

// AssignDriver attaches a delivery driver to an order that is still in progress.
func (e *Engine) AssignDriver(ctx context.Context, orderID, driverID uuid.UUID, actor access.Actor) (*models.Order, error) {
	if driverID == uuid.Nil {
		return nil, fmt.Errorf("%w: driver is required", apperr.ErrValidation)
	}
	if e.drivers != nil {
		ok, err := e.drivers.IsDriver(ctx, driverID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: user %s is not a delivery driver", apperr.ErrValidation, driverID)
		}
	}
	return e.mutate(ctx, orderID, func(order *models.Order, now time.Time) error {
		res, err := e.resource(ctx, order, actor)
		if err != nil {
			return err
		}
		if err := e.authz.Authorize(actor, access.AssignDriver, res); err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return fmt.Errorf("%w: order is already %s", apperr.ErrInvalidTransition, order.Status)
		}
		order.DriverID = &driverID
		return nil
	})
}

func (e *Engine) mutate(ctx context.Context, orderID uuid.UUID, apply func(order *models.Order, now time.Time) error) (*models.Order, error) {
	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := order.Status
	now := e.now().UTC()
	if err := apply(order, now); err != nil {
		return nil, err
	}
	order.UpdatedAt = now
	if err := e.store.UpdateOrder(ctx, order); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			e.log.WithField("order_id", orderID).Warn("lost concurrent update")
		}
		return nil, err
	}
	if from != order.Status {
		e.log.WithFields(logrus.Fields{
			"order_id": order.ID,
			"from":     from,
			"to":       order.Status,
		}).Info("order status changed")
	}
	return order, nil
}

// resource loads the restaurant owner only when the actor could be that owner.
func (e *Engine) resource(ctx context.Context, order *models.Order, actor access.Actor) (access.Resource, error) {
	var ownerID uuid.UUID
	if actor.Has(models.RoleRestaurant) {
		owner, err := e.catalog.RestaurantOwner(ctx, order.RestaurantID)
		switch {
		case err == nil:
			ownerID = owner
		case !errors.Is(err, apperr.ErrNotFound):
			return access.Resource{}, fmt.Errorf("restaurant %s: %w", order.RestaurantID, err)
		}
	}
	return access.OrderResource(order, ownerID), nil
}

// DefaultDeliveryEstimate is used when neither the menu nor the restaurant gives timings.
const DefaultDeliveryEstimate = 45 * time.Minute

func estimateDelivery(restaurant *models.Restaurant, prepMinutes int) time.Duration {
	total := prepMinutes + restaurant.DeliveryInfo.EstimatedTime
	if total <= 0 {
		return DefaultDeliveryEstimate
	}
	return time.Duration(total) * time.Minute
}

func setStatus(order *models.Order, status models.OrderStatus, note string, actor access.Actor, now time.Time) {
	order.Status = status
	order.TrackingHistory = append(order.TrackingHistory, models.TrackingEntry{
		Status:    status,
		Timestamp: now,
		Note:      note,
		ActorID:   actor.ID,
	})
}

func cancellingRole(order *models.Order, actor access.Actor) models.Role {
	switch {
	case actor.ID == order.CustomerID:
		return models.RoleCustomer
	case actor.Has(models.RoleAdmin):
		return models.RoleAdmin
	case actor.Has(models.RoleRestaurant):
		return models.RoleRestaurant
	}
	return models.RoleDelivery
}
