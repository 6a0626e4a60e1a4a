package ordering

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/ray-remotestate/foodie/apperr"
	"github.com/ray-remotestate/foodie/models"
	"github.com/shopspring/decimal"
)

// Policy holds the pricing constants. Rates are fractions (0.08 is 8%).
type Policy struct {
	TaxRate               decimal.Decimal
	DeliveryFee           decimal.Decimal
	FreeDeliveryThreshold decimal.Decimal
	ServiceFeeRate        decimal.Decimal
	DiscountRate          decimal.Decimal
	MinOrderForDiscount   decimal.Decimal
	MaxDiscount           decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		TaxRate:               decimal.RequireFromString("0.08"),
		DeliveryFee:           decimal.RequireFromString("3.99"),
		FreeDeliveryThreshold: decimal.RequireFromString("25.00"),
	}
}

type Calculator struct {
	policy Policy
}

func NewCalculator(policy Policy) *Calculator {
	return &Calculator{policy: policy}
}

func (c *Calculator) Policy() Policy { return c.policy }

// LineSubtotal is unitPrice*qty plus every selected customization price times qty.
// It is not rounded; rounding happens once in Quote.
func LineSubtotal(unitPrice decimal.Decimal, quantity int, customizations []models.CustomizationOption) decimal.Decimal {
	perUnit := unitPrice
	for _, opt := range customizations {
		perUnit = perUnit.Add(opt.Price)
	}
	return perUnit.Mul(decimal.NewFromInt(int64(quantity)))
}

// Quote prices a set of resolved lines. Derived amounts are rounded half-up to cents at
// the end and the discount is clamped so the total never goes negative.
func (c *Calculator) Quote(items []models.OrderItem, tip decimal.Decimal) models.Pricing {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal)
	}

	p := c.policy
	tax := subtotal.Mul(p.TaxRate)
	serviceFee := subtotal.Mul(p.ServiceFeeRate)

	deliveryFee := p.DeliveryFee
	if subtotal.GreaterThan(p.FreeDeliveryThreshold) {
		deliveryFee = decimal.Zero
	}

	discount := decimal.Zero
	if p.DiscountRate.IsPositive() && subtotal.GreaterThanOrEqual(p.MinOrderForDiscount) {
		discount = subtotal.Mul(p.DiscountRate)
		if p.MaxDiscount.IsPositive() && discount.GreaterThan(p.MaxDiscount) {
			discount = p.MaxDiscount
		}
	}

	pricing := models.Pricing{
		Subtotal:    cents(subtotal),
		Tax:         cents(tax),
		DeliveryFee: cents(deliveryFee),
		ServiceFee:  cents(serviceFee),
		Tip:         cents(tip),
	}
	gross := pricing.Subtotal.Add(pricing.Tax).Add(pricing.DeliveryFee).Add(pricing.ServiceFee).Add(pricing.Tip)
	pricing.Discount = decimal.Min(cents(discount), gross)
	pricing.Total = gross.Sub(pricing.Discount)
	return pricing
}

func cents(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}

// LineRequest is one cart entry as submitted by the customer.
type LineRequest struct {
	MenuItemID          uuid.UUID `json:"menuItem"`
	Quantity            int       `json:"quantity"`
	Customizations      []string  `json:"customizations"`
	SpecialInstructions string    `json:"specialInstructions"`
}

// ResolveLines looks up every requested item once and snapshots name, price and the
// selected customizations into order lines. It also reports the longest preparation
// time among the items in minutes.
func ResolveLines(ctx context.Context, catalog Catalog, restaurantID uuid.UUID, lines []LineRequest) ([]models.OrderItem, int, error) {
	items := make([]models.OrderItem, 0, len(lines))
	prep := 0
	for i, line := range lines {
		menuItem, err := catalog.GetMenuItem(ctx, line.MenuItemID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, 0, fmt.Errorf("%w: menu item %s", apperr.ErrNotFound, line.MenuItemID)
			}
			return nil, 0, fmt.Errorf("lookup menu item %s: %w", line.MenuItemID, err)
		}
		if menuItem.RestaurantID != restaurantID {
			return nil, 0, fmt.Errorf("%w: item %d (%s) is not on this restaurant's menu", apperr.ErrValidation, i+1, menuItem.Name)
		}
		if !menuItem.IsAvailable {
			return nil, 0, fmt.Errorf("%w: %s is currently unavailable", apperr.ErrItemUnavailable, menuItem.Name)
		}

		var selected []models.CustomizationOption
		var unknown error
		for _, name := range line.Customizations {
			opt, ok := menuItem.Option(name)
			if !ok {
				unknown = multierror.Append(unknown, fmt.Errorf("item %d: unknown customization %q for %s", i+1, name, menuItem.Name))
				continue
			}
			selected = append(selected, opt)
		}
		if unknown != nil {
			return nil, 0, fmt.Errorf("%w: %v", apperr.ErrValidation, unknown)
		}

		if menuItem.PreparationTime > prep {
			prep = menuItem.PreparationTime
		}
		items = append(items, models.OrderItem{
			MenuItemID:          menuItem.ID,
			Name:                menuItem.Name,
			Price:               menuItem.Price,
			Quantity:            line.Quantity,
			Customizations:      selected,
			SpecialInstructions: line.SpecialInstructions,
			Subtotal:            LineSubtotal(menuItem.Price, line.Quantity, selected),
		})
	}
	return items, prep, nil
}
