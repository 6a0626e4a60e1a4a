package ordering

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/ray-remotestate/foodie/apperr"
	"github.com/ray-remotestate/foodie/models"
	"github.com/shopspring/decimal"
)

const (
	MaxLineItems          = 50
	MaxQuantity           = 99
	MaxInstructionsLength = 500
	MinScore              = 1
	MaxScore              = 5
)

// MaxTip keeps tips well inside the NUMERIC(12,2) money columns.
var MaxTip = decimal.NewFromInt(1000)

type CreateOrderRequest struct {
	RestaurantID        uuid.UUID       `json:"restaurant"`
	Items               []LineRequest   `json:"items"`
	DeliveryAddress     models.Address  `json:"deliveryAddress"`
	PaymentMethod       string          `json:"paymentMethod"`
	SpecialInstructions string          `json:"specialInstructions"`
	Tip                 decimal.Decimal `json:"tip"`
}

// Validate collects every problem with the request instead of stopping at the first.
func (r CreateOrderRequest) Validate() error {
	var result *multierror.Error
	if r.RestaurantID == uuid.Nil {
		result = multierror.Append(result, errors.New("restaurant is required"))
	}
	if len(r.Items) == 0 {
		result = multierror.Append(result, errors.New("at least one item is required"))
	}
	if len(r.Items) > MaxLineItems {
		result = multierror.Append(result, fmt.Errorf("at most %d items are allowed", MaxLineItems))
	}
	for i, item := range r.Items {
		if item.MenuItemID == uuid.Nil {
			result = multierror.Append(result, fmt.Errorf("item %d: menu item is required", i+1))
		}
		if item.Quantity < 1 || item.Quantity > MaxQuantity {
			result = multierror.Append(result, fmt.Errorf("item %d: quantity must be between 1 and %d", i+1, MaxQuantity))
		}
		if len(item.SpecialInstructions) > MaxInstructionsLength {
			result = multierror.Append(result, fmt.Errorf("item %d: special instructions too long", i+1))
		}
	}
	addr := r.DeliveryAddress
	for _, f := range []struct{ name, value string }{
		{"street", addr.Street}, {"city", addr.City}, {"state", addr.State}, {"zipCode", addr.ZipCode},
	} {
		if strings.TrimSpace(f.value) == "" {
			result = multierror.Append(result, fmt.Errorf("deliveryAddress.%s is required", f.name))
		}
	}
	if !models.PaymentMethod(r.PaymentMethod).IsValid() {
		result = multierror.Append(result, errors.New("paymentMethod must be one of card, cash, digital-wallet"))
	}
	if len(r.SpecialInstructions) > MaxInstructionsLength {
		result = multierror.Append(result, errors.New("special instructions too long"))
	}
	if r.Tip.IsNegative() {
		result = multierror.Append(result, errors.New("tip cannot be negative"))
	}
	if r.Tip.GreaterThan(MaxTip) {
		result = multierror.Append(result, fmt.Errorf("tip cannot exceed %s", MaxTip.StringFixed(2)))
	}
	return wrapValidation(result)
}

type RatingRequest struct {
	Food     int    `json:"food"`
	Delivery int    `json:"delivery"`
	Overall  int    `json:"overall"`
	Comment  string `json:"comment"`
}

func (r RatingRequest) Validate() error {
	var result *multierror.Error
	for _, f := range []struct {
		name  string
		score int
	}{{"food", r.Food}, {"delivery", r.Delivery}, {"overall", r.Overall}} {
		if f.score < MinScore || f.score > MaxScore {
			result = multierror.Append(result, fmt.Errorf("%s must be an integer between %d and %d", f.name, MinScore, MaxScore))
		}
	}
	if len(r.Comment) > MaxInstructionsLength {
		result = multierror.Append(result, errors.New("comment too long"))
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidRating, err)
	}
	return nil
}

type RefundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

func wrapValidation(result *multierror.Error) error {
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return nil
}
