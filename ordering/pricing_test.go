package ordering

import (
	"testing"

	"github.com/ray-remotestate/foodie/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(price string, qty int, customs ...models.CustomizationOption) models.OrderItem {
	return models.OrderItem{Price: dec(price), Quantity: qty, Subtotal: LineSubtotal(dec(price), qty, customs)}
}

func TestQuote(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())

	tests := []struct {
		name  string
		items []models.OrderItem
		tip   string
		want  models.Pricing
	}{
		{
			name:  "below free delivery threshold",
			items: []models.OrderItem{line("10.99", 2)},
			tip:   "0",
			want: models.Pricing{
				Subtotal: dec("21.98"), Tax: dec("1.76"), DeliveryFee: dec("3.99"), Total: dec("27.73"),
			},
		},
		{
			name:  "free delivery above threshold",
			items: []models.OrderItem{line("15.00", 1), line("7.50", 2)},
			tip:   "0",
			want: models.Pricing{
				Subtotal: dec("30.00"), Tax: dec("2.40"), DeliveryFee: decimal.Zero, Total: dec("32.40"),
			},
		},
		{
			name:  "exactly at threshold still pays delivery",
			items: []models.OrderItem{line("25.00", 1)},
			tip:   "2.00",
			want: models.Pricing{
				Subtotal: dec("25.00"), Tax: dec("2.00"), DeliveryFee: dec("3.99"), Tip: dec("2.00"), Total: dec("32.99"),
			},
		},
		{
			name: "customizations are charged per unit",
			items: []models.OrderItem{line("8.00", 3,
				models.CustomizationOption{Name: "extra cheese", Price: dec("1.50")})},
			tip: "0",
			want: models.Pricing{
				Subtotal: dec("28.50"), Tax: dec("2.28"), DeliveryFee: decimal.Zero, Total: dec("30.78"),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Quote(tt.items, dec(tt.tip))
			assert.True(t, tt.want.Subtotal.Equal(got.Subtotal), "subtotal %s", got.Subtotal)
			assert.True(t, tt.want.Tax.Equal(got.Tax), "tax %s", got.Tax)
			assert.True(t, tt.want.DeliveryFee.Equal(got.DeliveryFee), "delivery fee %s", got.DeliveryFee)
			assert.True(t, tt.want.Tip.Equal(got.Tip), "tip %s", got.Tip)
			assert.True(t, tt.want.Total.Equal(got.Total), "total %s", got.Total)
			assert.True(t, got.Balanced())
		})
	}
}

func TestQuoteDiscount(t *testing.T) {
	policy := DefaultPolicy()
	policy.DiscountRate = dec("0.10")
	policy.MinOrderForDiscount = dec("20.00")
	policy.MaxDiscount = dec("5.00")
	calc := NewCalculator(policy)

	small := calc.Quote([]models.OrderItem{line("10.00", 1)}, decimal.Zero)
	assert.True(t, small.Discount.IsZero())

	mid := calc.Quote([]models.OrderItem{line("22.00", 1)}, decimal.Zero)
	assert.Equal(t, "2.20", mid.Discount.StringFixed(2))
	assert.True(t, mid.Balanced())

	capped := calc.Quote([]models.OrderItem{line("100.00", 1)}, decimal.Zero)
	assert.Equal(t, "5.00", capped.Discount.StringFixed(2))
	assert.Equal(t, "103.00", capped.Total.StringFixed(2))
}

func TestQuoteNeverNegative(t *testing.T) {
	policy := DefaultPolicy()
	policy.DiscountRate = dec("10")
	calc := NewCalculator(policy)

	got := calc.Quote([]models.OrderItem{line("1.00", 1)}, decimal.Zero)
	assert.True(t, got.Total.IsZero(), "total %s", got.Total)
	assert.True(t, got.Balanced())
}

func TestQuoteRoundsHalfUp(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())
	// 0.08 * 10.5625 = 0.845 rounds up to 0.85.
	got := calc.Quote([]models.OrderItem{{Subtotal: dec("10.5625")}}, decimal.Zero)
	assert.Equal(t, "0.85", got.Tax.StringFixed(2))
}
