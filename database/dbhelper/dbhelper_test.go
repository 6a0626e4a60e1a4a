package dbhelper

import (
	"testing"

	"github.com/google/uuid"
	"github.com/ray-remotestate/foodie/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageOffset(t *testing.T) {
	assert.Equal(t, 0, Page{}.Offset())
	assert.Equal(t, 40, Page{Number: 3, Limit: 20}.Offset())
	assert.Equal(t, MaxLimit, Page{Limit: 1000}.normalize().Limit)
	assert.Equal(t, DefaultLimit, Page{Number: -2}.normalize().Limit)
}

func TestJSONColumn(t *testing.T) {
	var rating *models.OrderRating
	v, err := asJSON(&rating).Value()
	require.NoError(t, err)
	assert.Nil(t, v, "nil pointer is stored as NULL")

	require.NoError(t, asJSON(&rating).Scan(nil))
	assert.Nil(t, rating)

	require.NoError(t, asJSON(&rating).Scan([]byte(`{"food":5,"delivery":4,"overall":5}`)))
	require.NotNil(t, rating)
	assert.Equal(t, 4, rating.Delivery)

	var history []models.TrackingEntry
	require.NoError(t, asJSON(&history).Scan(`[{"status":"confirmed"}]`))
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusConfirmed, history[0].Status)

	assert.Error(t, asJSON(&history).Scan(42))
}

func TestOrderFilterWhere(t *testing.T) {
	var a args
	cond := OrderFilter{CustomerID: uuid.New(), Status: models.StatusPending}.where(&a)
	assert.Equal(t, "TRUE AND o.customer_id = $1 AND o.status = $2", cond)
	assert.Len(t, a, 2)

	a = nil
	cond = OrderFilter{RestaurantIDs: []uuid.UUID{}}.where(&a)
	assert.Equal(t, "TRUE AND o.restaurant_id = ANY($1::uuid[])", cond)
}
