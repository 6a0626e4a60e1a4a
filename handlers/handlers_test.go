package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/ray-remotestate/foodie/access"
	"github.com/ray-remotestate/foodie/apperr"
	"github.com/ray-remotestate/foodie/database/dbhelper"
	"github.com/ray-remotestate/foodie/events"
	"github.com/ray-remotestate/foodie/handlers"
	"github.com/ray-remotestate/foodie/models"
	"github.com/ray-remotestate/foodie/ordering"
	"github.com/ray-remotestate/foodie/ordering/orderingtest"
	"github.com/ray-remotestate/foodie/server"
	"github.com/ray-remotestate/foodie/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

var secret = []byte("handlers-test-secret")

type recordingPublisher struct {
	mu     sync.Mutex
	err    error
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []events.Type
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

// orderQueries serves listings straight from the in-memory store.
type orderQueries struct {
	store   *orderingtest.Store
	filters []dbhelper.OrderFilter
	deleted []uuid.UUID
}

func (q *orderQueries) ListOrders(_ context.Context, filter dbhelper.OrderFilter) ([]models.Order, int, error) {
	q.filters = append(q.filters, filter)
	var orders []models.Order
	for _, o := range q.store.Orders() {
		if filter.CustomerID != uuid.Nil && o.CustomerID != filter.CustomerID {
			continue
		}
		if filter.DriverID != uuid.Nil && (o.DriverID == nil || *o.DriverID != filter.DriverID) {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		orders = append(orders, *o)
	}
	return orders, len(orders), nil
}

func (q *orderQueries) OrderStats(context.Context, dbhelper.OrderFilter) (models.OrderStats, error) {
	return models.OrderStats{}, nil
}

func (q *orderQueries) DeleteOrder(_ context.Context, id uuid.UUID) error {
	q.deleted = append(q.deleted, id)
	return nil
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

type response struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Count      *int            `json:"count"`
	Total      *int            `json:"total"`
	Pagination *pagination     `json:"pagination"`
	Data       json.RawMessage `json:"data"`
}

type HandlerSuite struct {
	suite.Suite
	router    http.Handler
	catalog   *orderingtest.Catalog
	store     *orderingtest.Store
	queries   *orderQueries
	publisher *recordingPublisher
	tokens    *utils.TokenIssuer
	logs      *test.Hook

	restaurant models.Restaurant
	burger     models.MenuItem
	customer   uuid.UUID
	owner      uuid.UUID
	driver     uuid.UUID
	admin      uuid.UUID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.customer, s.owner, s.driver, s.admin = uuid.New(), uuid.New(), uuid.New(), uuid.New()

	catalog := orderingtest.NewCatalog()
	s.catalog = catalog
	s.restaurant = catalog.AddRestaurant(models.Restaurant{
		Name:         "Burger Barn",
		IsActive:     true,
		OwnerID:      s.owner,
		DeliveryInfo: models.DeliveryInfo{EstimatedTime: 20},
	})
	s.burger = catalog.AddMenuItem(models.MenuItem{
		RestaurantID: s.restaurant.ID,
		Name:         "Classic Burger",
		Price:        decimal.RequireFromString("10.99"),
		IsAvailable:  true,
	})

	logger, hook := test.NewNullLogger()
	s.logs = hook
	s.store = orderingtest.NewStore()
	s.queries = &orderQueries{store: s.store}
	s.publisher = &recordingPublisher{}
	s.tokens = utils.NewTokenIssuer(secret, 0, 0)

	engine := ordering.NewEngine(ordering.Config{
		Catalog:    catalog,
		Store:      s.store,
		Numbers:    ordering.NewNumberer(ordering.NewLocalSequence(0), "", nil),
		Authorizer: access.Policy{},
		Drivers:    orderingtest.Drivers{s.driver: true},
		Calculator: ordering.NewCalculator(ordering.DefaultPolicy()),
		Logger:     logger,
	})
	h := &handlers.Handler{
		Engine: engine,
		Orders: s.queries,
		Policy: access.Policy{},
		Tokens: s.tokens,
		Events: s.publisher,
		Log:    logger,
	}
	s.router = server.SetupRoutes(h, server.Options{Secret: secret, Log: logger}).Router
}

func (s *HandlerSuite) do(method, path string, user uuid.UUID, role models.Role, body any) (*httptest.ResponseRecorder, response) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != uuid.Nil {
		token, err := s.tokens.GenerateAccessToken(user, []string{string(role)})
		s.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp response
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func (s *HandlerSuite) orderBody() map[string]any {
	return map[string]any{
		"restaurant": s.restaurant.ID,
		"items":      []map[string]any{{"menuItem": s.burger.ID, "quantity": 2}},
		"deliveryAddress": map[string]any{
			"street": "1 Main St", "city": "Springfield", "state": "IL", "zipCode": "62701",
		},
		"paymentMethod": "card",
	}
}

func (s *HandlerSuite) placeOrder() models.Order {
	rec, resp := s.do(http.MethodPost, "/api/orders", s.customer, models.RoleCustomer, s.orderBody())
	s.Require().Equal(http.StatusCreated, rec.Code, resp.Message)
	var order models.Order
	s.Require().NoError(json.Unmarshal(resp.Data, &order))
	return order
}

func (s *HandlerSuite) TestCreateOrder() {
	order := s.placeOrder()

	s.Equal(models.StatusPending, order.Status)
	s.Equal(s.customer, order.CustomerID)
	s.Equal("27.73", order.Pricing.Total.StringFixed(2))
	s.Regexp(`^FE\d{8}-000001$`, order.OrderNumber)
	s.Equal([]events.Type{events.OrderCreated}, s.publisher.types())
}

func (s *HandlerSuite) TestCreateOrderRejections() {
	rec, _ := s.do(http.MethodPost, "/api/orders", uuid.Nil, "", s.orderBody())
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/orders", s.owner, models.RoleRestaurant, s.orderBody())
	s.Equal(http.StatusForbidden, rec.Code)

	body := s.orderBody()
	body["items"] = []map[string]any{}
	rec, resp := s.do(http.MethodPost, "/api/orders", s.customer, models.RoleCustomer, body)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.False(resp.Success)
	s.Contains(resp.Message, "at least one item")

	body = s.orderBody()
	body["items"] = []map[string]any{{"menuItem": uuid.New(), "quantity": 1}}
	rec, _ = s.do(http.MethodPost, "/api/orders", s.customer, models.RoleCustomer, body)
	s.Equal(http.StatusNotFound, rec.Code)

	s.Empty(s.store.Orders())
	s.Empty(s.publisher.types())
}

func (s *HandlerSuite) TestGetOrder() {
	order := s.placeOrder()
	path := "/api/orders/" + order.ID.String()

	rec, _ := s.do(http.MethodGet, path, s.customer, models.RoleCustomer, nil)
	s.Equal(http.StatusOK, rec.Code)
	rec, _ = s.do(http.MethodGet, path, s.owner, models.RoleRestaurant, nil)
	s.Equal(http.StatusOK, rec.Code)
	rec, _ = s.do(http.MethodGet, path, uuid.New(), models.RoleCustomer, nil)
	s.Equal(http.StatusForbidden, rec.Code)
	rec, _ = s.do(http.MethodGet, "/api/orders/"+uuid.NewString(), s.admin, models.RoleAdmin, nil)
	s.Equal(http.StatusNotFound, rec.Code)
	rec, _ = s.do(http.MethodGet, "/api/orders/not-a-uuid", s.admin, models.RoleAdmin, nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestStatusFlow() {
	order := s.placeOrder()
	path := fmt.Sprintf("/api/orders/%s/status", order.ID)

	rec, resp := s.do(http.MethodPut, path, s.owner, models.RoleRestaurant, map[string]string{"status": "confirmed"})
	s.Require().Equal(http.StatusOK, rec.Code, resp.Message)

	rec, _ = s.do(http.MethodPut, path, s.owner, models.RoleRestaurant, map[string]string{"status": "pending"})
	s.Equal(http.StatusConflict, rec.Code)

	rec, _ = s.do(http.MethodPut, path, s.owner, models.RoleRestaurant, map[string]string{"status": "teleported"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodPut, path, s.customer, models.RoleCustomer, map[string]string{"status": "preparing"})
	s.Equal(http.StatusForbidden, rec.Code)

	s.Equal([]events.Type{events.OrderCreated, events.OrderStatusChanged}, s.publisher.types())
}

func (s *HandlerSuite) TestOwnerManagesOrdersOfArchivedRestaurant() {
	order := s.placeOrder()
	s.catalog.ArchiveRestaurant(s.restaurant.ID)

	rec, _ := s.do(http.MethodGet, "/api/orders/"+order.ID.String(), s.owner, models.RoleRestaurant, nil)
	s.Equal(http.StatusOK, rec.Code)
	rec, resp := s.do(http.MethodPut, fmt.Sprintf("/api/orders/%s/status", order.ID), s.owner, models.RoleRestaurant, map[string]string{"status": "confirmed"})
	s.Equal(http.StatusOK, rec.Code, resp.Message)

	rec, _ = s.do(http.MethodPost, "/api/orders", s.customer, models.RoleCustomer, s.orderBody())
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestCreateOrderTipTooLarge() {
	body := s.orderBody()
	body["tip"] = "99999999999"
	rec, resp := s.do(http.MethodPost, "/api/orders", s.customer, models.RoleCustomer, body)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(resp.Message, "tip cannot exceed")
}

func (s *HandlerSuite) TestCancelOrder() {
	order := s.placeOrder()
	path := fmt.Sprintf("/api/orders/%s/cancel", order.ID)

	rec, resp := s.do(http.MethodPut, path, s.customer, models.RoleCustomer, map[string]string{"reason": "changed my mind"})
	s.Require().Equal(http.StatusOK, rec.Code, resp.Message)
	var cancelled models.Order
	s.Require().NoError(json.Unmarshal(resp.Data, &cancelled))
	s.Equal(models.StatusCancelled, cancelled.Status)
	s.Require().NotNil(cancelled.Cancellation)
	s.Equal(models.RoleCustomer, cancelled.Cancellation.CancelledBy)

	rec, _ = s.do(http.MethodPut, path, s.customer, models.RoleCustomer, nil)
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal([]events.Type{events.OrderCreated, events.OrderCancelled}, s.publisher.types())
}

func (s *HandlerSuite) TestRateOrder() {
	order := s.placeOrder()
	rate := fmt.Sprintf("/api/orders/%s/rate", order.ID)
	rating := map[string]any{"food": 5, "delivery": 4, "overall": 5}

	rec, _ := s.do(http.MethodPut, rate, s.customer, models.RoleCustomer, rating)
	s.Equal(http.StatusConflict, rec.Code, "pending orders cannot be rated")

	status := fmt.Sprintf("/api/orders/%s/status", order.ID)
	for _, next := range []string{"confirmed", "preparing", "ready", "picked-up", "delivered"} {
		rec, resp := s.do(http.MethodPut, status, s.owner, models.RoleRestaurant, map[string]string{"status": next})
		s.Require().Equal(http.StatusOK, rec.Code, resp.Message)
	}

	rec, _ = s.do(http.MethodPut, rate, s.customer, models.RoleCustomer, map[string]any{"food": 6, "delivery": 4, "overall": 5})
	s.Equal(http.StatusBadRequest, rec.Code)
	rec, _ = s.do(http.MethodPut, rate, s.owner, models.RoleRestaurant, rating)
	s.Equal(http.StatusForbidden, rec.Code)
	rec, _ = s.do(http.MethodPut, rate, s.customer, models.RoleCustomer, rating)
	s.Equal(http.StatusOK, rec.Code)
	rec, _ = s.do(http.MethodPut, rate, s.customer, models.RoleCustomer, rating)
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *HandlerSuite) TestAssignDriver() {
	order := s.placeOrder()
	path := fmt.Sprintf("/api/orders/%s/driver", order.ID)

	rec, _ := s.do(http.MethodPut, path, s.owner, models.RoleRestaurant, map[string]any{"driverId": uuid.New()})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, resp := s.do(http.MethodPut, path, s.owner, models.RoleRestaurant, map[string]any{"driverId": s.driver})
	s.Require().Equal(http.StatusOK, rec.Code, resp.Message)

	rec, _ = s.do(http.MethodGet, "/api/orders/"+order.ID.String(), s.driver, models.RoleDelivery, nil)
	s.Equal(http.StatusOK, rec.Code)

	rec, resp = s.do(http.MethodGet, "/api/orders/mine", s.driver, models.RoleDelivery, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Require().NotNil(resp.Count)
	s.Equal(1, *resp.Count)
}

func (s *HandlerSuite) TestListOrders() {
	s.placeOrder()
	s.placeOrder()

	rec, resp := s.do(http.MethodGet, "/api/orders?limit=1&page=1", s.admin, models.RoleAdmin, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.True(resp.Success)
	s.Require().NotNil(resp.Total)
	s.Equal(2, *resp.Total)
	s.Require().NotNil(resp.Pagination)
	s.Equal(1, resp.Pagination.Limit)
	s.Equal(2, resp.Pagination.Pages)

	rec, _ = s.do(http.MethodGet, "/api/orders", s.customer, models.RoleCustomer, nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/orders?status=lost", s.admin, models.RoleAdmin, nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, resp = s.do(http.MethodGet, "/api/orders/mine", s.customer, models.RoleCustomer, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(2, *resp.Total)
	s.Equal(s.customer, s.queries.filters[len(s.queries.filters)-1].CustomerID)
}

func (s *HandlerSuite) TestRefundAndDelete() {
	order := s.placeOrder()
	refund := fmt.Sprintf("/api/orders/%s/refund", order.ID)
	body := map[string]any{"amount": "5.00", "reason": "cold food"}

	rec, _ := s.do(http.MethodPut, refund, s.customer, models.RoleCustomer, body)
	s.Equal(http.StatusForbidden, rec.Code)

	rec, _ = s.do(http.MethodPut, fmt.Sprintf("/api/orders/%s/cancel", order.ID), s.customer, models.RoleCustomer, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec, resp := s.do(http.MethodPut, refund, s.admin, models.RoleAdmin, body)
	s.Require().Equal(http.StatusOK, rec.Code, resp.Message)

	rec, _ = s.do(http.MethodDelete, "/api/admin/orders/"+order.ID.String(), s.customer, models.RoleCustomer, nil)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Empty(s.queries.deleted)

	rec, _ = s.do(http.MethodDelete, "/api/admin/orders/"+order.ID.String(), s.admin, models.RoleAdmin, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal([]uuid.UUID{order.ID}, s.queries.deleted)
	s.Contains(s.publisher.types(), events.OrderDeleted)
}

func (s *HandlerSuite) TestPublishFailureDoesNotFailRequest() {
	s.publisher.err = errors.New("broker down")

	s.placeOrder()

	var warned bool
	for _, entry := range s.logs.AllEntries() {
		if entry.Message == "failed to publish order event" {
			warned = true
			s.Equal(logrus.WarnLevel, entry.Level)
			s.Equal(string(events.OrderCreated), fmt.Sprint(entry.Data["event"]))
		}
	}
	s.True(warned)
	s.Len(s.store.Orders(), 1)
}

func (s *HandlerSuite) TestHealthWithoutDatabase() {
	rec, resp := s.do(http.MethodGet, "/health", uuid.Nil, "", nil)
	s.Equal(http.StatusServiceUnavailable, rec.Code)
	s.False(resp.Success)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("order x: %w", apperr.ErrNotFound), http.StatusNotFound},
		{apperr.ErrValidation, http.StatusBadRequest},
		{apperr.ErrItemUnavailable, http.StatusBadRequest},
		{apperr.ErrInvalidRating, http.StatusBadRequest},
		{apperr.ErrUnauthorized, http.StatusForbidden},
		{apperr.ErrInvalidTransition, http.StatusConflict},
		{apperr.ErrNotCancellable, http.StatusConflict},
		{apperr.ErrAlreadyRated, http.StatusConflict},
		{apperr.ErrConflict, http.StatusConflict},
		{apperr.ErrDuplicate, http.StatusConflict},
		{apperr.ErrTransient, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, handlers.StatusFor(tc.err), tc.err.Error())
	}
}

func (s *HandlerSuite) TestRequestValidationBeforeStorage() {
	rec, resp := s.do(http.MethodPost, "/register", uuid.Nil, "", map[string]string{"email": "nope", "password": "123"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(resp.Message, "a valid email is required")
	s.Contains(resp.Message, "password must be at least 6 characters")

	rec, _ = s.do(http.MethodGet, "/restaurants?rating=9", uuid.Nil, "", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
	rec, _ = s.do(http.MethodGet, "/menu?priceMin=-1", uuid.Nil, "", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
	rec, _ = s.do(http.MethodGet, "/menu?restaurant=abc", uuid.Nil, "", nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/restaurants", s.customer, models.RoleCustomer, map[string]string{"name": "Mine"})
	s.Equal(http.StatusForbidden, rec.Code)
	rec, resp = s.do(http.MethodPost, "/api/restaurants", s.owner, models.RoleRestaurant, map[string]string{"name": "Mine"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(resp.Message, "at least one cuisine is required")

	rec, _ = s.do(http.MethodPost, "/api/menu", s.owner, models.RoleRestaurant, map[string]string{"name": "Soup"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/admin/users", s.owner, models.RoleRestaurant, nil)
	s.Equal(http.StatusForbidden, rec.Code)
}
