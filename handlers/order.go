package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/ray-remotestate/foodie/access"
	"github.com/ray-remotestate/foodie/database/dbhelper"
	"github.com/ray-remotestate/foodie/events"
	"github.com/ray-remotestate/foodie/models"
	"github.com/ray-remotestate/foodie/ordering"
)

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req ordering.CreateOrderRequest
	if !decode(w, r, &req) {
		return
	}

	order, err := h.Engine.CreateOrder(r.Context(), a, req)
	if err != nil {
		h.fail(w, r, err, "failed to create order")
		return
	}
	h.publish(r.Context(), events.OrderCreated, order)
	respond(w, http.StatusCreated, order)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.Engine.GetOrder(r.Context(), id, a)
	if err != nil {
		h.fail(w, r, err, "failed to get order")
		return
	}
	respond(w, http.StatusOK, order)
}

// MyOrders lists the caller's own orders, newest first.
func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	filter := dbhelper.OrderFilter{
		CustomerID: a.ID,
		Status:     models.OrderStatus(r.URL.Query().Get("status")),
		Page:       pageFrom(r),
	}
	if a.Has(models.RoleDelivery) && !a.Has(models.RoleCustomer) {
		filter.CustomerID, filter.DriverID = uuid.Nil, a.ID
	}
	orders, total, err := h.Orders.ListOrders(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "failed to list orders")
		return
	}
	respondPage(w, orders, total, filter.Page)
}

// ListOrders shows admins every order and restaurant owners the orders of their restaurants.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.scopedFilter(w, r)
	if !ok {
		return
	}
	orders, total, err := h.Orders.ListOrders(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "failed to list orders")
		return
	}
	respondPage(w, orders, total, filter.Page)
}

func (h *Handler) OrderStats(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.scopedFilter(w, r)
	if !ok {
		return
	}
	stats, err := h.Orders.OrderStats(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "failed to compute order stats")
		return
	}
	respond(w, http.StatusOK, stats)
}

func (h *Handler) scopedFilter(w http.ResponseWriter, r *http.Request) (dbhelper.OrderFilter, bool) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return dbhelper.OrderFilter{}, false
	}
	restaurantID, err := queryUUID(r, "restaurant")
	if err != nil {
		h.fail(w, r, err, "")
		return dbhelper.OrderFilter{}, false
	}
	status := models.OrderStatus(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		respondError(w, http.StatusBadRequest, "unknown status")
		return dbhelper.OrderFilter{}, false
	}
	filter := dbhelper.OrderFilter{RestaurantID: restaurantID, Status: status, Page: pageFrom(r)}

	switch {
	case a.Has(models.RoleAdmin):
	case a.Has(models.RoleRestaurant):
		ids, err := dbhelper.OwnedRestaurantIDs(r.Context(), h.DB, a.ID)
		if err != nil {
			h.fail(w, r, err, "failed to load restaurants")
			return dbhelper.OrderFilter{}, false
		}
		if ids == nil {
			ids = []uuid.UUID{}
		}
		filter.RestaurantIDs = ids
	default:
		respondError(w, http.StatusForbidden, "forbidden: insufficient role")
		return dbhelper.OrderFilter{}, false
	}
	return filter, true
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req request
	if !decode(w, r, &req) {
		return
	}

	order, err := h.Engine.AdvanceStatus(r.Context(), id, models.OrderStatus(req.Status), req.Note, a)
	if err != nil {
		h.fail(w, r, err, "failed to update order status")
		return
	}
	if order.Status == models.StatusCancelled {
		h.publish(r.Context(), events.OrderCancelled, order)
	} else {
		h.publish(r.Context(), events.OrderStatusChanged, order)
	}
	respond(w, http.StatusOK, order)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Reason string `json:"reason"`
	}
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req request
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	order, err := h.Engine.CancelOrder(r.Context(), id, req.Reason, a)
	if err != nil {
		h.fail(w, r, err, "failed to cancel order")
		return
	}
	h.publish(r.Context(), events.OrderCancelled, order)
	respond(w, http.StatusOK, order)
}

func (h *Handler) RateOrder(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ordering.RatingRequest
	if !decode(w, r, &req) {
		return
	}

	order, err := h.Engine.RateOrder(r.Context(), id, req, a)
	if err != nil {
		h.fail(w, r, err, "failed to rate order")
		return
	}
	h.publish(r.Context(), events.OrderRated, order)
	respond(w, http.StatusOK, order)
}

func (h *Handler) RefundOrder(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ordering.RefundRequest
	if !decode(w, r, &req) {
		return
	}

	order, err := h.Engine.RecordRefund(r.Context(), id, req, a)
	if err != nil {
		h.fail(w, r, err, "failed to refund order")
		return
	}
	h.publish(r.Context(), events.OrderRefunded, order)
	respond(w, http.StatusOK, order)
}

func (h *Handler) AssignDriver(w http.ResponseWriter, r *http.Request) {
	type request struct {
		DriverID uuid.UUID `json:"driverId"`
	}
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req request
	if !decode(w, r, &req) {
		return
	}

	order, err := h.Engine.AssignDriver(r.Context(), id, req.DriverID, a)
	if err != nil {
		h.fail(w, r, err, "failed to assign driver")
		return
	}
	h.publish(r.Context(), events.OrderDriverAssigned, order)
	respond(w, http.StatusOK, order)
}

// DeleteOrder removes an order outright. Admin only.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Policy.Authorize(a, access.DeleteOrder, access.Resource{}); err != nil {
		h.fail(w, r, err, "")
		return
	}

	order, err := h.Engine.GetOrder(r.Context(), id, a)
	if err != nil {
		h.fail(w, r, err, "failed to load order")
		return
	}
	if err := h.Orders.DeleteOrder(r.Context(), id); err != nil {
		h.fail(w, r, err, "failed to delete order")
		return
	}
	h.publish(r.Context(), events.OrderDeleted, order)
	respondMessage(w, http.StatusOK, "order deleted")
}
