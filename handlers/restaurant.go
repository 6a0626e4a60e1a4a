package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/ray-remotestate/foodie/access"
	"github.com/ray-remotestate/foodie/apperr"
	"github.com/ray-remotestate/foodie/database/dbhelper"
	"github.com/ray-remotestate/foodie/models"
	"github.com/shopspring/decimal"
)

type restaurantRequest struct {
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Cuisine      []string            `json:"cuisine"`
	Address      models.Address      `json:"address"`
	Contact      models.Contact      `json:"contact"`
	DeliveryInfo models.DeliveryInfo `json:"deliveryInfo"`
	IsActive     *bool               `json:"isActive"`

	// OwnerID lets an admin create a restaurant on behalf of an owner.
	OwnerID uuid.UUID `json:"ownerId"`
}

func (req restaurantRequest) validate() error {
	var result *multierror.Error
	if strings.TrimSpace(req.Name) == "" {
		result = multierror.Append(result, errors.New("name is required"))
	}
	if len(req.Cuisine) == 0 {
		result = multierror.Append(result, errors.New("at least one cuisine is required"))
	}
	if req.Address.Street == "" || req.Address.City == "" || req.Address.ZipCode == "" {
		result = multierror.Append(result, errors.New("address street, city and zipCode are required"))
	}
	if strings.TrimSpace(req.Contact.Phone) == "" {
		result = multierror.Append(result, errors.New("contact phone is required"))
	}
	d := req.DeliveryInfo
	if d.Fee.IsNegative() || d.MinimumOrder.IsNegative() || d.EstimatedTime < 0 || d.Radius < 0 {
		result = multierror.Append(result, errors.New("delivery info cannot be negative"))
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return nil
}

func (req restaurantRequest) apply(r *models.Restaurant) {
	r.Name = strings.TrimSpace(req.Name)
	r.Description = req.Description
	r.Cuisine = req.Cuisine
	r.Address = req.Address
	r.Contact = req.Contact
	r.DeliveryInfo = req.DeliveryInfo
	if req.IsActive != nil {
		r.IsActive = *req.IsActive
	}
}

// ListRestaurants is public and only shows restaurants currently taking orders.
func (h *Handler) ListRestaurants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := dbhelper.RestaurantFilter{
		Cuisine:    q.Get("cuisine"),
		ZipCode:    q.Get("zipcode"),
		ActiveOnly: true,
		Page:       pageFrom(r),
	}
	if v := q.Get("rating"); v != "" {
		rating, err := strconv.ParseFloat(v, 64)
		if err != nil || rating < 0 || rating > 5 {
			respondError(w, http.StatusBadRequest, "rating must be a number between 0 and 5")
			return
		}
		filter.MinRating = rating
	}

	restaurants, total, err := dbhelper.ListRestaurants(r.Context(), h.DB, filter)
	if err != nil {
		h.fail(w, r, err, "failed to list restaurants")
		return
	}
	respondPage(w, restaurants, total, filter.Page)
}

func (h *Handler) GetRestaurant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	restaurant, err := dbhelper.GetRestaurant(r.Context(), h.DB, id)
	if err != nil {
		h.fail(w, r, err, "failed to get restaurant")
		return
	}
	respond(w, http.StatusOK, restaurant)
}

func (h *Handler) GetRestaurantMenu(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := dbhelper.GetRestaurant(r.Context(), h.DB, id); err != nil {
		h.fail(w, r, err, "failed to get restaurant")
		return
	}
	filter := dbhelper.MenuFilter{
		RestaurantID:  id,
		Category:      r.URL.Query().Get("category"),
		AvailableOnly: true,
		Page:          pageFrom(r),
	}
	items, total, err := dbhelper.ListMenuItems(r.Context(), h.DB, filter)
	if err != nil {
		h.fail(w, r, err, "failed to list menu")
		return
	}
	respondPage(w, items, total, filter.Page)
}

func (h *Handler) CreateRestaurant(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	if err := h.Policy.Authorize(a, access.CreateRestaurant, access.Resource{}); err != nil {
		h.fail(w, r, err, "")
		return
	}
	var req restaurantRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		h.fail(w, r, err, "")
		return
	}

	restaurant := &models.Restaurant{OwnerID: a.ID, IsActive: true}
	if req.OwnerID != uuid.Nil && a.Has(models.RoleAdmin) {
		restaurant.OwnerID = req.OwnerID
	}
	req.apply(restaurant)
	if restaurant.DeliveryInfo.EstimatedTime == 0 {
		restaurant.DeliveryInfo.EstimatedTime = 30
	}
	if err := dbhelper.CreateRestaurant(r.Context(), h.DB, restaurant); err != nil {
		h.fail(w, r, err, "failed to create restaurant")
		return
	}
	respond(w, http.StatusCreated, restaurant)
}

// ownedRestaurant loads a restaurant and checks the caller may manage it.
func (h *Handler) ownedRestaurant(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*models.Restaurant, bool) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return nil, false
	}
	restaurant, err := dbhelper.GetRestaurant(r.Context(), h.DB, id)
	if err != nil {
		h.fail(w, r, err, "failed to get restaurant")
		return nil, false
	}
	if err := h.Policy.Authorize(a, access.ManageRestaurant, access.Resource{OwnerID: restaurant.OwnerID}); err != nil {
		h.fail(w, r, err, "")
		return nil, false
	}
	return restaurant, true
}

func (h *Handler) UpdateRestaurant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	restaurant, ok := h.ownedRestaurant(w, r, id)
	if !ok {
		return
	}
	var req restaurantRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		h.fail(w, r, err, "")
		return
	}

	req.apply(restaurant)
	if err := dbhelper.UpdateRestaurant(r.Context(), h.DB, restaurant); err != nil {
		h.fail(w, r, err, "failed to update restaurant")
		return
	}
	respond(w, http.StatusOK, restaurant)
}

// DeleteRestaurant archives the restaurant; its orders keep pointing at it.
func (h *Handler) DeleteRestaurant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, ok := h.ownedRestaurant(w, r, id); !ok {
		return
	}
	if err := dbhelper.ArchiveRestaurant(r.Context(), h.DB, id); err != nil {
		h.fail(w, r, err, "failed to delete restaurant")
		return
	}
	respondMessage(w, http.StatusOK, "restaurant deleted")
}

func parseDecimalParam(r *http.Request, key string) (decimal.NullDecimal, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %s must be a non-negative number", apperr.ErrValidation, key)
	}
	return decimal.NewNullDecimal(d), nil
}
