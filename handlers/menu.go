package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/ray-remotestate/foodie/apperr"
	"github.com/ray-remotestate/foodie/database/dbhelper"
	"github.com/ray-remotestate/foodie/models"
	"github.com/shopspring/decimal"
)

type menuItemRequest struct {
	RestaurantID    uuid.UUID                    `json:"restaurant"`
	Name            string                       `json:"name"`
	Description     string                       `json:"description"`
	Price           decimal.Decimal              `json:"price"`
	Category        string                       `json:"category"`
	IsAvailable     *bool                        `json:"isAvailable"`
	IsPopular       bool                         `json:"isPopular"`
	PreparationTime int                          `json:"preparationTime"`
	Customizations  []models.CustomizationOption `json:"customizations"`
	Allergens       []string                     `json:"allergens"`
}

func (req menuItemRequest) validate() error {
	var result *multierror.Error
	if strings.TrimSpace(req.Name) == "" {
		result = multierror.Append(result, errors.New("name is required"))
	}
	if req.Price.IsNegative() {
		result = multierror.Append(result, errors.New("price cannot be negative"))
	}
	if !slices.Contains(models.MenuCategories, req.Category) {
		result = multierror.Append(result, fmt.Errorf("category must be one of %s", strings.Join(models.MenuCategories, ", ")))
	}
	if req.PreparationTime < 0 {
		result = multierror.Append(result, errors.New("preparation time cannot be negative"))
	}
	seen := map[string]bool{}
	for _, opt := range req.Customizations {
		if opt.Name == "" || opt.Price.IsNegative() {
			result = multierror.Append(result, errors.New("customizations need a name and a non-negative price"))
			break
		}
		if seen[opt.Name] {
			result = multierror.Append(result, fmt.Errorf("duplicate customization %q", opt.Name))
		}
		seen[opt.Name] = true
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return nil
}

func (req menuItemRequest) apply(m *models.MenuItem) {
	m.Name = strings.TrimSpace(req.Name)
	m.Description = req.Description
	m.Price = req.Price.Round(2)
	m.Category = req.Category
	m.IsPopular = req.IsPopular
	m.PreparationTime = req.PreparationTime
	m.Customizations = req.Customizations
	m.Allergens = req.Allergens
	if req.IsAvailable != nil {
		m.IsAvailable = *req.IsAvailable
	}
}

// ListMenu is public: available items of live restaurants, with optional filters and
// a full-text q search.
func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := queryUUID(r, "restaurant")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	minPrice, err := parseDecimalParam(r, "priceMin")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	maxPrice, err := parseDecimalParam(r, "priceMax")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	filter := dbhelper.MenuFilter{
		RestaurantID:  restaurantID,
		Category:      r.URL.Query().Get("category"),
		MinPrice:      minPrice,
		MaxPrice:      maxPrice,
		Search:        r.URL.Query().Get("q"),
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

func (h *Handler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	item, err := dbhelper.GetMenuItem(r.Context(), h.DB, id)
	if err != nil {
		h.fail(w, r, err, "failed to get menu item")
		return
	}
	respond(w, http.StatusOK, item)
}

func (h *Handler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if !decode(w, r, &req) {
		return
	}
	if req.RestaurantID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "restaurant is required")
		return
	}
	if _, ok := h.ownedRestaurant(w, r, req.RestaurantID); !ok {
		return
	}
	if err := req.validate(); err != nil {
		h.fail(w, r, err, "")
		return
	}

	item := &models.MenuItem{RestaurantID: req.RestaurantID, IsAvailable: true}
	req.apply(item)
	if err := dbhelper.CreateMenuItem(r.Context(), h.DB, item); err != nil {
		h.fail(w, r, err, "failed to create menu item")
		return
	}
	respond(w, http.StatusCreated, item)
}

func (h *Handler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	item, err := dbhelper.GetMenuItem(r.Context(), h.DB, id)
	if err != nil {
		h.fail(w, r, err, "failed to get menu item")
		return
	}
	if _, ok := h.ownedRestaurant(w, r, item.RestaurantID); !ok {
		return
	}
	var req menuItemRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		h.fail(w, r, err, "")
		return
	}

	req.apply(item)
	if err := dbhelper.UpdateMenuItem(r.Context(), h.DB, item); err != nil {
		h.fail(w, r, err, "failed to update menu item")
		return
	}
	respond(w, http.StatusOK, item)
}

// DeleteMenuItem archives the item. Placed orders keep their own snapshot of it.
func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	item, err := dbhelper.GetMenuItem(r.Context(), h.DB, id)
	if err != nil {
		h.fail(w, r, err, "failed to get menu item")
		return
	}
	if _, ok := h.ownedRestaurant(w, r, item.RestaurantID); !ok {
		return
	}
	if err := dbhelper.ArchiveMenuItem(r.Context(), h.DB, id); err != nil {
		h.fail(w, r, err, "failed to delete menu item")
		return
	}
	respondMessage(w, http.StatusOK, "menu item deleted")
}
