package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ray-remotestate/foodie/access"
	"github.com/ray-remotestate/foodie/apperr"
	"github.com/ray-remotestate/foodie/database/dbhelper"
	"github.com/ray-remotestate/foodie/events"
	"github.com/ray-remotestate/foodie/middlewares"
	"github.com/ray-remotestate/foodie/models"
	"github.com/ray-remotestate/foodie/ordering"
	"github.com/ray-remotestate/foodie/utils"
	"github.com/sirupsen/logrus"
)

// OrderQueries serves the order listings the engine does not cover.
type OrderQueries interface {
	ListOrders(ctx context.Context, filter dbhelper.OrderFilter) ([]models.Order, int, error)
	OrderStats(ctx context.Context, filter dbhelper.OrderFilter) (models.OrderStats, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	DB     *sql.DB
	Engine *ordering.Engine
	Orders OrderQueries
	Policy access.Policy
	Tokens *utils.TokenIssuer
	Events events.Publisher
	Log    logrus.FieldLogger
}

const maxBodyBytes = 1 << 20

type envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Count      *int        `json:"count,omitempty"`
	Total      *int        `json:"total,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
	Data       any         `json:"data,omitempty"`
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: true, Message: message})
}

func respondPage[T any](w http.ResponseWriter, items []T, total int, page dbhelper.Page) {
	count := len(items)
	limit := page.Limit
	if limit < 1 {
		limit = dbhelper.DefaultLimit
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Count:   &count,
		Total:   &total,
		Pagination: &pagination{
			Page:  max(page.Number, 1),
			Limit: limit,
			Pages: int(math.Ceil(float64(total) / float64(limit))),
		},
		Data: items,
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrItemUnavailable),
		errors.Is(err, apperr.ErrInvalidRating):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusForbidden
	case apperr.IsGuard(err),
		errors.Is(err, apperr.ErrConflict),
		errors.Is(err, apperr.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrTransient):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail writes err with its mapped status. Server errors are logged and their details hidden.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.Log.WithError(err).WithField("path", r.URL.Path).Error(msg)
		if status == http.StatusServiceUnavailable {
			respondError(w, status, "service temporarily unavailable, retry later")
			return
		}
		respondError(w, status, msg)
		return
	}
	respondError(w, status, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// actor returns the authenticated caller. Routes behind AuthMiddleware always have one.
func actor(r *http.Request) (access.Actor, *middlewares.Claims, error) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		return access.Actor{}, nil, err
	}
	return claims.Actor(), claims, nil
}

func (h *Handler) requireActor(w http.ResponseWriter, r *http.Request) (access.Actor, bool) {
	a, _, err := actor(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return access.Actor{}, false
	}
	return a, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

func pageFrom(r *http.Request) dbhelper.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	p := dbhelper.Page{Number: page, Limit: limit}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit < 1 {
		p.Limit = dbhelper.DefaultLimit
	}
	if p.Limit > dbhelper.MaxLimit {
		p.Limit = dbhelper.MaxLimit
	}
	return p
}

func queryUUID(r *http.Request, key string) (uuid.UUID, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a valid id", apperr.ErrValidation, key)
	}
	return id, nil
}

// publish announces an order change. Failures never fail the request.
func (h *Handler) publish(ctx context.Context, t events.Type, order *models.Order) {
	if h.Events == nil {
		return
	}
	event := events.NewOrderEvent(t, order)
	if err := h.Events.Publish(ctx, event); err != nil {
		h.Log.WithError(err).WithFields(logrus.Fields{
			"order_number": order.OrderNumber,
			"event":        event.Type,
		}).Warn("failed to publish order event")
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"alive": true, "database": "up"}
	if h.DB == nil || h.DB.PingContext(r.Context()) != nil {
		status["database"] = "down"
		writeJSON(w, http.StatusServiceUnavailable, envelope{Success: false, Data: status})
		return
	}
	respond(w, http.StatusOK, status)
}
