// Package orderingtest provides in-memory implementations of the ordering engine's
// dependencies for tests.
package orderingtest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ray-remotestate/foodie/apperr"
	"github.com/ray-remotestate/foodie/models"
)

// Catalog is a map-backed ordering.Catalog.
type Catalog struct {
	mu          sync.RWMutex
	restaurants map[uuid.UUID]models.Restaurant
	items       map[uuid.UUID]models.MenuItem
	archived    map[uuid.UUID]bool
}

func NewCatalog() *Catalog {
	return &Catalog{
		restaurants: map[uuid.UUID]models.Restaurant{},
		items:       map[uuid.UUID]models.MenuItem{},
		archived:    map[uuid.UUID]bool{},
	}
}

func (c *Catalog) AddRestaurant(r models.Restaurant) models.Restaurant {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	c.restaurants[r.ID] = r
	return r
}

func (c *Catalog) AddMenuItem(m models.MenuItem) models.MenuItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	c.items[m.ID] = m
	return m
}

func (c *Catalog) GetRestaurant(_ context.Context, id uuid.UUID) (*models.Restaurant, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.restaurants[id]
	if !ok || c.archived[id] {
		return nil, fmt.Errorf("restaurant %s: %w", id, apperr.ErrNotFound)
	}
	return &r, nil
}

// ArchiveRestaurant hides the restaurant from GetRestaurant but keeps its owner.
func (c *Catalog) ArchiveRestaurant(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.archived[id] = true
}

func (c *Catalog) RestaurantOwner(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.restaurants[id]
	if !ok {
		return uuid.Nil, fmt.Errorf("restaurant %s: %w", id, apperr.ErrNotFound)
	}
	return r.OwnerID, nil
}

func (c *Catalog) GetMenuItem(_ context.Context, id uuid.UUID) (*models.MenuItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.items[id]
	if !ok {
		return nil, fmt.Errorf("menu item %s: %w", id, apperr.ErrNotFound)
	}
	return &m, nil
}

// Store is a map-backed ordering.Store with the same version check as the SQL store.
type Store struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.Order
	// Err, when set, is returned from every call.
	Err error
}

func NewStore() *Store {
	return &Store{orders: map[uuid.UUID]*models.Order{}}
}

func (s *Store) CreateOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.orders[order.ID]; ok {
		return apperr.ErrDuplicate
	}
	for _, o := range s.orders {
		if o.OrderNumber == order.OrderNumber {
			return fmt.Errorf("order number %s: %w", order.OrderNumber, apperr.ErrDuplicate)
		}
	}
	s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (s *Store) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, apperr.ErrNotFound)
	}
	return cloneOrder(o), nil
}

func (s *Store) UpdateOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	current, ok := s.orders[order.ID]
	if !ok {
		return fmt.Errorf("order %s: %w", order.ID, apperr.ErrNotFound)
	}
	if current.Version != order.Version {
		return fmt.Errorf("order %s: %w", order.ID, apperr.ErrConflict)
	}
	order.Version++
	s.orders[order.ID] = cloneOrder(order)
	return nil
}

// Orders returns a snapshot of every stored order.
func (s *Store) Orders() []*models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, cloneOrder(o))
	}
	return out
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = make([]models.OrderItem, len(o.Items))
	for i, item := range o.Items {
		item.Customizations = slices.Clone(item.Customizations)
		c.Items[i] = item
	}
	c.TrackingHistory = slices.Clone(o.TrackingHistory)
	if o.DriverID != nil {
		id := *o.DriverID
		c.DriverID = &id
	}
	if o.Rating != nil {
		r := *o.Rating
		c.Rating = &r
	}
	if o.Cancellation != nil {
		cn := *o.Cancellation
		c.Cancellation = &cn
	}
	if o.Refund != nil {
		r := *o.Refund
		c.Refund = &r
	}
	if o.ActualDeliveryTime != nil {
		t := *o.ActualDeliveryTime
		c.ActualDeliveryTime = &t
	}
	return &c
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Drivers is a fixed set of delivery users.
type Drivers map[uuid.UUID]bool

func (d Drivers) IsDriver(_ context.Context, id uuid.UUID) (bool, error) {
	return d[id], nil
}

// Customers maps user IDs to the contact details they registered with.
type Customers map[uuid.UUID]models.ContactInfo

func (c Customers) ContactInfo(_ context.Context, id uuid.UUID) (models.ContactInfo, error) {
	info, ok := c[id]
	if !ok {
		return models.ContactInfo{}, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return info, nil
}
