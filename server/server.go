package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ray-remotestate/foodie/handlers"
	"github.com/ray-remotestate/foodie/middlewares"
	"github.com/ray-remotestate/foodie/models"
	"github.com/sirupsen/logrus"
)

type Server struct {
	Router *mux.Router
	server *http.Server
}

type Options struct {
	Secret       []byte
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Log          logrus.FieldLogger
}

const readHeaderTimeout = 30 * time.Second

func SetupRoutes(h *handlers.Handler, opts Options) *Server {
	router := mux.NewRouter()
	router.Use(middlewares.LoggingMiddleware(opts.Log))

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	router.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	router.HandleFunc("/refresh", h.RefreshToken).Methods(http.MethodPost)

	// public catalog
	router.HandleFunc("/restaurants", h.ListRestaurants).Methods(http.MethodGet)
	router.HandleFunc("/restaurants/{id}", h.GetRestaurant).Methods(http.MethodGet)
	router.HandleFunc("/restaurants/{id}/menu", h.GetRestaurantMenu).Methods(http.MethodGet)
	router.HandleFunc("/menu", h.ListMenu).Methods(http.MethodGet)
	router.HandleFunc("/menu/{id}", h.GetMenuItem).Methods(http.MethodGet)

	authRoutes := router.PathPrefix("/api").Subrouter()
	authRoutes.Use(middlewares.AuthMiddleware(opts.Secret))

	authRoutes.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	authRoutes.HandleFunc("/me", h.Me).Methods(http.MethodGet)
	authRoutes.HandleFunc("/me", h.UpdateProfile).Methods(http.MethodPut)
	authRoutes.HandleFunc("/me/stats", h.MyStats).Methods(http.MethodGet)

	authRoutes.HandleFunc("/orders", h.CreateOrder).Methods(http.MethodPost)
	authRoutes.HandleFunc("/orders", h.ListOrders).Methods(http.MethodGet)
	authRoutes.HandleFunc("/orders/mine", h.MyOrders).Methods(http.MethodGet)
	authRoutes.HandleFunc("/orders/stats", h.OrderStats).Methods(http.MethodGet)
	authRoutes.HandleFunc("/orders/{id}", h.GetOrder).Methods(http.MethodGet)
	authRoutes.HandleFunc("/orders/{id}/status", h.UpdateOrderStatus).Methods(http.MethodPut)
	authRoutes.HandleFunc("/orders/{id}/cancel", h.CancelOrder).Methods(http.MethodPut)
	authRoutes.HandleFunc("/orders/{id}/rate", h.RateOrder).Methods(http.MethodPut)
	authRoutes.HandleFunc("/orders/{id}/refund", h.RefundOrder).Methods(http.MethodPut)
	authRoutes.HandleFunc("/orders/{id}/driver", h.AssignDriver).Methods(http.MethodPut)

	authRoutes.HandleFunc("/restaurants", h.CreateRestaurant).Methods(http.MethodPost)
	authRoutes.HandleFunc("/restaurants/{id}", h.UpdateRestaurant).Methods(http.MethodPut)
	authRoutes.HandleFunc("/restaurants/{id}", h.DeleteRestaurant).Methods(http.MethodDelete)
	authRoutes.HandleFunc("/menu", h.CreateMenuItem).Methods(http.MethodPost)
	authRoutes.HandleFunc("/menu/{id}", h.UpdateMenuItem).Methods(http.MethodPut)
	authRoutes.HandleFunc("/menu/{id}", h.DeleteMenuItem).Methods(http.MethodDelete)

	// admin only
	admin := authRoutes.PathPrefix("/admin").Subrouter()
	admin.Use(middlewares.RoleBasedMiddleware(models.RoleAdmin))

	admin.HandleFunc("/users", h.CreateUser).Methods(http.MethodPost)
	admin.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}/role", h.UpdateUserRoles).Methods(http.MethodPut)
	admin.HandleFunc("/users/{id}", h.ArchiveUser).Methods(http.MethodDelete)
	admin.HandleFunc("/orders/{id}", h.DeleteOrder).Methods(http.MethodDelete)

	return &Server{
		Router: router,
		server: &http.Server{
			Handler:           router,
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
			WriteTimeout:      opts.WriteTimeout,
		},
	}
}

// Run blocks until the server stops. A graceful Shutdown is not reported as an error.
func (svr *Server) Run(addr string) error {
	svr.server.Addr = addr
	if err := svr.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (svr *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return svr.server.Shutdown(ctx)
}
