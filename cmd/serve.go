package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ray-remotestate/foodie/access"
	"github.com/ray-remotestate/foodie/database"
	"github.com/ray-remotestate/foodie/database/dbhelper"
	"github.com/ray-remotestate/foodie/events"
	"github.com/ray-remotestate/foodie/handlers"
	"github.com/ray-remotestate/foodie/ordering"
	"github.com/ray-remotestate/foodie/server"
	"github.com/ray-remotestate/foodie/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := cfg.Logger()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Error("failed to close database connection")
		}
	}()
	if cfg.AutoMigrate {
		if err := database.Migrate(db, false); err != nil {
			return err
		}
		log.Info("migration is successful")
	}

	publisher, err := events.New(cfg.Events, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.WithError(err).Warn("failed to close event publisher")
		}
	}()

	engine := ordering.NewEngine(ordering.Config{
		Catalog:    dbhelper.Catalog{DB: db},
		Store:      dbhelper.OrderStore{DB: db},
		Numbers:    ordering.NewNumberer(dbhelper.Sequence{DB: db, Name: dbhelper.OrderCounter}, cfg.OrderNumberPrefix, nil),
		Authorizer: access.Policy{},
		Drivers:    dbhelper.Drivers{DB: db},
		Customers:  dbhelper.Customers{DB: db},
		Calculator: ordering.NewCalculator(cfg.PricingPolicy()),
		Logger:     log,
	})
	h := &handlers.Handler{
		DB:     db,
		Engine: engine,
		Orders: dbhelper.OrderStore{DB: db},
		Policy: access.Policy{},
		Tokens: utils.NewTokenIssuer([]byte(cfg.JWTSecretKey), cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		Events: publisher,
		Log:    log,
	}
	srv := server.SetupRoutes(h, server.Options{
		Secret:       []byte(cfg.JWTSecretKey),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Log:          log,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", cfg.HTTPAddr).Info("server is running")
		return srv.Run(cfg.HTTPAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		return srv.Shutdown(cfg.ShutdownTimeout)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
