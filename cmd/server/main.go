package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ttnmanager/cache"
	"ttnmanager/config"
	"ttnmanager/db"
	"ttnmanager/db/mongo"
	"ttnmanager/db/postgres"
	"ttnmanager/handlers"
	"ttnmanager/metrics"
	"ttnmanager/middleware"
	"ttnmanager/novaposhta"
	"ttnmanager/repository"
	"ttnmanager/routes"
	"ttnmanager/services"
	"ttnmanager/utils"
)

func main() {
	bootstrap, _ := zap.NewProduction()
	cfg := config.LoadConfig(bootstrap)

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		bootstrap.Fatal("invalid LOG_LEVEL", zap.Error(err))
	}
	defer logger.Sync()

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	ctx := context.Background()

	dbType, err := db.ParseDBType(cfg.DBType)
	if err != nil {
		logger.Fatal("invalid database type", zap.Error(err))
	}

	var (
		conn  db.DB
		store *repository.Store
	)
	switch dbType {
	case db.Postgres:
		if err := db.RunMigrations(cfg.PostgresURL, cfg.MigrationsPath, logger); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
		pg := postgres.NewPostgresDB(cfg.PostgresURL)
		if err := pg.Connect(ctx); err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		conn = pg
		store = repository.NewPostgresStore(pg.Conn)
	case db.Mongo:
		mg := mongo.NewMongoDB(cfg.MongoURL, cfg.MongoDatabase)
		if err := mg.Connect(ctx); err != nil {
			logger.Fatal("failed to connect to mongo", zap.Error(err))
		}
		conn = mg
		store = repository.NewMongoStore(mg.DB())
	}
	defer func() {
		if err := conn.Disconnect(context.Background()); err != nil {
			logger.Warn("database disconnect failed", zap.Error(err))
		}
	}()
	logger.Info("database connected", zap.String("type", string(dbType)))

	m := metrics.New("ttnmanager")

	npClient := novaposhta.NewClient(novaposhta.Config{
		BaseURL:         cfg.NovaPoshtaURL,
		Timeout:         cfg.NovaPoshtaTimeout,
		BreakerFailures: cfg.BreakerFailures,
		BreakerCooldown: cfg.BreakerCooldown,
	}, logger, m)

	var (
		geoCache services.GeoCache
		locker   services.Locker
	)
	if cfg.RedisURL != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, using in-process cache and locks", zap.Error(err))
		} else {
			defer rdb.Close()
			geoCache = cache.New(rdb)
			locker = cache.NewLocker(rdb, cfg.LockTTL)
			logger.Info("redis connected")
		}
	}

	var archiver services.Archiver
	if cfg.R2Enabled() {
		r2, err := utils.NewR2Archiver(ctx, utils.R2Config{
			AccountID: cfg.R2AccountID,
			AccessKey: cfg.R2AccessKey,
			SecretKey: cfg.R2SecretKey,
			Bucket:    cfg.R2Bucket,
		})
		if err != nil {
			logger.Warn("TTN archiving disabled", zap.Error(err))
		} else {
			archiver = r2
		}
	}

	mode, err := services.ParseAddressMode(cfg.AddressResolutionMode)
	if err != nil {
		logger.Fatal("invalid address resolution mode", zap.Error(err))
	}

	keys := services.NewAPIKeys(store.Settings)
	geo := services.NewGeography(npClient, geoCache, cfg.GeoCacheTTL, logger)
	prov := services.NewProvisioning(npClient, store.Clients, store.Senders, locker,
		services.ProvisioningOptions{OwnershipMaxPages: cfg.OwnershipMaxPages, RepairTimeout: cfg.RepairTimeout}, logger, m)
	addresses := services.NewAddressResolver(npClient, mode, logger)
	shipments := services.NewShipments(npClient, store, prov, addresses, archiver, logger, m)

	router := routes.SetupRoutes(routes.Handlers{
		Clients:      &handlers.ClientHandler{Repo: store.Clients, Logger: logger},
		Geo:          &handlers.GeoHandler{Geo: geo, PopularCities: cfg.PopularCities, Logger: logger},
		Counterparty: &handlers.CounterpartyHandler{Provisioning: prov, Keys: keys, Logger: logger},
		Senders:      &handlers.SenderHandler{Repo: store.Senders, Provisioning: prov, Keys: keys, Logger: logger},
		Settings:     &handlers.SettingsHandler{Keys: keys, Logger: logger},
		TTN:          &handlers.TTNHandler{Shipments: shipments, Logger: logger},
	}, middleware.NewVerifier(cfg.JWTSecret), routes.Options{CORSOrigins: cfg.CORSOrigins, DB: conn}, logger, m)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("address_mode", cfg.AddressResolutionMode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}
