package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/fjod/go_canteen/internal/cache"
	"github.com/fjod/go_canteen/internal/cart"
	"github.com/fjod/go_canteen/internal/catalog"
	"github.com/fjod/go_canteen/internal/checkout"
	"github.com/fjod/go_canteen/internal/config"
	"github.com/fjod/go_canteen/internal/domain"
	h "github.com/fjod/go_canteen/internal/httpapi"
	"github.com/fjod/go_canteen/internal/ledger"
	"github.com/fjod/go_canteen/internal/promo"
	"github.com/fjod/go_canteen/internal/publisher"
	"github.com/fjod/go_canteen/internal/repository"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	cartCache := cache.NewRedisCache(redisClient)
	cartSvc := cart.NewService(cartCache, logger)
	menu := defaultCatalog()
	walletLedger := ledger.New(store, logger)
	promoValidator := promo.NewValidator(store, cartSvc, logger)
	coordinator := checkout.NewCoordinator(store, walletLedger, cartSvc, logger)

	pollerCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()
	poller := publisher.NewOutboxPoller(store, logger, cfg.OrderEventTopic, cfg.KafkaBrokers...)
	go poller.Run(pollerCtx)

	cartHandler := h.NewCartHandler(cartSvc, menu, promoValidator, cfg.RequestTimeout)
	walletHandler := h.NewWalletHandler(walletLedger, cfg.RequestTimeout)
	checkoutHandler := h.NewCheckoutHandler(coordinator, cfg.RequestTimeout)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(h.HeaderAuthMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{meal_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{meal_id}", cartHandler.RemoveItem)
			r.Post("/promo", cartHandler.ApplyPromo)
		})
		r.Route("/wallet", func(r chi.Router) {
			r.Post("/", walletHandler.Register)
			r.Get("/", walletHandler.GetWallet)
			r.Post("/topup", walletHandler.TopUp)
		})
		r.Post("/checkout", checkoutHandler.Checkout)
		r.Get("/orders", checkoutHandler.ListOrders)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "canteen-api"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("canteen API starting", zap.String("port", cfg.HTTPPort), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	stopPoller()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func openStore(cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	if cfg.Store == "memory" {
		mem := repository.NewMemory()
		seedDevData(mem)
		logger.Info("using in-memory store")
		return mem, nil
	}

	creds := &repository.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPass,
		DBName:            cfg.PostgresDB,
		MigrationsDirPath: cfg.MigrationsDir,
	}
	pg, err := repository.NewPostgres(creds)
	if err != nil {
		return nil, err
	}
	if err := pg.RunMigrations(creds); err != nil {
		return nil, err
	}
	logger.Info("connected to postgres", zap.String("host", cfg.PostgresHost))
	return pg, nil
}

// seedDevData gives the memory profile something to sell.
func seedDevData(mem *repository.Memory) {
	until := time.Now().AddDate(1, 0, 0)
	mem.SetPromoCode(domain.PromoCode{Code: "WELCOME10", DiscountPercent: 10, Active: true, ValidUntil: &until})
	mem.SetPromoCode(domain.PromoCode{Code: "LUNCH25", DiscountPercent: 25, Active: true})
}

func defaultCatalog() *catalog.MemoryCatalog {
	return catalog.NewMemoryCatalog(
		catalog.ItemDescriptor{MealID: "borscht", Name: "Borscht", UnitPrice: 180, Image: "/img/borscht.jpg", Category: "soups", Available: true},
		catalog.ItemDescriptor{MealID: "pelmeni", Name: "Pelmeni", UnitPrice: 220, Image: "/img/pelmeni.jpg", Category: "mains", Available: true},
		catalog.ItemDescriptor{MealID: "syrniki", Name: "Syrniki", UnitPrice: 150, Image: "/img/syrniki.jpg", Category: "desserts", Available: true},
		catalog.ItemDescriptor{MealID: "compote", Name: "Compote", UnitPrice: 60, Image: "/img/compote.jpg", Category: "drinks", Available: true},
	)
}
