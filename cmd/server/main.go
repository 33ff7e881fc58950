package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/sagfo/storefront/internal/adapter/handler"
	"github.com/sagfo/storefront/internal/adapter/storage"
	"github.com/sagfo/storefront/internal/config"
	"github.com/sagfo/storefront/internal/core/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development() {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level
	return zcfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return err
	}
	logger.Info("connected to mysql")

	if err := storage.RunMigrations(db, cfg.MigrationsPath); err != nil {
		return err
	}
	logger.Info("migrations applied", zap.String("path", cfg.MigrationsPath))

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	// Initialize adapters
	redisAdapter := storage.NewRedisAdapter(rdb, cfg.CartTTL)
	mysqlAdapter := storage.NewMySQLAdapter(db)
	guardedOrders := storage.NewGuardedOrders(mysqlAdapter, storage.DefaultBreakerSettings, logger.Named("breaker"))

	// Initialize services
	sessions := service.NewCartSessions(redisAdapter, logger.Named("cart"))
	catalog := service.NewCatalogService(mysqlAdapter)
	admin := service.NewAdminService(mysqlAdapter, mysqlAdapter, logger.Named("admin"))
	checkout := service.NewCheckoutService(sessions, guardedOrders, redisAdapter, cfg.CheckoutQueueSize, logger.Named("checkout"))

	if cfg.CatalogSeed != "" {
		if err := seedCatalog(ctx, catalog, mysqlAdapter, cfg.CatalogSeed, logger); err != nil {
			return err
		}
	}

	checkout.Start(cfg.CheckoutWorkers)
	go sessions.RunEviction(ctx, cfg.CartCacheIdle, cfg.CartCacheIdle/4)

	// Initialize gRPC server
	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(handler.UnaryLogger(logger.Named("grpc"))),
	)
	handler.RegisterFinancialsServer(grpcServer, handler.NewGRPCHandler(checkout, catalog, admin, logger.Named("grpc")))
	if cfg.GRPCReflection {
		reflection.Register(grpcServer)
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(sessions, catalog, checkout, admin, logger.Named("http"))
	httpHandler.ReportHealth("orders_breaker", guardedOrders.State)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      otelhttp.NewHandler(httpHandler.Routes(), "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// drain queued checkouts before closing the stores they write to
	checkout.Close()
	logger.Info("checkout workers stopped")

	rdb.Close()
	db.Close()
	logger.Info("connections closed")
	return nil
}

func seedCatalog(ctx context.Context, catalog *service.CatalogService, seeder *storage.MySQLAdapter, path string, logger *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	items, err := service.DecodeSeed(f)
	if err != nil {
		return err
	}
	n, err := catalog.Seed(ctx, seeder, items)
	if err != nil {
		return err
	}
	logger.Info("catalog seeded", zap.String("path", path), zap.Int("items", n))
	return nil
}
