package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zhima-Mochi/minishop-commerce/internal/application/checkout"
	apppay "github.com/Zhima-Mochi/minishop-commerce/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-commerce/internal/config"
	domcart "github.com/Zhima-Mochi/minishop-commerce/internal/domain/cart"
	domorder "github.com/Zhima-Mochi/minishop-commerce/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-commerce/internal/domain/payment"
	domproduct "github.com/Zhima-Mochi/minishop-commerce/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-commerce/internal/infrastructure/auth"
	"github.com/Zhima-Mochi/minishop-commerce/internal/infrastructure/cache/redisstore"
	"github.com/Zhima-Mochi/minishop-commerce/internal/infrastructure/gateway"
	"github.com/Zhima-Mochi/minishop-commerce/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-commerce/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-commerce/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-commerce/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-commerce/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-commerce/internal/infrastructure/sqlstore"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
	"github.com/Zhima-Mochi/minishop-commerce/internal/pkg/cache"
	"github.com/Zhima-Mochi/minishop-commerce/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/minishop-commerce/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-commerce/internal/presentation/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type stores struct {
	products domproduct.Repository
	orders   domorder.Repository
	payments dompay.Repository
	carts    domcart.Repository
	close    func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	baseLogger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	oteltrace.InstallPropagator()
	tel := infraobs.Build(cfg.ServiceName, baseLogger, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, tel)
	if err != nil {
		systemLogger.Fatal("storage_init_failed", zap.Error(err))
	}
	defer func() { _ = st.close() }()

	if cfg.Env == "dev" {
		if err := seedCatalog(ctx, st.products); err != nil {
			systemLogger.Warn("catalog_seed_failed", zap.Error(err))
		}
	}

	store, closeCache, err := openCache(ctx, cfg, tel)
	if err != nil {
		systemLogger.Fatal("cache_init_failed", zap.Error(err))
	}
	defer func() { _ = closeCache() }()

	gw, err := openGateway(cfg, tel)
	if err != nil {
		systemLogger.Fatal("gateway_init_failed", zap.Error(err))
	}

	verifier, err := auth.NewJWT(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		systemLogger.Fatal("auth_init_failed", zap.Error(err))
	}

	// In-process bus; domain events optionally leave the process through a broker sink.
	bus := outbox.NewBus(tel, outbox.BusOptions{})
	sink, err := openSink(cfg)
	if err != nil {
		systemLogger.Fatal("event_sink_init_failed", zap.Error(err))
	}
	if sink != nil {
		defer func() { _ = sink.Close() }()
		relay := outbox.NewRelay(sink, tel)
		outbox.Register(bus, workerpresentation.Instrument(tel, "event_relay", relay.Handle))
	}
	bus.Start(ctx)

	workflow := checkout.New(checkout.Deps{
		Products:  st.products,
		Orders:    st.orders,
		Payments:  st.payments,
		Carts:     st.carts,
		Gateway:   gw,
		IDs:       id.New(),
		Cache:     store,
		CacheTTL:  cfg.CacheTTL,
		Publisher: bus,
		Payment: apppay.Options{
			GatewayTimeout: cfg.GatewayTimeout,
			ClaimTTL:       cfg.ClaimTTL,
		},
		Tel: tel,
	})

	handler := httppresentation.NewHandler(workflow, verifier, tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.String("db_driver", cfg.DBDriver),
			zap.String("cache_driver", cfg.CacheDriver),
			zap.String("gateway", cfg.Gateway),
			zap.String("event_sink", cfg.EventSink),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error",
				zap.Error(err),
			)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		systemLogger.Warn("event_bus_drain_incomplete", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg config.AppConfig, tel observability.Observability) (stores, error) {
	if cfg.DBDriver == config.DBMemory {
		s := memory.NewStore()
		return stores{
			products: s.Products(),
			orders:   s.Orders(),
			payments: s.Payments(),
			carts:    s.Carts(),
			close:    func() error { return nil },
		}, nil
	}

	db, err := sqlstore.Open(sqlstore.Config{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DBDSN,
		MaxOpenConns: maxOpenConns(cfg.DBDriver),
		ConnMaxLife:  30 * time.Minute,
	}, tel.Logger())
	if err != nil {
		return stores{}, err
	}
	if err := sqlstore.Migrate(ctx, db); err != nil {
		_ = sqlstore.Close(db)
		return stores{}, fmt.Errorf("migrate: %w", err)
	}
	s := sqlstore.NewStore(db)
	return stores{
		products: s.Products(),
		orders:   s.Orders(),
		payments: s.Payments(),
		carts:    s.Carts(),
		close:    func() error { return sqlstore.Close(db) },
	}, nil
}

// sqlite allows one writer at a time; a single connection avoids SQLITE_BUSY.
func maxOpenConns(driver string) int {
	if driver == sqlstore.DriverSQLite {
		return 1
	}
	return 20
}

func openCache(ctx context.Context, cfg config.AppConfig, tel observability.Observability) (cache.Store, func() error, error) {
	noClose := func() error { return nil }
	switch cfg.CacheDriver {
	case config.CacheRedis:
		rs, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return cache.Instrument(rs, "redis", tel), rs.Close, nil
	case config.CacheMemory:
		return cache.Instrument(cache.NewMemoryStore(), "memory", tel), noClose, nil
	default:
		return cache.Nop(), noClose, nil
	}
}

func openGateway(cfg config.AppConfig, tel observability.Observability) (dompay.Gateway, error) {
	if cfg.Gateway == config.GatewayHTTP {
		return gateway.NewHTTP(gateway.HTTPConfig{
			BaseURL: cfg.GatewayURL,
			APIKey:  cfg.GatewayAPIKey,
			Timeout: cfg.GatewayTimeout + time.Second,
		}, nil, tel.Logger())
	}
	return gateway.NewMock(), nil
}

func openSink(cfg config.AppConfig) (outbox.Sink, error) {
	switch cfg.EventSink {
	case config.SinkKafka:
		return outbox.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
	case config.SinkRabbitMQ:
		return outbox.NewRabbitSink(cfg.RabbitMQURL, cfg.RabbitMQExchange)
	default:
		return nil, nil
	}
}

// seedCatalog makes a fresh dev database usable without an admin API.
func seedCatalog(ctx context.Context, products domproduct.Repository) error {
	seed := []struct {
		id, name, price string
		stock           int
	}{
		{"sku-keyboard", "Mechanical Keyboard", "89.90", 50},
		{"sku-mouse", "Wireless Mouse", "24.50", 120},
		{"sku-monitor", "27in Monitor", "229.00", 15},
	}
	for _, s := range seed {
		if _, err := products.Get(ctx, s.id); err == nil {
			continue
		} else if !errors.Is(err, domproduct.ErrNotFound) {
			return err
		}
		p, err := domproduct.New(s.id, s.name, decimal.RequireFromString(s.price), "USD", s.stock, "")
		if err != nil {
			return err
		}
		if err := products.Save(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
