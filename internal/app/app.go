// Package app wires configuration, storage, pricing rules and the HTTP server
// into a running process.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/keteik/simple-inventory-management-system/internal/domain/customer"
	"github.com/keteik/simple-inventory-management-system/internal/domain/order"
	"github.com/keteik/simple-inventory-management-system/internal/domain/pricing"
	"github.com/keteik/simple-inventory-management-system/internal/domain/product"
	"github.com/keteik/simple-inventory-management-system/internal/events"
	"github.com/keteik/simple-inventory-management-system/internal/handler"
	"github.com/keteik/simple-inventory-management-system/internal/storage/redis"
	"github.com/keteik/simple-inventory-management-system/pkg/health"
	"github.com/keteik/simple-inventory-management-system/pkg/httpmiddleware"
)

const serviceName = "orders-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
	)

	rules := pricing.DefaultRuleSet()
	if cfg.RulesFile != "" {
		var err error
		if rules, err = pricing.LoadRuleSet(cfg.RulesFile); err != nil {
			return errors.Wrap(err, "load pricing rules")
		}
		lg.Info("Loaded pricing rules", zap.String("path", cfg.RulesFile))
	}

	st, err := openStore(ctx, lg, cfg, m.TracerProvider())
	if err != nil {
		return err
	}
	defer st.close()

	healthSvc := health.New()
	healthSvc.Register(health.Readiness, health.Check{
		Name:    cfg.Storage,
		Timeout: 5 * time.Second,
		Func:    health.PingCheck(st.pinger),
	})
	healthSvc.Register(health.Liveness, health.Check{
		Name: "goroutines",
		Func: health.GoroutineCountCheck(10000),
	})

	opts := handler.Options{
		Meter: m.MeterProvider().Meter(serviceName),
	}
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = client.Close() }()

		idem := redis.NewIdempotency(client, cfg.Redis.TTL)
		healthSvc.Register(health.Readiness, health.Check{
			Name:    "redis",
			Timeout: 2 * time.Second,
			Func:    health.PingCheck(idem),
		})
		opts.Idempotency = idem
		lg.Info("Idempotency keys enabled", zap.String("redis", cfg.Redis.Addr))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		pub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := pub.Close(); err != nil {
				lg.Warn("Close event publisher", zap.Error(err))
			}
		}()
		opts.Events = pub
		lg.Info("Order events enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	// Domain services.
	engine := pricing.NewEngine(rules)
	customerService := customer.NewService(st.customers)
	productService := product.NewService(st.products, st.ledger)
	orderService := order.NewService(st.scope, st.customers, st.products, st.ledger, st.orders, engine)

	h, err := handler.New(customerService, productService, orderService, opts)
	if err != nil {
		return errors.Wrap(err, "create handler")
	}
	instrument, err := httpmiddleware.Instrument(m.MeterProvider().Meter(serviceName))
	if err != nil {
		return errors.Wrap(err, "instrument")
	}
	api := h.Router(httpmiddleware.LogRequests(), instrument)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", otelhttp.NewHandler(api, serviceName,
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.RequestID(),
			httpmiddleware.Recovery(),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
		),
	}

	healthSvc.Start(ctx, 10*time.Second)
	defer healthSvc.Stop()
	healthSvc.SetReady(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}
