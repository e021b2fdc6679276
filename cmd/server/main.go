package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"credreg/internal/audit"
	"credreg/internal/platform/config"
	"credreg/internal/platform/database"
	"credreg/internal/platform/health"
	"credreg/internal/platform/kafka"
	"credreg/internal/platform/kafka/producer"
	"credreg/internal/platform/logger"
	"credreg/internal/platform/metrics"
	redisclient "credreg/internal/platform/redis"
	"credreg/internal/registry/gate/jwtproof"
	"credreg/internal/registry/handler"
	"credreg/internal/registry/notify"
	"credreg/internal/registry/service"
	"credreg/internal/registry/store"
	"credreg/migrations"
	"credreg/pkg/domain"
	dErrors "credreg/pkg/domain-errors"
	"credreg/pkg/platform/middleware/caller"
	"credreg/pkg/platform/middleware/request"
	"credreg/pkg/platform/middleware/requesttime"
	"credreg/pkg/platform/tracer"
	"credreg/pkg/validation"
)

const (
	requestTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
	poolStatsPeriod = 15 * time.Second
)

// infra holds the external resources opened for the selected backends.
type infra struct {
	store    store.Store
	pool     *database.Pool
	redis    *redisclient.Client
	producer *producer.Producer
}

func (i *infra) close(log *slog.Logger) {
	if i.producer != nil {
		if err := i.producer.Close(); err != nil {
			log.Error("kafka producer close failed", "error", err)
		}
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Error("redis close failed", "error", err)
		}
	}
	if i.pool != nil {
		if err := i.pool.Close(); err != nil {
			log.Error("database close failed", "error", err)
		}
	}
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	log.Info("initializing credreg",
		"addr", cfg.Addr,
		"env", cfg.Environment,
		"store", cfg.Store,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, err := openInfra(ctx, cfg, reg, log)
	if err != nil {
		return err
	}
	defer deps.close(log)

	auditPublisher := newAuditPublisher(cfg, deps, log)
	defer auditPublisher.Close()

	proofs := jwtproof.New(cfg.Proof.SigningKey, cfg.Proof.Issuer, cfg.Proof.TTL)
	svc := service.New(deps.store, proofs,
		service.WithNotifier(newNotifier(cfg, deps, log)),
		service.WithAuditor(auditPublisher),
		service.WithMetrics(metrics.New(reg)),
		service.WithTracer(tracer.NewOTel()),
		service.WithLogger(log),
	)

	if err := bootstrapAdmin(ctx, svc, cfg.RegistryAdmin, log); err != nil {
		return err
	}

	router := newRouter(cfg, svc, deps, reg, log)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if deps.redis != nil {
		g.Go(func() error {
			deps.redis.RunPoolStats(gctx, poolStatsPeriod)
			return nil
		})
	}
	return g.Wait()
}

func openInfra(ctx context.Context, cfg config.Server, reg prometheus.Registerer, log *slog.Logger) (*infra, error) {
	deps := &infra{}
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := database.New(ctx, database.DefaultConfig(cfg.DatabaseURL))
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := migrations.Up(ctx, pool.DB()); err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		deps.pool = pool
		deps.store = store.NewPostgres(pool.DB())
	case config.StoreRedis:
		client, err := redisclient.New(ctx, cfg.Redis, reg)
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		deps.redis = client
		deps.store = store.NewRedis(client.Client)
	default:
		deps.store = store.NewInMemory()
	}

	if cfg.Kafka.Brokers != "" {
		p, err := producer.New(producer.Config{
			Brokers: cfg.Kafka.Brokers,
			Acks:    cfg.Kafka.Acks,
			Retries: cfg.Kafka.Retries,
		}, log)
		if err != nil {
			deps.close(log)
			return nil, fmt.Errorf("open kafka producer: %w", err)
		}
		deps.producer = p
	}
	return deps, nil
}

func newNotifier(cfg config.Server, deps *infra, log *slog.Logger) service.ProfileNotifier {
	if deps.producer != nil {
		log.Info("profile notifications via kafka", "topic", cfg.Kafka.ProfileTopic)
		return notify.NewKafka(deps.producer, cfg.Kafka.ProfileTopic)
	}
	log.Info("kafka not configured; profile notifications are logged only")
	return notify.NewLog(log)
}

func newAuditPublisher(cfg config.Server, deps *infra, log *slog.Logger) *audit.Publisher {
	opts := []audit.PublisherOption{audit.WithPublisherLogger(log)}
	if cfg.AuditBuffer > 0 {
		opts = append(opts, audit.WithAsyncBuffer(cfg.AuditBuffer))
	}
	var events audit.Store = audit.NewInMemoryStore()
	if deps.pool != nil {
		events = audit.NewPostgresStore(deps.pool.DB())
	}
	return audit.NewPublisher(events, opts...)
}

// bootstrapAdmin sets the registry admin once. A registry that already has an
// admin is left alone.
func bootstrapAdmin(ctx context.Context, svc *service.Service, admin string, log *slog.Logger) error {
	if admin == "" {
		log.Warn("REGISTRY_ADMIN not set; mutations are denied until the registry is initialized")
		return nil
	}
	identity, err := domain.ParseIdentity(admin)
	if err != nil {
		return fmt.Errorf("invalid REGISTRY_ADMIN: %w", err)
	}
	err = svc.Initialize(ctx, identity)
	switch {
	case err == nil:
		log.Info("registry initialized", "admin", identity.String())
	case dErrors.HasCode(err, dErrors.CodeConflict):
		log.Info("registry already initialized")
	default:
		return fmt.Errorf("initialize registry: %w", err)
	}
	return nil
}

func newRouter(cfg config.Server, svc *service.Service, deps *infra, reg *prometheus.Registry, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(request.ClientIP)
	r.Use(request.Logger(log))
	r.Use(requesttime.Middleware)
	r.Use(request.LatencyMiddleware(request.NewMetrics(reg), func(r *http.Request) string {
		if rc := chi.RouteContext(r.Context()); rc != nil {
			return rc.RoutePattern()
		}
		return ""
	}))

	checks := health.New(cfg.Environment)
	checks.RegisterCheck("store", deps.store.Ping)
	if deps.pool != nil {
		checks.RegisterCheck("postgres", deps.pool.Health)
	}
	if deps.redis != nil {
		checks.RegisterCheck("redis", deps.redis.Health)
	}
	if deps.producer != nil {
		checks.RegisterCheck("kafka", kafka.NewHealthChecker(cfg.Kafka.Brokers).Check)
	}
	checks.Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	r.Group(func(api chi.Router) {
		api.Use(request.Timeout(requestTimeout))
		api.Use(request.BodyLimit(validation.MaxBodySize))
		api.Use(request.ContentTypeJSON)
		api.Use(caller.Extract)
		handler.New(svc, log).Register(api)
	})
	return r
}
