package main

import (
	"context"
	"database/sql"
	"errors"
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
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	accountservice "startingline/internal/account/service"
	accountstore "startingline/internal/account/store"
	"startingline/internal/idempotency"
	jwttoken "startingline/internal/jwt_token"
	"startingline/internal/notification"
	participanthandler "startingline/internal/participant/handler"
	participantservice "startingline/internal/participant/service"
	participantstore "startingline/internal/participant/store"
	"startingline/internal/platform/config"
	"startingline/internal/platform/httpserver"
	"startingline/internal/platform/kafka"
	"startingline/internal/platform/logger"
	"startingline/internal/platform/metrics"
	"startingline/internal/platform/postgres"
	platformredis "startingline/internal/platform/redis"
	"startingline/internal/ratelimit"
	registrationhandler "startingline/internal/registration/handler"
	registrationservice "startingline/internal/registration/service"
	registrationstore "startingline/internal/registration/store"
	"startingline/pkg/platform/circuit"
	"startingline/pkg/platform/httputil"
	"startingline/pkg/platform/middleware/auth"
	"startingline/pkg/platform/middleware/metadata"
	"startingline/pkg/platform/middleware/request"
	"startingline/pkg/platform/tx"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogFormat, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

// stores groups the persistence backends selected by configuration.
type stores struct {
	registration registrationservice.Store
	accounts     accountservice.AccountStore
	profiles     accountservice.ProfileStore
	saved        participantservice.Store
	tx           tx.Manager
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	db, backends, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, idempotency keys are kept in memory", "error", err)
	}
	var idemStore idempotency.Store = idempotency.NewInMemoryStore()
	var limitStore ratelimit.Store = ratelimit.NewInMemoryStore()
	if redisClient != nil {
		defer redisClient.Close()
		idemStore = idempotency.NewRedisStore(redisClient.Client)
		limitStore = ratelimit.NewRedisStore(redisClient.Client)
	}

	kafkaClient, sender := notificationSender(ctx, cfg.Kafka, log)
	if kafkaClient != nil {
		defer kafkaClient.Close()
	}
	dispatcher := notification.NewDispatcher(sender,
		notification.WithLogger(log),
		notification.WithMetrics(m),
		notification.WithBufferSize(cfg.Notification.BufferSize),
		notification.WithSendTimeout(cfg.Notification.SendTimeout),
		notification.WithBreaker(circuit.New("notification",
			circuit.WithFailureThreshold(cfg.Notification.FailureThreshold),
			circuit.WithCooldown(cfg.Notification.Cooldown),
		)),
	)

	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenTTL)
	validator := jwttoken.NewJWTServiceAdapter(tokens)

	resolver, err := accountservice.New(backends.accounts, backends.profiles,
		accountservice.WithPasswordHasher(accountservice.NewBcryptHasher(bcrypt.DefaultCost)),
		accountservice.WithLogger(log))
	if err != nil {
		return err
	}
	saved, err := participantservice.New(backends.saved, participantservice.WithLogger(log))
	if err != nil {
		return err
	}
	registrations, err := registrationservice.New(backends.registration, resolver, backends.tx,
		registrationservice.WithLogger(log),
		registrationservice.WithMetrics(m),
		registrationservice.WithParticipantSync(saved),
		registrationservice.WithNotifier(dispatcher),
		registrationservice.WithTokenIssuer(tokens),
	)
	if err != nil {
		return err
	}

	guard := idempotency.NewGuard(idemStore,
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(log),
		idempotency.WithMetrics(m))
	limiter := ratelimit.New(limitStore, cfg.RateLimit.Requests, cfg.RateLimit.Window,
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(m))
	submission := func(next http.Handler) http.Handler {
		return limiter.Middleware(guard.Middleware(next))
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.RequestTime)
	r.Use(metadata.ClientMetadata)
	r.Get("/health", healthHandler(db, redisClient, kafkaClient))
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(validator, log))
		registrationhandler.New(registrations, registrationhandler.NewValidator(), log, submission).Register(r)
	})
	participanthandler.New(backends.profiles, saved, log).Register(r, auth.RequireAuth(validator, log))

	srv := httpserver.New(cfg.Addr, r, cfg.Database.TxTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(context.WithoutCancel(gctx))
	})
	g.Go(func() error {
		log.Info("starting startingline", "addr", cfg.Addr, "env", cfg.Environment, "postgres", db != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// Confirmations for orders committed before shutdown still go out.
		if drainErr := dispatcher.Close(shutdownCtx); drainErr != nil {
			log.Warn("notification drain incomplete", "error", drainErr, "pending", dispatcher.Pending())
		}
		return err
	})
	return g.Wait()
}

func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (*sql.DB, stores, error) {
	if cfg.Database.URL == "" {
		catalog := registrationstore.NewInMemory()
		if err := seedDemoCatalog(ctx, catalog); err != nil {
			return nil, stores{}, err
		}
		log.Warn("DATABASE_URL not set, using in-memory stores with a demo catalog")
		return nil, stores{
			registration: catalog,
			accounts:     accountstore.NewInMemoryAccountStore(),
			profiles:     accountstore.NewInMemoryProfileStore(),
			saved:        participantstore.NewInMemory(),
			tx:           tx.NewMemoryManager(tx.WithMemoryTimeout(cfg.Database.TxTimeout)),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, stores{}, err
	}
	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, stores{}, err
		}
	}
	return db, stores{
		registration: registrationstore.NewPostgres(db),
		accounts:     accountstore.NewPostgresAccountStore(db),
		profiles:     accountstore.NewPostgresProfileStore(db),
		saved:        participantstore.NewPostgres(db),
		tx:           postgres.NewTxManager(db, cfg.Database.TxTimeout),
	}, nil
}

// notificationSender publishes to Kafka when brokers are configured and falls
// back to logging confirmations otherwise.
func notificationSender(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (*kafka.Client, notification.Sender) {
	client, err := kafka.New(ctx, cfg)
	if err != nil {
		log.Warn("kafka unavailable, confirmations will be logged only", "error", err)
		return nil, notification.NewLogSender(log)
	}
	if client == nil {
		return nil, notification.NewLogSender(log)
	}
	if err := client.EnsureTopic(ctx, cfg.NotificationTopic, cfg.Partitions, cfg.ReplicationFactor); err != nil {
		log.Warn("could not ensure notification topic", "topic", cfg.NotificationTopic, "error", err)
	}
	return client, notification.NewKafkaSender(client, cfg.NotificationTopic)
}

func healthHandler(db *sql.DB, redisClient *platformredis.Client, kafkaClient *kafka.Client) http.HandlerFunc {
	checks := map[string]func(ctx context.Context) error{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if redisClient != nil {
		checks["redis"] = redisClient.Health
	}
	if kafkaClient != nil {
		checks["kafka"] = kafkaClient.Health
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{}
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = "down"
				healthy = false
				continue
			}
			status[name] = "up"
		}
		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, code, map[string]any{"healthy": healthy, "dependencies": status})
	}
}
