package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/example/parklite/internal/auth"
	httpmiddleware "github.com/example/parklite/internal/http/middleware"
	outboxworker "github.com/example/parklite/internal/outbox"
	"github.com/example/parklite/internal/parking/domain"
	"github.com/example/parklite/internal/parking/guard"
	parkinghandler "github.com/example/parklite/internal/parking/handler"
	"github.com/example/parklite/internal/parking/repository"
	parkingservice "github.com/example/parklite/internal/parking/service"
	"github.com/example/parklite/internal/rental/carly"
	rentalhandler "github.com/example/parklite/internal/rental/handler"
	rentalservice "github.com/example/parklite/internal/rental/service"
	"github.com/example/parklite/pkg/observability"
	outboxpkg "github.com/example/parklite/pkg/outbox"
)

const eventSubject = "parking.reservations"

type appConfig struct {
	HTTPAddr       string
	StoreMode      string
	PostgresDSN    string
	RedisAddr      string
	NATSURL        string
	JWTSecret      string
	CarlyBaseURL   string
	CarlyAttempts  int
	CarlyTimeout   time.Duration
	HoldTTL        time.Duration
	ReadRateLimit  httpmiddleware.Limit
	WriteRateLimit httpmiddleware.Limit
	OutboxPoll     time.Duration
	OutboxBatch    int
	OutboxRetry    int
}

type stores struct {
	areas        domain.AreaRepository
	spots        domain.SpotRepository
	users        domain.UserRepository
	reservations domain.ReservationRepository
	tx           domain.TxManager
	outbox       domain.EventPublisher
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.SetupLogger("parking-service")
	defer logger.Sync() //nolint:errcheck

	shutdown, err := observability.SetupTracer(ctx, "parking-service")
	if err != nil {
		logger.Warn("tracer setup failed", zap.Error(err))
	} else {
		defer shutdown(context.Background())
	}

	cfg := loadConfig()

	var db *sql.DB
	if cfg.StoreMode == "postgres" {
		db, err = sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("postgres connect", zap.Error(err))
		}
		db.SetMaxOpenConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			logger.Fatal("postgres ping", zap.Error(err))
		}
		defer db.Close()
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis ping", zap.Error(err))
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		if conn, err := nats.Connect(cfg.NATSURL, nats.Name("parkingservice")); err == nil {
			natsConn = conn
			defer conn.Drain()
		} else {
			logger.Warn("nats connection failed", zap.Error(err))
		}
	}

	st, err := buildStores(ctx, cfg, db, natsConn)
	if err != nil {
		logger.Fatal("store setup", zap.Error(err))
	}

	var dupGuard parkingservice.DuplicateGuard
	if redisClient != nil {
		dupGuard = guard.NewRedisHoldStore(redisClient, "", cfg.HoldTTL)
	}

	clock := domain.SystemClock{}
	areaSvc := parkingservice.NewAreaService(st.areas, st.spots, st.reservations, st.tx, st.outbox, clock)
	spotSvc := parkingservice.NewSpotService(st.spots, st.areas, st.reservations, st.tx, st.outbox, clock)
	userSvc := parkingservice.NewUserService(st.users)
	reservationSvc := parkingservice.NewReservationService(st.reservations, st.users, st.spots, st.areas, dupGuard, st.outbox, clock)

	var authFn parkinghandler.AuthFunc
	if cfg.JWTSecret != "" {
		authFn = func(roles ...domain.Role) func(http.Handler) http.Handler {
			return auth.Middleware(cfg.JWTSecret, roles...)
		}
	}
	parkingHTTP := parkinghandler.NewHTTP(areaSvc, spotSvc, userSvc, reservationSvc, authFn)

	carlyClient := carly.New(carly.Config{
		BaseURL:     cfg.CarlyBaseURL,
		MaxAttempts: cfg.CarlyAttempts,
		Timeout:     cfg.CarlyTimeout,
	}, logger.Named("carly"))
	rentalHTTP := rentalhandler.NewHTTP(rentalservice.New(carlyClient))

	limiter := httpmiddleware.NewRateLimiter(redisClient, cfg.ReadRateLimit, cfg.WriteRateLimit)

	r := chi.NewRouter()
	r.Use(limiter.Middleware)
	r.Mount("/", parkingHTTP.Router())
	r.Mount("/v1/cars", rentalHTTP.Router())
	r.Mount("/observability", observability.MetricsRouter())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if db != nil && natsConn != nil {
		worker := outboxworker.NewWorker(db, natsConn, logger.Named("outbox"), outboxworker.WorkerConfig{
			PollInterval: cfg.OutboxPoll,
			BatchSize:    cfg.OutboxBatch,
			RetryMax:     cfg.OutboxRetry,
		})
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", zap.Error(err))
			}
		}()
	} else if cfg.StoreMode == "postgres" {
		logger.Warn("outbox worker disabled", zap.Bool("db", db != nil), zap.Bool("nats", natsConn != nil))
	}

	go func() {
		logger.Info("parking service listening", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreMode))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// buildStores selects the persistence backend. Postgres mode routes events
// through the transactional outbox; memory mode publishes straight to NATS
// when a connection exists and drops events otherwise.
func buildStores(ctx context.Context, cfg appConfig, db *sql.DB, natsConn *nats.Conn) (stores, error) {
	switch cfg.StoreMode {
	case "postgres":
		if db == nil {
			return stores{}, errors.New("postgres mode requires POSTGRES_DSN")
		}
		store := repository.NewSQLStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return stores{}, err
		}
		return stores{
			areas:        store.Areas(),
			spots:        store.Spots(),
			users:        store.Users(),
			reservations: store.Reservations(),
			tx:           store,
			outbox:       store.Outbox(eventSubject),
		}, nil
	case "memory":
		store := repository.NewStore()
		return stores{
			areas:        store.Areas(),
			spots:        store.Spots(),
			users:        store.Users(),
			reservations: store.Reservations(),
			tx:           store,
			outbox:       outboxpkg.NewPublisher(natsConn, eventSubject),
		}, nil
	default:
		return stores{}, errors.New("STORE_MODE must be memory or postgres")
	}
}

func loadConfig() appConfig {
	return appConfig{
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		StoreMode:     getenv("STORE_MODE", "memory"),
		PostgresDSN:   firstNonEmpty(os.Getenv("POSTGRES_DSN"), os.Getenv("DATABASE_URL")),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		NATSURL:       os.Getenv("NATS_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		CarlyBaseURL:  getenv("CARLY_BASE_URL", "http://localhost:8081"),
		CarlyAttempts: parseIntEnv("CARLY_MAX_ATTEMPTS", 5),
		CarlyTimeout:  time.Duration(parseIntEnv("CARLY_TIMEOUT_MS", 10000)) * time.Millisecond,
		HoldTTL:       time.Duration(parseIntEnv("HOLD_TTL_SEC", 30)) * time.Second,
		ReadRateLimit: httpmiddleware.Limit{
			Rate:  parseFloatEnv("READ_RATE_PER_SEC", 0),
			Burst: parseFloatEnv("READ_RATE_BURST", 0),
		},
		WriteRateLimit: httpmiddleware.Limit{
			Rate:  parseFloatEnv("WRITE_RATE_PER_SEC", 0),
			Burst: parseFloatEnv("WRITE_RATE_BURST", 0),
		},
		OutboxPoll:  time.Duration(parseIntEnv("OUTBOX_POLL_MS", 200)) * time.Millisecond,
		OutboxBatch: parseIntEnv("OUTBOX_BATCH", 100),
		OutboxRetry: parseIntEnv("OUTBOX_RETRY_MAX", 3),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseFloatEnv(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
