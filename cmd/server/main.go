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

	"roombooking/internal/api"
	"roombooking/internal/config"
	"roombooking/internal/database"
	"roombooking/internal/events"
	"roombooking/internal/lock"
	"roombooking/internal/metrics"
	"roombooking/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load(os.Getenv("ROOMBOOKING_CONFIG_PATH"))
	if err != nil {
		bootstrap := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootstrap.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg)

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for i := range cfg.Rooms {
		room, err := cfg.Rooms[i].Room()
		if err != nil {
			logger.Fatal().Err(err).Int("index", i).Msg("invalid room in config")
		}
		if err := db.EnsureRoom(ctx, room); err != nil {
			logger.Fatal().Err(err).Str("room", room.Name).Msg("seed room error")
		}
	}

	var rdb *redis.Client
	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.Locking.Backend == "redis" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, lock.RedisConfig{
			TTL:           cfg.LockTTL(),
			RetryInterval: cfg.LockRetryInterval(),
		}, &logger)
	}
	logger.Info().Str("backend", cfg.Locking.Backend).Msg("Room lock backend selected")

	bus := events.NewEventBus(func(ev events.Event, err error) {
		logger.Warn().Err(err).Str("event", ev.Type).Str("event_id", ev.ID).Msg("Event handler failed")
	})
	for _, evType := range []string{events.BookingCreated, events.BookingCancelled} {
		bus.Subscribe(evType, func(ev events.Event) error {
			logger.Debug().Str("event", ev.Type).RawJSON("payload", ev.Payload).Msg("Booking event")
			return nil
		})
	}
	if cfg.NATS.URL != "" {
		nc, err := events.ConnectNATS(cfg.NATS.URL, &logger)
		if err != nil {
			logger.Fatal().Err(err).Str("url", cfg.NATS.URL).Msg("connect nats error")
		}
		defer nc.Drain() //nolint:errcheck
		events.ForwardToNATS(bus, nc, cfg.NATS.SubjectPrefix, &logger, events.BookingCreated, events.BookingCancelled)
	}

	bookings := service.NewBookingService(db, locker, bus, service.SystemClock{Location: cfg.Location()}, &logger)
	availability := service.NewAvailabilityService(db)

	go database.NewBackupService(db, cfg.Backup, &logger).Start(ctx)
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewHTTPServer(cfg.HTTP.Port, bookings, availability, db, api.RateLimitConfig{
		RequestsPerSecond: cfg.HTTP.RateLimit.RequestsPerSecond,
		Burst:             cfg.HTTP.RateLimit.Burst,
	}, &logger)

	logger.Info().Int("rooms", len(cfg.Rooms)).Str("timezone", cfg.Booking.Timezone).Msg("Room booking service started")
	if err := server.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("http server error")
	}
	logger.Info().Msg("Room booking service stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.Logging.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	serve(ctx, port, mux, "health", logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	serve(ctx, port, mux, "metrics", logger)
}

func serve(ctx context.Context, port int, handler http.Handler, name string, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Str("server", name).Msg("server error")
	}
}
