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

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/api"
	"github.com/hackgods/clinic-appointment-booking/internal/appointment"
	"github.com/hackgods/clinic-appointment-booking/internal/availability"
	"github.com/hackgods/clinic-appointment-booking/internal/config"
	"github.com/hackgods/clinic-appointment-booking/internal/db"
	"github.com/hackgods/clinic-appointment-booking/internal/logger"
	"github.com/hackgods/clinic-appointment-booking/internal/memstore"
	"github.com/hackgods/clinic-appointment-booking/internal/notification"
	redisclient "github.com/hackgods/clinic-appointment-booking/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("store_driver", cfg.StoreDriver))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store     appointment.Store
		slots     availability.Repository
		directory notification.Directory = notification.IdentityDirectory{}
		sinks     notification.MultiSink
		deps      []api.Dependency
	)

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatal("postgres connection error", zap.Error(err))
		}
		defer pgPool.Close()
		log.Info("connected to Postgres")

		if cfg.MigrateOnStart {
			if err := db.CreateSchema(rootCtx, pgPool); err != nil {
				log.Fatal("schema migration error", zap.Error(err))
			}
			log.Info("schema ready")
		}

		store = appointment.NewPgStore(pgPool)
		slots = availability.NewPgRepository(pgPool)

		cached, err := notification.NewCachedDirectory(notification.NewPgDirectory(pgPool), cfg.DirectoryCache)
		if err != nil {
			log.Fatal("directory cache error", zap.Error(err))
		}
		directory = cached
		sinks = append(sinks, notification.NewPgInbox(pgPool))
		deps = append(deps, api.Dependency{Name: "postgres", Critical: true, Ping: pgPool.Ping})

	case config.StoreDriverMemory:
		mem := memstore.New()
		store = mem
		slots = mem
		log.Warn("using the in-memory store, data is lost on restart")
	}

	var locker redisclient.Locker
	if cfg.SlotLockEnabled {
		rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Fatal("redis connection error", zap.Error(err))
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn("error closing redis", zap.Error(err))
			}
		}()
		log.Info("connected to Redis")

		locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
		deps = append(deps, api.Dependency{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	if cfg.RabbitMQURL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			log.Fatal("rabbitmq connection error", zap.Error(err))
		}
		defer conn.Close()

		sink, ch, err := notification.NewRabbitMQSink(conn, cfg.NotifyQueue)
		if err != nil {
			log.Fatal("rabbitmq channel error", zap.Error(err))
		}
		defer ch.Close()
		log.Info("publishing notifications to RabbitMQ", zap.String("queue", cfg.NotifyQueue))

		sinks = append(sinks, sink)
		deps = append(deps, api.Dependency{
			Name: "rabbitmq",
			Ping: func(context.Context) error {
				if conn.IsClosed() || ch.IsClosed() {
					return errors.New("rabbitmq connection closed")
				}
				return nil
			},
		})
	}

	if len(sinks) == 0 {
		sinks = append(sinks, notification.NewLogSink(log))
	}

	dispatcher := notification.NewDispatcher(directory, sinks, log, cfg.NotifyTimeout)

	router := api.NewRouter(api.RouterConfig{
		Appointments: appointment.NewService(store, locker, dispatcher, log),
		Availability: availability.NewService(slots, log),
		Dependencies: deps,
		Log:          log,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", zap.Error(err))
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		log.Warn("pending notifications dropped", zap.Error(err))
	}
}
