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

	"github.com/geocoder89/rsvphub/internal/accounts"
	"github.com/geocoder89/rsvphub/internal/admission"
	"github.com/geocoder89/rsvphub/internal/auth"
	"github.com/geocoder89/rsvphub/internal/cache"
	"github.com/geocoder89/rsvphub/internal/config"
	"github.com/geocoder89/rsvphub/internal/db"
	"github.com/geocoder89/rsvphub/internal/events"
	httpx "github.com/geocoder89/rsvphub/internal/http"
	"github.com/geocoder89/rsvphub/internal/observability"
	"github.com/geocoder89/rsvphub/internal/repo/memory"
	"github.com/geocoder89/rsvphub/internal/repo/mongodb"
	"github.com/geocoder89/rsvphub/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serverPort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if serverPort > 0 {
			cfg.Port = serverPort
		}
		return runServer(cfg)
	},
}

func init() {
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "listen port (default: $PORT or 5000)")
}

// stores is the storage backend picked by STORE_DRIVER.
type stores struct {
	users  accounts.UserStore
	events interface {
		events.Store
		admission.Store
		Ping(ctx context.Context) error
	}
	close func()
}

func openStores(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (stores, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		if cfg.AutoMigrate {
			if err := db.MigrateUp(cfg.DBURL); err != nil {
				return stores{}, err
			}
			log.Info("migrations applied")
		}

		pool, err := db.NewPool(ctx, cfg.DBURL, int32(cfg.DBMaxConns))
		if err != nil {
			return stores{}, fmt.Errorf("connect postgres: %w", err)
		}
		return stores{
			users:  postgres.NewUsersRepo(pool, prom),
			events: postgres.NewEventsRepo(pool, prom),
			close:  pool.Close,
		}, nil

	case config.DriverMongo:
		client, database, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return stores{}, err
		}
		if err := mongodb.EnsureIndexes(ctx, database); err != nil {
			_ = client.Disconnect(context.Background())
			return stores{}, err
		}
		return stores{
			users:  mongodb.NewUsersRepo(database, prom),
			events: mongodb.NewEventsRepo(database, prom),
			close: func() {
				ctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = client.Disconnect(ctx)
			},
		}, nil

	default:
		log.Warn("using in-memory store, data is lost on restart")
		users := memory.NewUsersRepo()
		return stores{
			users:  users,
			events: memory.NewEventsRepo(users),
			close:  func() {},
		}, nil
	}
}

func openListCache(ctx context.Context, cfg config.Config, log *slog.Logger) (cache.ListCache, func()) {
	if cfg.RedisAddr == "" {
		return cache.New(cfg.CacheTTL()), func() {}
	}

	rdb := cache.NewRedisClient(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	rc := cache.NewRedisCache(rdb, cfg.CacheTTL())

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		// lookups degrade to misses until redis comes back
		log.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "err", err)
	}

	return rc, func() { _ = rdb.Close() }
}

func runServer(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, observability.ServiceName, cfg.Env, cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(ctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	st, err := openStores(ctx, cfg, prom, log)
	if err != nil {
		return err
	}
	defer st.close()

	lists, closeCache := openListCache(ctx, cfg, log)
	defer closeCache()

	tokens := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL())

	router := httpx.NewRouter(cfg, httpx.Deps{
		Accounts: accounts.NewService(st.users, tokens),
		Events:   events.NewService(st.events, lists, prom),
		Seats:    admission.New(st.events, lists, prom),
		Tokens:   tokens,
		Ping:     st.events.Ping,
		Prom:     prom,
		Gatherer: reg,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-serveErr:
		if ok {
			log.Error("server failed", "err", err)
			return err
		}
		return nil
	case <-stop:
	}

	log.Info("server shutting down")

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return err
	}

	log.Info("shutdown complete")
	return nil
}
