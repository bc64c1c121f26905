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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/app"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/demo"
	"github.com/hackgods/clinic-scheduling/internal/lock"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/mqtt"
	"github.com/hackgods/clinic-scheduling/internal/notify"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "api-server",
		Short: "Clinic scheduling API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config load: %w", err)
			}
			return runServer(cfg, logging.New(cfg.Env, cfg.LogLevel))
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
				n, err := db.NewMigrator(pool).Up(ctx)
				if err != nil {
					return err
				}
				logger.Info().Int("applied", n).Msg("migrations complete")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool, _ zerolog.Logger) error {
				statuses, err := db.NewMigrator(pool).Status(ctx)
				if err != nil {
					return err
				}
				for _, st := range statuses {
					state := "pending"
					if st.Applied {
						state = "applied " + st.AppliedAt.Format(time.RFC3339)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%03d  %-30s %s\n", st.Version, st.Name, state)
				}
				return nil
			})
		},
	})

	return cmd
}

func withPool(parent context.Context, fn func(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	if cfg.PostgresDSN == "" {
		return errors.New("POSTGRES_DSN is required")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel)

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, pool, logger)
}

func runServer(cfg config.Config, logger zerolog.Logger) error {
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Bool("demo_mode", cfg.DemoMode).Msg("api-server starting up")
	if cfg.UsesDevSecret() {
		logger.Warn().Msg("AUTH_JWT_SECRET not set, using the development secret")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repos  app.Repositories
		pgPool *pgxpool.Pool
	)
	if cfg.DemoMode {
		store := demo.NewStore()
		store.Load(demo.Generate(demo.DefaultOptions()))
		repos = app.DemoRepositories(store)
		logger.Warn().Msg("no database configured, serving generated demo data")
	} else {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, logger)
		cancelPg()
		if err != nil {
			return fmt.Errorf("postgres connection: %w", err)
		}
		defer pool.Close()
		pgPool = pool
		repos = app.PostgresRepositories(pool)
	}

	rdb, err := redisclient.NewRedisClient(rootCtx, cfg)
	if err != nil {
		return fmt.Errorf("redis connection: %w", err)
	}
	var (
		locker  lock.Locker
		revoker auth.Revoker
	)
	if rdb != nil {
		defer closeRedis(rdb, logger)
		locker = lock.NewRedisClinicLocker(rdb, cfg.LockTTL)
		revoker = auth.NewRedisRevoker(rdb)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")
	} else {
		locker = lock.NewLocal(cfg.LockTTL)
		revoker = auth.NewMemoryRevoker()
		logger.Warn().Msg("REDIS_ADDR not set, clinic locks and sign-outs are local to this process")
	}

	var notifier prescription.Notifier = notify.NewLogNotifier(logger)
	if cfg.NotifyBaseURL != "" {
		notifier = notify.NewGateway(cfg.NotifyBaseURL, cfg.NotifyAPIKey, logger)
	}

	m := metrics.New()
	svcs := app.NewServices(repos, app.Options{
		Locker:       locker,
		Notifier:     notifier,
		IsSuperAdmin: cfg.IsSuperAdmin,
		Metrics:      m,
		Logger:       logger,
	})

	var broker api.BrokerStatus
	if cfg.MQTTBrokerURL != "" {
		client, err := mqtt.NewClient(mqtt.Config{Broker: cfg.MQTTBrokerURL, ClientID: cfg.MQTTClientID}, logger)
		if err != nil {
			return fmt.Errorf("mqtt connection: %w", err)
		}
		defer client.Disconnect()
		if err := client.Subscribe(cfg.MQTTTopic, 1, svcs.Ingestor.HandleMessage); err != nil {
			return fmt.Errorf("mqtt subscribe: %w", err)
		}
		logger.Info().Str("topic", cfg.MQTTTopic).Msg("ingesting voice agent calls")
		broker = client
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		Metrics:        m,
		Verifier:       auth.NewVerifier(cfg.JWTSecret),
		Revoker:        revoker,
		Resolver:       svcs.Resolver,
		Clinics:        svcs.Clinics,
		Patients:       svcs.Patients,
		Appointments:   svcs.Appointments,
		Prescriptions:  svcs.Prescriptions,
		VoiceLogs:      svcs.VoiceLogs,
		Dashboards:     svcs.Dashboards,
		Doctors:        repos.Actors,
		PgPool:         pgPool,
		Redis:          rdb,
		Broker:         broker,
		Env:            cfg.Env,
		Version:        version,
		DemoMode:       cfg.DemoMode,
		ReportLocation: time.Local,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-rootCtx.Done():
	}

	logger.Info().Msg("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func closeRedis(rdb *redis.Client, logger zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		logger.Error().Err(err).Msg("error closing redis")
	}
}
