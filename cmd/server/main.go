package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/yukikurage/multitenant-task-api/internal/auth"
	"github.com/yukikurage/multitenant-task-api/internal/config"
	"github.com/yukikurage/multitenant-task-api/internal/database"
	"github.com/yukikurage/multitenant-task-api/internal/handlers"
	"github.com/yukikurage/multitenant-task-api/internal/logger"
	"github.com/yukikurage/multitenant-task-api/internal/repository"
	"github.com/yukikurage/multitenant-task-api/internal/services"
	"github.com/yukikurage/multitenant-task-api/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskapi",
		Short:         "Multi-tenant task management API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	})

	return root
}

// bootstrap loads configuration, builds the logger and opens the database.
func bootstrap() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	log, err := logger.Init(logger.Options{
		Production: cfg.IsProduction(),
		Level:      cfg.Log.Level,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	db, err := database.Connect(cfg.DB, log)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return nil, nil, nil, err
	}

	if err := database.Migrate(db, log); err != nil {
		log.Error("Failed to run migrations", zap.Error(err))
		return nil, nil, nil, err
	}

	return cfg, log, db, nil
}

func runMigrate() error {
	_, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	log.Info("Migrations applied")
	return nil
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("Starting server", cfg.LogFields()...)

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	tel, err := telemetry.Setup(ctx, cfg.OTel)
	if err != nil {
		log.Error("Failed to initialize telemetry", zap.Error(err))
		return err
	}

	var storeOpts []repository.StoreOption
	if cfg.Auth.TokenStore == config.TokenStoreRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			log.Error("Failed to connect to Redis", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
			return err
		}
		storeOpts = append(storeOpts, repository.WithTokenRepository(repository.NewRedisTokenRepository(client)))
		log.Info("Redis token store connected", zap.String("addr", cfg.Redis.Addr()))
	}
	store := repository.NewStore(db, storeOpts...)

	opts := services.Options{
		DeleteOrphanedUsers: cfg.Tenancy.DeleteOrphanedUsers,
		Logger:              log,
	}
	if cfg.OpenAIAPIKey != "" {
		opts.Generator = services.NewAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}
	svc := services.New(
		store,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		auth.NewTokenCodec(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL),
		opts,
	)

	gin.SetMode(cfg.Server.GinMode)
	routerOpts := handlers.RouterOptions{Logger: log}
	if tel != nil {
		routerOpts.ServiceName = cfg.OTel.ServiceName
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handlers.NewRouter(svc, routerOpts),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
	case <-quit:
	}

	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Error("Telemetry shutdown error", zap.Error(err))
	}

	log.Info("Shutdown complete")
	return nil
}
