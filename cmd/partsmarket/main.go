// Command partsmarket runs the parts marketplace HTTP API.
//
// @title           Parts Marketplace API
// @version         1.0
// @description     Buyers post part requests, sellers answer with offers, buyers pay to unlock seller contacts.
// @BasePath        /api/v1
// @securityDefinitions.apikey UserID
// @in              header
// @name            X-User-ID
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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"gorm.io/gorm"

	"github.com/tbourn/go-parts-market/docs"
	"github.com/tbourn/go-parts-market/internal/config"
	"github.com/tbourn/go-parts-market/internal/events"
	httpapi "github.com/tbourn/go-parts-market/internal/http"
	"github.com/tbourn/go-parts-market/internal/observability"
	"github.com/tbourn/go-parts-market/internal/payments"
	"github.com/tbourn/go-parts-market/internal/repo"
	"github.com/tbourn/go-parts-market/internal/services"
	"github.com/tbourn/go-parts-market/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	shutdownTimeout = 15 * time.Second
	sweepInterval   = 10 * time.Minute
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("partsmarket exited")
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("partsmarket", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to a YAML config file (overrides CONFIG_PATH)")
	migrateOnly := flags.Bool("migrate-only", false, "apply database migrations and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.LoadFile(sysutil.FirstNonEmpty(*configPath, os.Getenv("CONFIG_PATH")))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	sysutil.ConfigureLogger(cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if *migrateOnly {
		log.Info().Str("driver", cfg.DBDriver).Msg("migrations done")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}

	pub := newPublisher(cfg)
	defer func() {
		if err := pub.Close(); err != nil {
			log.Warn().Err(err).Msg("close event publisher")
		}
	}()

	docs.SwaggerInfo.BasePath = cfg.APIBasePath
	docs.SwaggerInfo.Version = version

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	if err := httpapi.RegisterRoutes(engine, httpapi.Deps{
		DB:       db,
		Events:   pub,
		Provider: newProvider(cfg),
	}, cfg); err != nil {
		return fmt.Errorf("register routes: %w", err)
	}

	go sweepIdempotency(ctx, services.NewIdempotencyService(db, cfg.IdempotencyTTL))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
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
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}

// openDatabase connects using the configured driver and brings the schema
// up to date: versioned SQL migrations for PostgreSQL, AutoMigrate for SQLite.
func openDatabase(cfg config.Config) (*gorm.DB, error) {
	dsn := cfg.DBPath
	if cfg.DBDriver == repo.DriverPostgres {
		dsn = cfg.DatabaseURL
	}
	db, err := repo.Open(cfg.DBDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}

	if cfg.DBDriver == repo.DriverPostgres {
		path := sysutil.FirstNonEmpty(cfg.MigrationsPath, "migrations")
		if err := repo.RunMigrations(cfg.DatabaseURL, path); err != nil {
			return nil, err
		}
		return db, nil
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return db, nil
}

func newProvider(cfg config.Config) payments.Provider {
	p := cfg.Payments
	if p.Provider == "http" {
		log.Info().Str("base_url", p.BaseURL).Msg("using http payment provider")
		return payments.NewHTTPProvider(p.BaseURL, p.SecretKey, p.CallbackURL, p.Timeout)
	}
	log.Warn().Msg("using sandbox payment provider; unlocks confirm only through signed test webhooks")
	return &payments.SandboxProvider{BaseURL: sysutil.FirstNonEmpty(p.CallbackURL, "http://localhost:"+cfg.Port)}
}

func newPublisher(cfg config.Config) events.Publisher {
	if len(cfg.Kafka.Brokers) > 0 {
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing events to kafka")
		return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}
	return events.LogPublisher{Logger: log.Logger}
}

// sweepIdempotency deletes expired idempotency records until ctx ends.
func sweepIdempotency(ctx context.Context, svc *services.IdempotencyService) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := svc.Sweep(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("idempotency sweep failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("idempotency sweep")
			}
		}
	}
}
