package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abhinavnist/payment-system-backend/internal"
	"github.com/Abhinavnist/payment-system-backend/internal/auth"
	authpg "github.com/Abhinavnist/payment-system-backend/internal/auth/postgres"
	"github.com/Abhinavnist/payment-system-backend/internal/callback"
	"github.com/Abhinavnist/payment-system-backend/internal/core/events"
	"github.com/Abhinavnist/payment-system-backend/internal/identity"
	merchantpg "github.com/Abhinavnist/payment-system-backend/internal/merchant/postgres"
	"github.com/Abhinavnist/payment-system-backend/internal/payment"
	paymentpg "github.com/Abhinavnist/payment-system-backend/internal/payment/postgres"
	"github.com/Abhinavnist/payment-system-backend/internal/paymentlink"
	linkpg "github.com/Abhinavnist/payment-system-backend/internal/paymentlink/postgres"
	"github.com/Abhinavnist/payment-system-backend/internal/statement"
	"github.com/Abhinavnist/payment-system-backend/internal/transport/rest"
	"github.com/Abhinavnist/payment-system-backend/internal/utr"
	"github.com/Abhinavnist/payment-system-backend/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config     *internal.Config
	DB         *sqlx.DB
	Router     *chi.Mux
	Dispatcher *callback.Dispatcher
	Logger     *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		deps.Dispatcher.Shutdown()
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	bus := events.NewEventBus(log)
	hasher := identity.NewHasher(config.Security.HashSecret)

	merchantRepo := merchantpg.NewMerchantRepository(gormDB)
	paymentRepo := paymentpg.NewPaymentRepository(gormDB)
	linkRepo := linkpg.NewPaymentLinkRepository(gormDB)
	adminRepo := authpg.NewAdminRepository(gormDB)

	paymentService := payment.NewService(paymentRepo, merchantRepo, hasher, bus, log)
	paymentHandler := payment.NewHandler(paymentService, config.Payment.PendingWindowDays)

	parser := statement.NewParser(statement.DefaultVocabulary(), config.Payment.StatementMaxBytes, config.Payment.StatementMaxRows, log)
	utrService := utr.NewService(paymentService, parser, config.Payment.AmountTolerance, config.Payment.MatchWindowDays, log)
	utrHandler := utr.NewHandler(utrService, config.Payment.StatementMaxBytes)

	codes := identity.NewCodeGenerator(linkRepo, config.Payment.CodeLength, config.Payment.CodeMaxAttempts)
	linkService := paymentlink.NewService(linkRepo, merchantRepo, paymentService, codes, bus, log)
	linkHandler := paymentlink.NewHandler(linkService, config.Server.BaseURL)

	tokenGen := auth.NewJWTTokenGenerator(config.Security.JWTSecret)
	authService := auth.NewService(adminRepo, tokenGen, config.Security.BCryptCost)
	authHandler := auth.NewHandler(authService, merchantRepo)

	dispatcher := callback.NewDispatcher(callback.Config{
		Timeout:      config.Callback.Timeout,
		MaxWorkers:   config.Callback.MaxWorkers,
		JobQueueSize: config.Callback.JobQueueSize,
	}, merchantRepo, paymentRepo, log)
	dispatcher.SubscribeTo(bus)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, config.Server.AllowedOrigins, authHandler, paymentHandler, utrHandler, linkHandler, log)

	return &Dependencies{
		Config:     config,
		Logger:     log,
		DB:         db,
		Router:     router,
		Dispatcher: dispatcher,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm layers gorm over the already-open sql.DB so both share one pool.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormpostgres.New(gormpostgres.Config{
		Conn: db.DB,
	}), &gorm.Config{
		TranslateError: true,
	})
}
