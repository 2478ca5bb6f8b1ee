package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/config"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/healthcheck"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/httpapi"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/session"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/storage"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/usecase"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/whatsapp"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/logger"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/utils"
)

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	// Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Initialize Metrics conditionally
	metricsEnabled := cfg.Metrics.Enabled
	observer.InitMetrics(metricsEnabled)

	logger.Log.Info("Starting Daisi WA CRM API",
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port),
	)

	// Initialize repositories
	postgresRepo, err := initPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	// Create repository adapters for the service
	tenantRepo := storage.NewTenantRepoAdapter(postgresRepo)
	agentRepo := storage.NewAgentRepoAdapter(postgresRepo)
	conversationRepo := storage.NewConversationRepoAdapter(postgresRepo)
	messageRepo := storage.NewMessageRepoAdapter(postgresRepo)
	contactRepo := storage.NewContactRepoAdapter(postgresRepo)
	accountRepo := storage.NewAccountRepoAdapter(postgresRepo)
	templateRepo := storage.NewTemplateRepoAdapter(postgresRepo)
	quickReplyRepo := storage.NewQuickReplyRepoAdapter(postgresRepo)
	tagRepo := storage.NewTagRepoAdapter(postgresRepo)
	sessionRepo := storage.NewSessionRepoAdapter(postgresRepo)

	// Outbound WhatsApp Cloud API client
	waClient := whatsapp.NewClient(cfg.WhatsApp.GraphBaseURL, cfg.WhatsApp.APIVersion, cfg.WhatsApp.Timeout)

	// Create service
	service := usecase.NewCRMService(
		tenantRepo,
		agentRepo,
		conversationRepo,
		messageRepo,
		contactRepo,
		accountRepo,
		templateRepo,
		quickReplyRepo,
		tagRepo,
		waClient,
	)

	// HTTP surface
	verifier := session.NewDBVerifier(sessionRepo)
	handlers := httpapi.NewHandlers(service, cfg.WhatsApp.VerifyToken)
	router := httpapi.NewRouter(handlers, verifier)

	apiServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Create health check server on the metrics port
	healthServer := healthcheck.NewServer(strconv.Itoa(cfg.Metrics.Port), logger.Log, postgresRepo.Ping)

	// Register metrics handler if enabled BEFORE starting the server
	if metricsEnabled {
		healthServer.RegisterMetricsHandler(promhttp.Handler())
		logger.Log.Info("Metrics endpoint enabled", zap.String("path", "/metrics"), zap.Int("port", cfg.Metrics.Port))
	} else {
		logger.Log.Info("Metrics endpoint disabled for environment", zap.String("environment", cfg.Environment))
	}

	// Start health check server (which now might include /metrics)
	healthServer.Start()

	logger.Log.Info("Health check endpoints available",
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port)),
		zap.String("readiness", fmt.Sprintf("http://localhost:%d/ready", cfg.Metrics.Port)),
	)

	// Start API server
	sigChan := make(chan os.Signal, 1)
	go func() {
		logger.Log.Info("Starting API server", zap.String("addr", apiServer.Addr))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("API server failed, initiating shutdown...", zap.Error(err))
			select {
			case sigChan <- syscall.SIGTERM:
			default:
				logger.Log.Warn("Could not send SIGTERM to signal channel immediately")
			}
		}
	}()

	// Wait for termination signal
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	// Graceful shutdown with timeout
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", shutdownTimeout))

	// Use WaitGroup to track shutdown of all components
	var wg sync.WaitGroup
	wg.Add(3)

	// Shutdown API server first so in-flight requests drain before the
	// database goes away.
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping API server")
		start := time.Now()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping API server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] API server stopped",
				zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping API server",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Shutdown health check server (includes metrics if enabled)
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping health check server")
		start := time.Now()
		if err := healthServer.Stop(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping health check server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] Health check server stopped",
				zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping health check server",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Close database connections
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Closing PostgreSQL connection")
		start := time.Now()
		if err := postgresRepo.Close(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Failed to close PostgreSQL connection", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] PostgreSQL connection closed",
				zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while closing database connections",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Wait with a timeout for all components to shut down
	waitCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Log.Info("[shutdown] All components stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Log.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
	}

	logger.Log.Info("Daisi WA CRM API shutdown complete")
}

// Initialize PostgreSQL repository
func initPostgresRepo(dsn string, autoMigrate bool) (*storage.PostgresRepo, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	repo, err := storage.NewPostgresRepo(dsn, autoMigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
	}

	logger.Log.Info("Initialized PostgreSQL repository")
	return repo, nil
}
