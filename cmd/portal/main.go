package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/medicloud/portal/internal/annotation"
	"github.com/medicloud/portal/internal/genai"
	"github.com/medicloud/portal/internal/iam"
	"github.com/medicloud/portal/internal/ledger"
	"github.com/medicloud/portal/pkg/config"
	"github.com/medicloud/portal/pkg/database"
	"github.com/medicloud/portal/pkg/logger"
	"github.com/medicloud/portal/pkg/monitoring"
	"github.com/medicloud/portal/pkg/repository"
)

func main() {
	// Load configuration first: missing secrets must block startup
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("Starting MediCloud portal")

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.CreateSchema(ctx); err != nil {
		log.WithError(err).Fatal("Failed to create database schema")
	}

	// Initialize repositories
	patientRepo := repository.NewPatientRepository(db.DB, log)
	userRepo := repository.NewUserRepository(db.DB, log)

	// Initialize services
	passwordManager := iam.NewPasswordManager()
	iamService := iam.NewService(cfg, log, userRepo, patientRepo, passwordManager)

	if err := iamService.EnsureDoctorAccount(ctx); err != nil {
		log.WithError(err).Fatal("Failed to seed doctor account")
	}

	backendFactory := genai.NewRESTBackendFactory(&cfg.GenAI, log)
	invoker := genai.NewInvoker(&cfg.GenAI, backendFactory, log)

	historyLedger := ledger.New(patientRepo, log)
	annotationService := annotation.NewService(invoker, historyLedger, log)

	// Initialize HTTP handlers
	iamHandlers := iam.NewHandlers(iamService, log)
	annotationHandlers := annotation.NewHandlers(annotationService, cfg.Server.MaxUploadBytes, log)

	// Setup HTTP router
	router := mux.NewRouter()
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware)

	if cfg.Monitoring.Enabled {
		router.Handle(cfg.Monitoring.MetricsPath, monitoring.Handler()).Methods("GET")
		router.HandleFunc(cfg.Monitoring.HealthPath, healthHandler(db)).Methods("GET")
	}

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	iamHandlers.RegisterPublicRoutes(apiRouter)

	sessionRouter := apiRouter.NewRoute().Subrouter()
	sessionRouter.Use(iamService.Middleware)
	iamHandlers.RegisterRoutes(sessionRouter)
	annotationHandlers.RegisterRoutes(sessionRouter)

	// Setup HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithField("addr", server.Addr).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down portal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to shutdown server gracefully")
	}

	log.Info("Portal stopped")
}

// healthHandler reports process and store health
func healthHandler(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := db.Health(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"degraded","database":%q}`, err.Error())
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}

// loggingMiddleware logs HTTP requests and records request metrics
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapper, r)

			duration := time.Since(start)
			monitoring.RecordHTTPRequest(r.Method, r.URL.Path, wrapper.statusCode, duration)

			log.WithFields(map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      wrapper.statusCode,
				"duration":    duration.String(),
				"remote_addr": r.RemoteAddr,
			}).Info("HTTP request")
		})
	}
}

// corsMiddleware handles CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
