package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/emergencyclick/internal/auth"
	"github.com/mmynk/emergencyclick/internal/config"
	"github.com/mmynk/emergencyclick/internal/metrics"
	"github.com/mmynk/emergencyclick/internal/middleware"
	"github.com/mmynk/emergencyclick/internal/realtime/mqtt"
	"github.com/mmynk/emergencyclick/internal/service"
	"github.com/mmynk/emergencyclick/internal/storage"
	"github.com/mmynk/emergencyclick/internal/storage/dynamo"
	"github.com/mmynk/emergencyclick/internal/storage/sqlite"
	"github.com/mmynk/emergencyclick/pkg/api"
	"github.com/mmynk/emergencyclick/pkg/logging"
)

func main() {
	logging.Setup()

	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadServer(".env")
	if err != nil {
		return err
	}

	// SQLite always backs accounts and clicks, and is the default for the
	// document store and the shared table.
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	var docs storage.DocumentStore = store
	if cfg.DocBackend == config.BackendDynamoDB {
		d, err := dynamo.Open(ctx, dynamo.Config{
			Table:           cfg.DynamoDB.Table,
			Region:          cfg.DynamoDB.Region,
			Endpoint:        cfg.DynamoDB.Endpoint,
			AccessKeyID:     cfg.DynamoDB.AccessKeyID,
			SecretAccessKey: cfg.DynamoDB.SecretAccessKey,
		})
		if err != nil {
			return err
		}
		docs = d
		slog.Info("Document store on DynamoDB", "table", cfg.DynamoDB.Table, "region", cfg.DynamoDB.Region)
	}

	var shared storage.SharedTable = store
	var snapshot storage.SharedSnapshotter = store
	if cfg.SharedBackend == config.BackendMQTT {
		table := mqtt.New(mqtt.Config{
			Broker:      cfg.MQTT.Broker,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			UseTLS:      cfg.MQTT.UseTLS,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		})
		if err := table.Start(ctx); err != nil {
			return err
		}
		defer table.Stop()
		shared, snapshot = table, nil
		slog.Info("Shared table on MQTT", "broker", cfg.MQTT.Broker, "prefix", cfg.MQTT.TopicPrefix)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promRegistry)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	authenticator := auth.NewPasswordAuthenticator(store, docs)
	logger := slog.Default()

	public := connect.WithInterceptors(
		middleware.MetricsInterceptor(m),
		middleware.LoggingInterceptor(logger),
		middleware.OptionalAuth(jwtManager),
	)
	private := connect.WithInterceptors(
		middleware.MetricsInterceptor(m),
		middleware.LoggingInterceptor(logger),
		middleware.RequireAuth(jwtManager),
	)

	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})).Methods("GET")

	mount := func(path string, h http.Handler) {
		router.PathPrefix(path).Handler(h)
	}
	mount(api.NewAuthServiceHandler(service.NewAuthService(authenticator, jwtManager, store, logger), public))
	mount(api.NewDocumentServiceHandler(service.NewDocumentService(docs, logger).WithMetrics(m), private))
	mount(api.NewSharedServiceHandler(service.NewSharedService(shared, snapshot, logger).WithMetrics(m), private))
	mount(api.NewClickServiceHandler(service.NewClickService(store, logger), private))

	router.Use(loggingMiddleware)

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	handler := h2c.NewHandler(corsMiddleware(router), &http2.Server{})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		slog.Debug("Request received",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		next.ServeHTTP(w, r)

		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
