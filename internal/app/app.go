package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/clinicshop/internal/health"
	"github.com/vladislavdragonenkov/clinicshop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/clinicshop/internal/metrics"
	"github.com/vladislavdragonenkov/clinicshop/internal/service/cart"
	"github.com/vladislavdragonenkov/clinicshop/internal/service/catalog"
	"github.com/vladislavdragonenkov/clinicshop/internal/service/checkout"
	"github.com/vladislavdragonenkov/clinicshop/internal/service/notifier"
	"github.com/vladislavdragonenkov/clinicshop/internal/service/outbox"
	"github.com/vladislavdragonenkov/clinicshop/internal/service/rest"
	rediscache "github.com/vladislavdragonenkov/clinicshop/internal/storage/redis"
	"github.com/vladislavdragonenkov/clinicshop/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run собирает зависимости и запускает сервис магазина.
// Блокируется до отмены ctx, затем выполняет graceful shutdown.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	logger.WithField("version", version.String()).Info("starting clinic shop service")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer deps.Close()

	producer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		return fmt.Errorf("init kafka producer: %w", err)
	}
	defer closeKafka(producer, logger)

	var redisClient *goredis.Client
	if cfg.RedisAddr != "" {
		redisClient = goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.WithError(err).Warn("failed to close redis client")
			}
		}()
		logger.WithField("addr", cfg.RedisAddr).Info("redis stock cache initialized")
	}

	shopMetrics := metrics.NewShopMetrics()

	notifierSvc := notifier.NewService(
		deps.Notifications,
		notifier.WithOutbox(deps.Outbox),
		notifier.WithMetrics(shopMetrics),
		notifier.WithThreshold(cfg.LowStockThreshold),
	)

	catalogOpts := []catalog.Option{
		catalog.WithOutbox(deps.Outbox),
		catalog.WithStockObserver(notifierSvc),
		catalog.WithMetrics(shopMetrics),
	}
	cartOpts := []cart.Option{}
	checkoutOpts := []checkout.Option{
		checkout.WithOutbox(deps.Outbox),
		checkout.WithStockObserver(notifierSvc),
		checkout.WithMetrics(shopMetrics),
	}
	if redisClient != nil {
		stockCache := rediscache.NewStockCache(redisClient)
		catalogOpts = append(catalogOpts, catalog.WithStockCache(stockCache))
		cartOpts = append(cartOpts, cart.WithStockCache(stockCache))
		checkoutOpts = append(checkoutOpts, checkout.WithStockCache(stockCache))
	}

	catalogSvc := catalog.NewService(deps.Items, deps.Ledger, catalogOpts...)
	cartSvc := cart.NewService(deps.Carts, deps.Items, cartOpts...)
	checkoutSvc := checkout.NewService(deps.Carts, deps.Checkout, deps.Orders, checkoutOpts...)

	// gRPC health server с prometheus-метриками.
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if !errors.As(err, &alreadyRegistered) {
			return fmt.Errorf("register grpc metrics: %w", err)
		}
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		grpc.StreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)
	healthServer := grpchealth.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)

	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
	}

	healthHandler := health.NewHandler(version.String())
	if deps.Store != nil {
		healthHandler.RegisterChecker("postgres", health.NewPingChecker("postgres", 2*time.Second, deps.Store.Ping))
	}
	if redisClient != nil {
		healthHandler.RegisterChecker("redis", health.NewPingChecker("redis", 2*time.Second, func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
	}

	apiServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           rest.NewServer(catalogSvc, cartSvc, checkoutSvc, notifierSvc, nil).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsServer := newMetricsServer(cfg.MetricsAddr, healthHandler)

	errCh := make(chan error, 3)

	go func() {
		logger.WithField("addr", cfg.GRPCAddr).Info("grpc server listening")
		if err := grpcServer.Serve(grpcListener); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("http api listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http api server: %w", err)
		}
	}()
	go func() {
		logger.WithField("addr", cfg.MetricsAddr).Info("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	workersCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	if producer != nil {
		worker := outbox.NewWorker(
			deps.Outbox,
			kafka.NewOutboxPublisher(producer, kafka.TopicShopEvents),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)),
		)
		go worker.Run(workersCtx)
	}
	go notifier.NewCleanupWorker(
		deps.Notifications,
		notifier.WithRetention(cfg.NotificationRetention),
	).Run(workersCtx)

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.WithError(err).Error("server failed, shutting down")
		stopServers(grpcServer, apiServer, metricsServer, healthServer, stopWorkers, logger)
		return err
	}

	stopServers(grpcServer, apiServer, metricsServer, healthServer, stopWorkers, logger)
	logger.Info("clinic shop service stopped")
	return nil
}

func stopServers(
	grpcServer *grpc.Server,
	apiServer *http.Server,
	metricsServer *http.Server,
	healthServer *grpchealth.Server,
	stopWorkers context.CancelFunc,
	logger *log.Entry,
) {
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	stopWorkers()

	shutdownHTTP(apiServer, logger, "http api")
	shutdownHTTP(metricsServer, logger, "metrics")

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		logger.Warn("grpc graceful stop timed out, forcing stop")
		grpcServer.Stop()
	}
}

func newMetricsServer(addr string, healthHandler *health.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", health.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func shutdownHTTP(server *http.Server, logger *log.Entry, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Warnf("failed to shut down %s server", name)
	}
}
