package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
)

const (
	defaultCleanupInterval  = 1 * time.Hour
	defaultCleanupRetention = 30 * 24 * time.Hour
	defaultCleanupBatchSize = 500
)

var (
	notificationCleanupRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_notification_cleanup_runs_total",
		Help: "Total number of notification cleanup runs grouped by result.",
	}, []string{"result"})
	notificationCleanupDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shop_notification_cleanup_deleted_total",
		Help: "Total number of deleted read low stock notifications.",
	})
	notificationCleanupLastDeleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shop_notification_cleanup_last_deleted",
		Help: "Number of deleted notifications during the last cleanup run.",
	})
)

// CleanupOptions задаёт параметры воркера очистки прочитанных уведомлений.
type CleanupOptions struct {
	Logger    *log.Entry
	Interval  time.Duration
	Retention time.Duration
	BatchSize int
}

// CleanupOption настраивает CleanupWorker.
type CleanupOption func(*CleanupOptions)

// WithCleanupLogger задаёт logger для воркера.
func WithCleanupLogger(logger *log.Entry) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Logger = logger
	}
}

// WithCleanupInterval задаёт интервал между cleanup-циклами.
func WithCleanupInterval(interval time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Interval = interval
	}
}

// WithRetention задаёт срок хранения прочитанных уведомлений.
func WithRetention(retention time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Retention = retention
	}
}

// WithCleanupBatchSize задаёт размер batch для одного удаления.
func WithCleanupBatchSize(batchSize int) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.BatchSize = batchSize
	}
}

// CleanupWorker периодически удаляет старые прочитанные уведомления,
// чтобы журнал не рос бесконечно. Непрочитанные не трогает.
type CleanupWorker struct {
	repo      domain.NotificationRepository
	logger    *log.Entry
	interval  time.Duration
	retention time.Duration
	batchSize int
}

// NewCleanupWorker создаёт воркер очистки уведомлений.
func NewCleanupWorker(repo domain.NotificationRepository, options ...CleanupOption) *CleanupWorker {
	opts := CleanupOptions{
		Interval:  defaultCleanupInterval,
		Retention: defaultCleanupRetention,
		BatchSize: defaultCleanupBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "notification-cleanup-worker")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultCleanupInterval
	}
	if opts.Retention <= 0 {
		opts.Retention = defaultCleanupRetention
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultCleanupBatchSize
	}

	return &CleanupWorker{
		repo:      repo,
		logger:    logger,
		interval:  opts.Interval,
		retention: opts.Retention,
		batchSize: opts.BatchSize,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.repo == nil {
		w.logger.Warn("notification cleanup worker is disabled: repo is nil")
		return
	}

	w.cleanup(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *CleanupWorker) cleanup(ctx context.Context) {
	before := time.Now().UTC().Add(-w.retention)

	deleted, err := w.DeleteRead(ctx, before)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		notificationCleanupRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("notification cleanup run failed")
		return
	}

	notificationCleanupRunsTotal.WithLabelValues("ok").Inc()
	notificationCleanupLastDeleted.Set(float64(deleted))
	if deleted > 0 {
		w.logger.WithField("deleted", deleted).Info("notification cleanup completed")
	}
}

// DeleteRead удаляет прочитанные уведомления старше before порциями batchSize.
func (w *CleanupWorker) DeleteRead(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	totalDeleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return totalDeleted, err
		}

		deleted, err := w.repo.DeleteReadBefore(before, w.batchSize)
		if err != nil {
			return totalDeleted, err
		}

		totalDeleted += deleted
		if deleted > 0 {
			notificationCleanupDeletedTotal.Add(float64(deleted))
		}

		if deleted < w.batchSize {
			break
		}
	}

	return totalDeleted, nil
}
