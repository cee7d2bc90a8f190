package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ShopMetrics содержит метрики магазина.
type ShopMetrics struct {
	// Счётчики оформления заказов
	checkoutStarted   prometheus.Counter
	checkoutCompleted prometheus.Counter
	checkoutRejected  *prometheus.CounterVec

	// Гистограмма времени оформления
	checkoutDuration prometheus.Histogram

	// Счётчики движения остатков
	stockAdjustments      prometheus.Counter
	lowStockNotifications prometheus.Counter

	// Gauge стоимости оформленных заказов
	lastOrderTotal prometheus.Gauge
}

// NewShopMetrics создаёт новый экземпляр метрик магазина.
func NewShopMetrics() *ShopMetrics {
	return newShopMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newShopMetricsWithRegisterer(registerer prometheus.Registerer) *ShopMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ShopMetrics{
		checkoutStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_checkout_started_total",
			Help: "Total number of checkout attempts",
		}),
		checkoutCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_checkout_completed_total",
			Help: "Total number of successfully completed checkouts",
		}),
		checkoutRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shop_checkout_rejected_total",
			Help: "Total number of rejected checkouts grouped by reason",
		}, []string{"reason"}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "shop_checkout_duration_seconds",
			Help:    "Duration of checkout transactions in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		stockAdjustments: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_stock_adjustments_total",
			Help: "Total number of manual stock adjustments",
		}),
		lowStockNotifications: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_low_stock_notifications_total",
			Help: "Total number of low stock notifications created",
		}),
		lastOrderTotal: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "shop_last_order_total_minor",
			Help: "Total of the most recently completed order in minor currency units",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCheckoutStarted увеличивает счётчик попыток оформления.
func (m *ShopMetrics) RecordCheckoutStarted() {
	m.checkoutStarted.Inc()
}

// RecordCheckoutCompleted фиксирует успешное оформление и сумму заказа.
func (m *ShopMetrics) RecordCheckoutCompleted(totalMinor int64) {
	m.checkoutCompleted.Inc()
	m.lastOrderTotal.Set(float64(totalMinor))
}

// RecordCheckoutRejected увеличивает счётчик отклонённых оформлений.
func (m *ShopMetrics) RecordCheckoutRejected(reason string) {
	m.checkoutRejected.WithLabelValues(reason).Inc()
}

// RecordCheckoutDuration записывает время оформления заказа.
func (m *ShopMetrics) RecordCheckoutDuration(duration time.Duration) {
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordStockAdjustment увеличивает счётчик ручных движений остатков.
func (m *ShopMetrics) RecordStockAdjustment() {
	m.stockAdjustments.Inc()
}

// RecordLowStockNotification увеличивает счётчик low-stock уведомлений.
func (m *ShopMetrics) RecordLowStockNotification() {
	m.lowStockNotifications.Inc()
}
