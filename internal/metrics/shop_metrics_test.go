package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestMetrics() *ShopMetrics {
	return newShopMetricsWithRegisterer(prometheus.NewRegistry())
}

func TestNewShopMetrics(t *testing.T) {
	metrics := newTestMetrics()

	if metrics == nil {
		t.Fatal("newShopMetricsWithRegisterer should not return nil")
	}

	if metrics.checkoutStarted == nil {
		t.Error("checkoutStarted counter should not be nil")
	}

	if metrics.checkoutCompleted == nil {
		t.Error("checkoutCompleted counter should not be nil")
	}

	if metrics.checkoutRejected == nil {
		t.Error("checkoutRejected counter vec should not be nil")
	}

	if metrics.checkoutDuration == nil {
		t.Error("checkoutDuration histogram should not be nil")
	}

	if metrics.stockAdjustments == nil {
		t.Error("stockAdjustments counter should not be nil")
	}

	if metrics.lowStockNotifications == nil {
		t.Error("lowStockNotifications counter should not be nil")
	}

	if metrics.lastOrderTotal == nil {
		t.Error("lastOrderTotal gauge should not be nil")
	}
}

func TestRegisterReusesExistingCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newShopMetricsWithRegisterer(reg)
	second := newShopMetricsWithRegisterer(reg)

	first.RecordCheckoutStarted()
	second.RecordCheckoutStarted()

	metric := &dto.Metric{}
	if err := second.checkoutStarted.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected shared counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordCheckoutCompleted(t *testing.T) {
	metrics := newTestMetrics()

	metrics.RecordCheckoutCompleted(4500)

	metric := &dto.Metric{}
	if err := metrics.checkoutCompleted.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1.0 {
		t.Errorf("expected counter value 1.0, got %f", metric.Counter.GetValue())
	}

	gaugeMetric := &dto.Metric{}
	if err := metrics.lastOrderTotal.Write(gaugeMetric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if gaugeMetric.Gauge.GetValue() != 4500.0 {
		t.Errorf("expected last order total 4500.0, got %f", gaugeMetric.Gauge.GetValue())
	}
}

func TestRecordCheckoutRejected(t *testing.T) {
	metrics := newTestMetrics()

	metrics.RecordCheckoutRejected("insufficient_stock")
	metrics.RecordCheckoutRejected("insufficient_stock")
	metrics.RecordCheckoutRejected("empty_cart")

	metric := &dto.Metric{}
	if err := metrics.checkoutRejected.WithLabelValues("insufficient_stock").Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordCheckoutDuration(t *testing.T) {
	metrics := newTestMetrics()

	metrics.RecordCheckoutDuration(150 * time.Millisecond)

	metric := &dto.Metric{}
	if err := metrics.checkoutDuration.Write(metric); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}

	if metric.Histogram.GetSampleCount() != 1 {
		t.Errorf("expected sample count 1, got %d", metric.Histogram.GetSampleCount())
	}
	if metric.Histogram.GetSampleSum() < 0.14 || metric.Histogram.GetSampleSum() > 0.16 {
		t.Errorf("expected sample sum around 0.15, got %f", metric.Histogram.GetSampleSum())
	}
}

func TestRecordStockCounters(t *testing.T) {
	metrics := newTestMetrics()

	metrics.RecordStockAdjustment()
	metrics.RecordLowStockNotification()
	metrics.RecordLowStockNotification()

	metric := &dto.Metric{}
	if err := metrics.stockAdjustments.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1.0 {
		t.Errorf("expected stock adjustments 1.0, got %f", metric.Counter.GetValue())
	}

	metric = &dto.Metric{}
	if err := metrics.lowStockNotifications.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected low stock notifications 2.0, got %f", metric.Counter.GetValue())
	}
}
