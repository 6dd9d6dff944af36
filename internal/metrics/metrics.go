// Package metrics はPrometheusの計測値をまとめる。
// *Metrics が nil でも各メソッドは何もしない。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "storefront"

type Metrics struct {
	Registry *prometheus.Registry

	usecaseRequests      *prometheus.CounterVec
	usecaseDuration      *prometheus.HistogramVec
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
	stockRejections      prometheus.Counter
	notificationFailures *prometheus.CounterVec
	paymentConfirmations *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		usecaseRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usecase_requests_total",
			Help:      "Use case executions by outcome.",
		}, []string{"use_case", "outcome"}),
		usecaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "usecase_duration_seconds",
			Help:      "Use case latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"use_case"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		stockRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_rejections_total",
			Help:      "Reservations rejected for insufficient stock.",
		}),
		notificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Swallowed notification failures by kind.",
		}, []string{"kind"}),
		paymentConfirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_confirmations_total",
			Help:      "Payment confirmation callbacks by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.usecaseRequests,
		m.usecaseDuration,
		m.httpRequests,
		m.httpDuration,
		m.stockRejections,
		m.notificationFailures,
		m.paymentConfirmations,
	)
	return m
}

// defer m.ObserveUsecase("place_order", time.Now(), &err) の形で使う
func (m *Metrics) ObserveUsecase(name string, start time.Time, errp *error) {
	if m == nil {
		return
	}
	outcome := "success"
	if errp != nil && *errp != nil {
		outcome = "error"
	}
	m.usecaseRequests.WithLabelValues(name, outcome).Inc()
	m.usecaseDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) StockRejected() {
	if m == nil {
		return
	}
	m.stockRejections.Inc()
}

func (m *Metrics) NotificationFailed(kind string) {
	if m == nil {
		return
	}
	m.notificationFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) PaymentConfirmation(result string) {
	if m == nil {
		return
	}
	m.paymentConfirmations.WithLabelValues(result).Inc()
}
