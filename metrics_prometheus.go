package ldap

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer receives the outcome of every bridge call.
type Observer interface {
	// ObserveAuthentication is called once per Authenticate call. reason is
	// ReasonNone on success.
	ObserveAuthentication(reason Reason, duration time.Duration)
	// ObserveConnectionTest is called once per TestConnection call.
	ObserveConnectionTest(success bool, duration time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveAuthentication(Reason, time.Duration) {}
func (nopObserver) ObserveConnectionTest(bool, time.Duration)   {}

// authBuckets cover the range up to two full 10s timeouts.
var authBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20}

// PrometheusObserver exports bridge outcomes as Prometheus metrics. It
// implements prometheus.Collector and is registered like any other collector:
//
//	observer := ldap.NewPrometheusObserver("conectseas")
//	registry.MustRegister(observer)
//	bridge := ldap.New(ldap.WithObserver(observer))
type PrometheusObserver struct {
	authTotal    *prometheus.CounterVec
	authDuration *prometheus.HistogramVec
	testTotal    *prometheus.CounterVec
	testDuration prometheus.Histogram
}

// NewPrometheusObserver creates the collectors under namespace. The result
// label of the authentication metrics is "success" or a failure reason name.
func NewPrometheusObserver(namespace string) *PrometheusObserver {
	return &PrometheusObserver{
		authTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ldap",
			Name:      "authentications_total",
			Help:      "Directory authentication attempts by result.",
		}, []string{"result"}),
		authDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ldap",
			Name:      "authentication_duration_seconds",
			Help:      "Duration of directory authentication attempts.",
			Buckets:   authBuckets,
		}, []string{"result"}),
		testTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ldap",
			Name:      "connection_tests_total",
			Help:      "Administrator connection tests by outcome.",
		}, []string{"success"}),
		testDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ldap",
			Name:      "connection_test_duration_seconds",
			Help:      "Duration of administrator connection tests.",
			Buckets:   authBuckets,
		}),
	}
}

func resultLabel(reason Reason) string {
	if reason == ReasonNone {
		return "success"
	}
	return reason.String()
}

// ObserveAuthentication implements Observer.
func (o *PrometheusObserver) ObserveAuthentication(reason Reason, duration time.Duration) {
	label := resultLabel(reason)
	o.authTotal.WithLabelValues(label).Inc()
	o.authDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveConnectionTest implements Observer.
func (o *PrometheusObserver) ObserveConnectionTest(success bool, duration time.Duration) {
	o.testTotal.WithLabelValues(strconv.FormatBool(success)).Inc()
	o.testDuration.Observe(duration.Seconds())
}

// Describe implements prometheus.Collector.
func (o *PrometheusObserver) Describe(ch chan<- *prometheus.Desc) {
	o.authTotal.Describe(ch)
	o.authDuration.Describe(ch)
	o.testTotal.Describe(ch)
	o.testDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (o *PrometheusObserver) Collect(ch chan<- prometheus.Metric) {
	o.authTotal.Collect(ch)
	o.authDuration.Collect(ch)
	o.testTotal.Collect(ch)
	o.testDuration.Collect(ch)
}

var (
	_ Observer             = (*PrometheusObserver)(nil)
	_ prometheus.Collector = (*PrometheusObserver)(nil)
)
