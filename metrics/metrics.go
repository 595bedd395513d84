// Package metrics exposes Prometheus counters for the HTTP surface and the
// document lifecycle.
package metrics

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors for the service
type Metrics struct {
	requestCount     *prometheus.CounterVec
	DocumentsCreated prometheus.Counter
	DocumentsDeleted prometheus.Counter
	DecryptFailures  prometheus.Counter
}

// New creates the service metrics and registers them with reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imperial_http_requests_total",
				Help: "Total number of HTTP requests processed.",
			},
			[]string{"method", "path", "status"},
		),
		DocumentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imperial_documents_created_total",
			Help: "Total number of documents created.",
		}),
		DocumentsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imperial_documents_deleted_total",
			Help: "Total number of documents deleted, including bulk purges.",
		}),
		DecryptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imperial_decrypt_failures_total",
			Help: "Total number of reads rejected for an incorrect passphrase.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.requestCount,
		m.DocumentsCreated,
		m.DocumentsDeleted,
		m.DecryptFailures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Handler returns the gin middleware that counts requests by route pattern
func (m *Metrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Exclude /metrics from being counted
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		c.Next()

		// Route pattern (e.g. /api/document/:slug) rather than the raw path
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		m.requestCount.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
	}
}
