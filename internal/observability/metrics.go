package observability

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/farectl/internal/card"
	"github.com/danmuck/farectl/internal/desfire"
	"github.com/danmuck/farectl/internal/transport"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "farectl"

// Dump outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport"
	OutcomeProtocol  = "protocol"
	OutcomeError     = "error"
)

// FormatNone labels a classification that matched nothing.
const FormatNone = "none"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)
	dumpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dump",
			Name:      "total",
			Help:      "Card dumps by outcome.",
		},
		[]string{"outcome"},
	)
	dumpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dump",
			Name:      "duration_seconds",
			Help:      "Card dump duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"outcome"},
	)
	filesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dump",
			Name:      "files_total",
			Help:      "Dumped files by content kind.",
		},
		[]string{"content"},
	)
	classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "formats",
			Name:      "classifications_total",
			Help:      "Card classifications by matched format.",
		},
		[]string{"format"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, dumpsTotal, dumpDuration, filesTotal, classifications)
	})
}

func RecordHTTPRequest(service, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, path, statusLabel).Observe(duration.Seconds())
}

// DumpOutcome buckets a dump error for the outcome label.
func DumpOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case transport.IsTransport(err):
		return OutcomeTransport
	case errors.Is(err, desfire.ErrProtocol):
		return OutcomeProtocol
	default:
		return OutcomeError
	}
}

// RecordDump counts one dump attempt and, on success, its files.
func RecordDump(c *card.Card, err error, duration time.Duration) {
	RegisterMetrics()
	outcome := DumpOutcome(err)
	dumpsTotal.WithLabelValues(outcome).Inc()
	dumpDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if err == nil && c != nil {
		RecordFiles(c)
	}
}

func RecordFiles(c *card.Card) {
	RegisterMetrics()
	for _, app := range c.Applications() {
		for _, f := range app.Files() {
			filesTotal.WithLabelValues(string(f.Content().Kind())).Inc()
		}
	}
}

// RecordClassification counts a dispatcher result; an empty format id
// is recorded as FormatNone.
func RecordClassification(format string) {
	RegisterMetrics()
	if format == "" {
		format = FormatNone
	}
	classifications.WithLabelValues(format).Inc()
}
