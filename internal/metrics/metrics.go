// Package metrics provides Prometheus metrics for the recwatch pipeline.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"recwatch/internal/logging"
)

// Candidate filter results.
const (
	CandidateAccepted  = "accepted"
	CandidateRejected  = "rejected"
	CandidateDuplicate = "duplicate"
)

var (
	candidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recwatch_candidates_total",
			Help: "Filesystem create events seen by the watcher, by filter result",
		},
		[]string{"mode", "result"},
	)

	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recwatch_dispatch_total",
			Help: "Terminal dispatcher outcomes",
		},
		[]string{"outcome"},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recwatch_queue_depth",
			Help: "Candidates waiting in the ingest queue",
		},
	)

	watchTargets = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recwatch_watch_targets",
			Help: "Directories currently subscribed",
		},
		[]string{"mode"},
	)

	stabilityWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recwatch_stability_wait_seconds",
			Help:    "Time spent waiting for a replay to stop growing",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120, 300, 600},
		},
	)

	parseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recwatch_parse_duration_seconds",
			Help:    "Parse service call duration",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
		},
		[]string{"result"},
	)

	dedupPersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recwatch_dedup_persist_failures_total",
			Help: "Processed-state writes that failed to reach disk",
		},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordCandidate(mode, result string) {
	candidatesTotal.WithLabelValues(mode, result).Inc()
}

func RecordDispatch(outcome string) {
	dispatchTotal.WithLabelValues(outcome).Inc()
}

func SetQueueDepth(depth int) {
	queueDepth.Set(float64(depth))
}

func SetWatchTargets(mode string, count int) {
	watchTargets.WithLabelValues(mode).Set(float64(count))
}

func ObserveStabilityWait(d time.Duration) {
	stabilityWait.Observe(d.Seconds())
}

func ObserveParse(result string, d time.Duration) {
	parseDuration.WithLabelValues(result).Observe(d.Seconds())
}

func RecordDedupPersistFailure() {
	dedupPersistFailures.Inc()
}

// Serve exposes /metrics on bind until ctx is cancelled. An empty bind
// disables the listener.
func Serve(ctx context.Context, bind string, logger *slog.Logger) error {
	if bind == "" {
		return nil
	}
	logger = logging.NewComponentLogger(logger, "metrics")

	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listener started",
		logging.String("bind", listener.Addr().String()),
		logging.String(logging.FieldEventType, "metrics_started"))
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(logger, "metrics listener stopped", "metrics_failed", logging.Error(err))
		}
	}()
	return nil
}
