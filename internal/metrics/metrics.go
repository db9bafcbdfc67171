// Package metrics exposes engine counters for Prometheus scraping.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/julianstephens/cadence/internal/logger"
)

var (
	// Mutations counts settled controller mutations by kind and outcome.
	Mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadence_mutations_total",
			Help: "Calendar mutations by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	// StoreDuration times store round trips issued by the controller.
	StoreDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cadence_store_duration_seconds",
			Help:    "Store call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// GoalProgress holds the last computed percentage per goal.
	GoalProgress = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cadence_goal_progress_percent",
			Help: "Last computed goal progress percentage",
		},
		[]string{"goal_id"},
	)

	// ToolCalls counts MCP tool invocations by tool and status.
	ToolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadence_tool_calls_total",
			Help: "MCP tool calls by tool and status",
		},
		[]string{"tool", "status"},
	)
)

// Registry holds every cadence collector. It is separate from the default
// registry so tests and embedders control what is exported.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(Mutations, StoreDuration, GoalProgress, ToolCalls)
}

// ObserveStore records how long a store call for op took.
func ObserveStore(op string, started time.Time) {
	StoreDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
