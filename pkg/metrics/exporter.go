package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/downfa11-org/go-journal/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	prometheus.MustRegister(RecordsCreated, RecordsDeleted, RecordsRepublished, RecordsMalformed)
	prometheus.MustRegister(Takeovers, FilesArchived, FilesPurged, SweepErrors, SweepDuration)
	prometheus.MustRegister(DeliverableQueueSize, IndexedLocations, RedeliveryBackouts, RedeliveryPending)
}

// StartMetricsServer serves /metrics on port in the background and returns the server so
// callers can shut it down.
func StartMetricsServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		util.Info("[METRICS] Prometheus exporter listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Error("[METRICS] Failed to start metrics server: %v", err)
		}
	}()
	return srv
}

// ObserveSweep records one sweep cycle.
func ObserveSweep(group string, elapsed time.Duration, err error) {
	SweepDuration.WithLabelValues(group).Observe(elapsed.Seconds())
	if err != nil {
		SweepErrors.WithLabelValues(group).Inc()
	}
}
