package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RecordsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_records_created_total",
		Help: "Total number of records appended to journal files",
	}, []string{"group"})

	RecordsDeleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_records_deleted_total",
		Help: "Total number of records marked deleted in place",
	}, []string{"group"})

	RecordsRepublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_records_republished_total",
		Help: "Total number of expired records pushed back into the deliverable queue",
	}, []string{"group"})

	RecordsMalformed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_records_malformed_total",
		Help: "Total number of records skipped during a sweep because they could not be decoded",
	}, []string{"group"})

	Takeovers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_takeovers_total",
		Help: "Total number of sweeps of a stalled peer's journal file",
	}, []string{"group"})

	FilesArchived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_files_archived_total",
		Help: "Total number of journal files moved to the archive directory",
	}, []string{"group"})

	FilesPurged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_files_purged_total",
		Help: "Total number of archived files permanently deleted",
	}, []string{"group"})

	SweepErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_sweep_errors_total",
		Help: "Total number of sweep cycles that ended with an error",
	}, []string{"group"})

	SweepDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "journal_sweep_duration_seconds",
		Help:    "Histogram of sweep cycle durations",
		Buckets: prometheus.DefBuckets,
	}, []string{"group"})

	DeliverableQueueSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "journal_deliverable_queue_size",
		Help: "Current number of republished entries waiting to be read",
	}, []string{"group"})

	IndexedLocations = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "journal_indexed_locations",
		Help: "Current number of message locations held in the in-memory index",
	}, []string{"group"})

	RedeliveryBackouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "journal_redelivery_backouts_total",
		Help: "Total number of events dropped after exhausting their retries",
	})

	RedeliveryPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "journal_redelivery_pending",
		Help: "Current number of events waiting for a retry",
	})
)
