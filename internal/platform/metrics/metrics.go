package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ScoresRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "registry_scores_recorded_total", Help: "Total scores recorded"},
	)
	CapacityRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "registry_capacity_rejections_total", Help: "Writes refused by a capacity limit"},
		[]string{"resource"},
	)
	ImportRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "registry_import_rows_total", Help: "Spreadsheet rows processed by import"},
		[]string{"kind", "outcome"},
	)
	ImportJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "registry_import_jobs_total", Help: "Import jobs by final status"},
		[]string{"status"},
	)
)

func Register() {
	prometheus.MustRegister(ScoresRecorded, CapacityRejections, ImportRows, ImportJobs)
}
