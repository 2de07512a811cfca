package dnsbench

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookupDurationMetrics = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dnsperf",
		Name:      "lookup_duration_seconds",
		Help:      "DNS lookup duration in seconds",
	}, []string{"backend"})

	lookupsTotalMetrics = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dnsperf",
		Name:      "lookups_total",
		Help:      "The total number of DNS lookups",
	}, []string{"backend", "status"})

	storeCommitsTotalMetrics = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dnsperf",
		Name:      "store_commits_total",
		Help:      "The total number of run commits to the result store",
	}, []string{"result"})
)
