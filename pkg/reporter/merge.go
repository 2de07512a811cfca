package reporter

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/tantalor93/dnsperf/pkg/dnsbench"
)

const (
	histMin = int64(time.Microsecond)
	histMax = int64(time.Minute)
	histPre = 3
)

// ServerStats are the merged results of one server.
type ServerStats struct {
	Server  dnsbench.Server
	Lookups int64
	Failed  int64
	// Hist holds the latencies of the successful lookups in nanoseconds.
	Hist *hdrhistogram.Histogram
}

// RunSummary are the merged results of one run.
type RunSummary struct {
	RunID    string
	RunStart string
	Lookups  int64
	Failed   int64
	Duration time.Duration
	Hist     *hdrhistogram.Histogram
	// Servers are in the order of their first record.
	Servers []*ServerStats
}

// Merge groups the records of a run by server. A record without a resolved IP counts as failed.
func Merge(runID, runStart string, records []dnsbench.ResultRecord, duration time.Duration) RunSummary {
	summary := RunSummary{
		RunID:    runID,
		RunStart: runStart,
		Duration: duration,
		Hist:     hdrhistogram.New(histMin, histMax, histPre),
	}
	byServer := make(map[dnsbench.Server]*ServerStats)

	for _, rec := range records {
		st, ok := byServer[rec.Server]
		if !ok {
			st = &ServerStats{Server: rec.Server, Hist: hdrhistogram.New(histMin, histMax, histPre)}
			byServer[rec.Server] = st
			summary.Servers = append(summary.Servers, st)
		}
		st.Lookups++
		summary.Lookups++
		if rec.LookupIP == "" {
			st.Failed++
			summary.Failed++
			continue
		}
		latency := int64(rec.LookupTime * float64(time.Second))
		// values outside of the histogram range are dropped, lookups are bounded by the request timeout
		_ = st.Hist.RecordValue(latency)
		_ = summary.Hist.RecordValue(latency)
	}
	return summary
}
