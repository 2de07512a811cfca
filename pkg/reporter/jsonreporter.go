package reporter

import (
	"encoding/json"
	"io"
	"math"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

type jsonReporter struct{}

type latencyStats struct {
	MinMs  float64 `json:"minMs"`
	MeanMs float64 `json:"meanMs"`
	StdMs  float64 `json:"stdMs"`
	MaxMs  float64 `json:"maxMs"`
	P99Ms  float64 `json:"p99Ms"`
	P95Ms  float64 `json:"p95Ms"`
	P90Ms  float64 `json:"p90Ms"`
	P75Ms  float64 `json:"p75Ms"`
	P50Ms  float64 `json:"p50Ms"`
}

type jsonServer struct {
	Addr         string       `json:"addr"`
	Desc         string       `json:"desc"`
	Lookups      int64        `json:"lookups"`
	Failed       int64        `json:"failed"`
	LatencyStats latencyStats `json:"latencyStats"`
}

type jsonResult struct {
	RunID                    string       `json:"rid"`
	RunStart                 string       `json:"runStart"`
	TotalLookups             int64        `json:"totalLookups"`
	TotalFailedLookups       int64        `json:"totalFailedLookups"`
	LookupsPerSecond         float64      `json:"lookupsPerSecond,omitempty"`
	BenchmarkDurationSeconds float64      `json:"benchmarkDurationSeconds,omitempty"`
	LatencyStats             latencyStats `json:"latencyStats"`
	Servers                  []jsonServer `json:"servers"`
}

func (s *jsonReporter) print(w io.Writer, summary RunSummary) error {
	result := jsonResult{
		RunID:              summary.RunID,
		RunStart:           summary.RunStart,
		TotalLookups:       summary.Lookups,
		TotalFailedLookups: summary.Failed,
		LatencyStats:       newLatencyStats(summary.Hist),
		Servers:            make([]jsonServer, 0, len(summary.Servers)),
	}
	if summary.Duration > 0 {
		result.LookupsPerSecond = math.Round(float64(summary.Lookups)/summary.Duration.Seconds()*100) / 100
		result.BenchmarkDurationSeconds = roundDuration(summary.Duration).Seconds()
	}
	for _, st := range summary.Servers {
		result.Servers = append(result.Servers, jsonServer{
			Addr:         st.Server.Addr,
			Desc:         st.Server.Desc,
			Lookups:      st.Lookups,
			Failed:       st.Failed,
			LatencyStats: newLatencyStats(st.Hist),
		})
	}
	return json.NewEncoder(w).Encode(result)
}

func newLatencyStats(h *hdrhistogram.Histogram) latencyStats {
	return latencyStats{
		MinMs:  ms(h.Min()),
		MeanMs: ms(int64(h.Mean())),
		StdMs:  ms(int64(h.StdDev())),
		MaxMs:  ms(h.Max()),
		P99Ms:  ms(h.ValueAtQuantile(99)),
		P95Ms:  ms(h.ValueAtQuantile(95)),
		P90Ms:  ms(h.ValueAtQuantile(90)),
		P75Ms:  ms(h.ValueAtQuantile(75)),
		P50Ms:  ms(h.ValueAtQuantile(50)),
	}
}

// ms converts nanoseconds to milliseconds rounded to microseconds.
func ms(ns int64) float64 {
	return math.Round(float64(roundDuration(time.Duration(ns)))/float64(time.Microsecond)) / 1000
}
