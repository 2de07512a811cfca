package reporter

import (
	"io"
	"strconv"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/olekukonko/tablewriter"
	"github.com/tantalor93/dnsperf/pkg/printutils"
)

type standardReporter struct{}

func (s *standardReporter) print(w io.Writer, summary RunSummary) error {
	printutils.NeutralFprintf(w, "\nRun:\t\t\t%s (%s)\n", printutils.HighlightSprint(summary.RunStart), summary.RunID)
	printutils.NeutralFprintf(w, "Total lookups:\t\t%s\n", printutils.HighlightSprint(summary.Lookups))
	if summary.Failed > 0 {
		printutils.ErrFprintf(w, "Failed lookups:\t\t%d\n", summary.Failed)
	} else {
		printutils.SuccessFprintf(w, "Failed lookups:\t\t%d\n", summary.Failed)
	}

	if summary.Duration > 0 {
		printutils.NeutralFprintf(w, "\nTime taken for tests:\t%s\n", printutils.HighlightSprint(roundDuration(summary.Duration)))
		printutils.NeutralFprintf(w, "Lookups per second:\t%s\n",
			printutils.HighlightSprintf("%0.1f", float64(summary.Lookups)/summary.Duration.Seconds()))
	}

	if len(summary.Servers) == 0 {
		return nil
	}

	printutils.NeutralFprintf(w, "\nDNS timings per server:\n")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Server", "Description", "Lookups", "Failed", "Min", "Mean", "p50", "p95", "p99", "Max"})
	table.SetBorder(false)
	for _, st := range summary.Servers {
		table.Append(append([]string{
			st.Server.Addr,
			st.Server.Desc,
			strconv.FormatInt(st.Lookups, 10),
			strconv.FormatInt(st.Failed, 10),
		}, latencyColumns(st.Hist)...))
	}
	table.Render()
	return nil
}

func latencyColumns(h *hdrhistogram.Histogram) []string {
	if h.TotalCount() == 0 {
		return []string{"-", "-", "-", "-", "-", "-"}
	}
	values := []int64{h.Min(), int64(h.Mean()), h.ValueAtQuantile(50), h.ValueAtQuantile(95), h.ValueAtQuantile(99), h.Max()}
	cols := make([]string, 0, len(values))
	for _, v := range values {
		cols = append(cols, roundDuration(time.Duration(v)).String())
	}
	return cols
}
