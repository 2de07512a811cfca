package reporter

import (
	"io"
)

type reportPrinter interface {
	print(w io.Writer, summary RunSummary) error
}

// PrintReport prints the summary of a run as a table, or as JSON when asJSON is set.
func PrintReport(w io.Writer, summary RunSummary, asJSON bool) error {
	return printer(asJSON).print(w, summary)
}

func printer(asJSON bool) reportPrinter {
	if asJSON {
		return &jsonReporter{}
	}
	return &standardReporter{}
}
