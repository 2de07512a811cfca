package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/olekukonko/tablewriter"
	"github.com/tantalor93/dnsperf/pkg/dnsbench"
	"github.com/tantalor93/dnsperf/pkg/printutils"
	"github.com/tantalor93/dnsperf/pkg/reporter"
	"github.com/tantalor93/dnsperf/pkg/store"
)

func outputFlag(cmd *kingpin.CmdClause, target *string) {
	cmd.Flag("output", "Path of the result store.").
		Short('o').Envar("DNSPERF_OUTPUT").Default(dnsbench.DefaultOutputPath).StringVar(target)
}

func withStore(path string, logger log.Interface, fn func(db *store.Store) error) error {
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Warn("failed to close result store")
		}
	}()
	return fn(db)
}

type runsCommand struct {
	output string
}

func newRunsCommand(app *kingpin.Application) (string, command) {
	c := &runsCommand{}
	cmd := app.Command("runs", "List the runs in the result store.")
	outputFlag(cmd, &c.output)
	return cmd.FullCommand(), c
}

func (c *runsCommand) run(_ context.Context, logger log.Interface, stdout io.Writer) error {
	return withStore(c.output, logger, func(db *store.Store) error {
		runs, err := db.Runs()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			printutils.NeutralFprintf(stdout, "No runs in %s\n", db.Path())
			return nil
		}
		table := tablewriter.NewWriter(stdout)
		table.SetHeader([]string{"Run", "Run ID", "Records"})
		table.SetBorder(false)
		for _, r := range runs {
			table.Append([]string{r.Start, r.RunID, strconv.Itoa(r.Records)})
		}
		table.Render()
		return nil
	})
}

type dumpCommand struct {
	output   string
	runStart string
}

func newDumpCommand(app *kingpin.Application) (string, command) {
	c := &dumpCommand{}
	cmd := app.Command("dump", "Print the stored records of a run, one JSON object per line.")
	outputFlag(cmd, &c.output)
	cmd.Flag("run", "Run start timestamp as listed by the runs command.").Required().StringVar(&c.runStart)
	return cmd.FullCommand(), c
}

func (c *dumpCommand) run(_ context.Context, logger log.Interface, stdout io.Writer) error {
	return withStore(c.output, logger, func(db *store.Store) error {
		n := 0
		err := db.Scan(dnsbench.RunPrefix(c.runStart), func(_ string, rec dnsbench.ResultRecord) error {
			value, err := rec.Marshal()
			if err != nil {
				return err
			}
			n++
			_, err = fmt.Fprintf(stdout, "%s\n", value)
			return err
		})
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("no records of run '%s' in %s", c.runStart, db.Path())
		}
		return nil
	})
}

type reportCommand struct {
	output   string
	runStart string
	json     bool
}

func newReportCommand(app *kingpin.Application) (string, command) {
	c := &reportCommand{}
	cmd := app.Command("report", "Print the latency summary of a stored run.")
	outputFlag(cmd, &c.output)
	cmd.Flag("run", "Run start timestamp as listed by the runs command.").Required().StringVar(&c.runStart)
	cmd.Flag("json", "Report the run summary as JSON.").BoolVar(&c.json)
	return cmd.FullCommand(), c
}

func (c *reportCommand) run(_ context.Context, logger log.Interface, stdout io.Writer) error {
	return withStore(c.output, logger, func(db *store.Store) error {
		records, err := db.Records(c.runStart)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return fmt.Errorf("no records of run '%s' in %s", c.runStart, db.Path())
		}
		// the duration of a stored run is unknown, the summary omits throughput
		summary := reporter.Merge(records[0].RunID, c.runStart, records, 0)
		return reporter.PrintReport(stdout, summary, c.json)
	})
}

type syncCommand struct {
	ldbPath   string
	sqlDBPath string
	runStart  string
}

func newSyncCommand(app *kingpin.Application) (string, command) {
	c := &syncCommand{}
	cmd := app.Command("sync", "Copy the records of the result store into a SQLite database.")
	cmd.Flag("ldbpath", "Path of the result store.").
		Envar("DNSPERF_OUTPUT").Default(dnsbench.DefaultOutputPath).StringVar(&c.ldbPath)
	cmd.Flag("sqldbpath", "Path of the SQLite database, created when missing.").
		Default(dnsbench.DefaultSQLitePath).StringVar(&c.sqlDBPath)
	cmd.Flag("run", "Only copy the run with this start timestamp.").StringVar(&c.runStart)
	return cmd.FullCommand(), c
}

func (c *syncCommand) run(ctx context.Context, logger log.Interface, stdout io.Writer) error {
	return withStore(c.ldbPath, logger, func(db *store.Store) error {
		prefix := ""
		if c.runStart != "" {
			prefix = dnsbench.RunPrefix(c.runStart)
		}
		n, err := store.ExportSQLite(ctx, db, c.sqlDBPath, prefix)
		if err != nil {
			return err
		}
		logger.WithFields(log.Fields{"records": n, "sqlite": c.sqlDBPath}).Info("records synced")
		printutils.NeutralFprintf(stdout, "Synced %s records to %s\n", printutils.HighlightSprint(n), c.sqlDBPath)
		return nil
	})
}
