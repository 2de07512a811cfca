package dnsbench

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/tantalor93/dnsperf/pkg/printutils"
	"github.com/tantalor93/dnsperf/pkg/timer"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"
)

// ResultStore is the ordered key-value store the records of a run are committed to.
type ResultStore interface {
	// HasPrefix reports whether any key starting with prefix is stored.
	HasPrefix(prefix string) (bool, error)
	// Write commits the batch atomically.
	Write(batch *leveldb.Batch) error
}

// Benchmark is representation of a benchmark scenario.
type Benchmark struct {
	// Servers are queried in the listed order within each iteration.
	Servers []Server
	// Domains are queried in the listed order for each server.
	Domains []string
	// Iterations is the number of passes over all servers and domains.
	Iterations uint

	// Backend performs the lookups, see NewBackend.
	Backend Backend
	// Store receives the records of the run in one atomic batch.
	Store ResultStore

	// NoCache disables the per-server resolver cache, every lookup then builds a new resolver.
	NoCache bool

	// Concurrency is the maximum number of lookups in flight.
	Concurrency uint32
	// Rate is a global limit of lookups per second, 0 means unlimited.
	Rate int
	// RequestTimeout is the deadline of a single lookup.
	RequestTimeout time.Duration

	// Log receives per-lookup debug entries and run progress, nil discards them.
	Log log.Interface
	// Clock provides timestamps, the real clock is used when nil.
	Clock clock.Clock

	// Writer is where the run banner and progress bar are written, os.Stdout when nil.
	Writer io.Writer
	// Silent disables the banner and the progress bar.
	Silent bool
	// Progress shows a progress bar of the issued lookups.
	Progress bool
}

// Result describes a committed run.
type Result struct {
	// RunID is unique per Run invocation and stored in every record.
	RunID string
	// RunStart is the key prefix of the run's records, see StorageKey.
	RunStart string
	// Records are ordered by counter.
	Records []ResultRecord
	// Failed is the number of failed lookups.
	Failed int64
	// Duration is how long the lookups took.
	Duration time.Duration
}

func (b *Benchmark) init() error {
	if b.Backend == nil {
		return configErrorf("no resolution backend configured")
	}
	if b.Store == nil {
		return configErrorf("no result store configured")
	}
	for _, s := range b.Servers {
		if err := b.Backend.Validate(s.Addr); err != nil {
			return err
		}
	}
	if b.Concurrency == 0 {
		b.Concurrency = DefaultConcurrency
	}
	if b.RequestTimeout == 0 {
		b.RequestTimeout = DefaultRequestTimeout
	}
	if b.Log == nil {
		b.Log = &log.Logger{Handler: discard.Default, Level: log.InfoLevel}
	}
	if b.Clock == nil {
		b.Clock = clock.New()
	}
	if b.Writer == nil {
		b.Writer = os.Stdout
	}
	return nil
}

// Run executes the benchmark. The lookups are issued in the nested (iteration, server, domain) order and
// numbered in that order. The records are committed to the store in one batch once all lookups finished.
// Failed lookups are recorded and do not stop the run. Configuration and store errors, as well as
// cancellation of ctx, are returned and leave no record of the run in the store.
func (b *Benchmark) Run(ctx context.Context) (*Result, error) {
	if err := b.init(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	runStart, err := b.runStart()
	if err != nil {
		return nil, err
	}
	logger := b.Log.WithFields(log.Fields{"rid": runID, "run": runStart, "backend": b.Backend.Name()})

	var cache *ResolverCache
	if !b.NoCache {
		cache = b.Backend.NewCache()
	}
	if cache != nil {
		b.warmUp(cache, logger)
	}

	total := uint64(b.Iterations) * uint64(len(b.Servers)) * uint64(len(b.Domains))
	if !b.Silent {
		b.printBanner(total)
	}
	bar := b.progressBar(total)

	var limit ratelimit.Limiter
	if b.Rate > 0 {
		limit = ratelimit.New(b.Rate)
	}

	records := make([]ResultRecord, total)
	var failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(int(b.Concurrency))

	t := timer.Start(b.Clock)
	var counter uint64
issue:
	for i := uint(0); i < b.Iterations; i++ {
		for _, server := range b.Servers {
			for _, domain := range b.Domains {
				if ctx.Err() != nil {
					break issue
				}
				if limit != nil && !take(ctx, limit) {
					break issue
				}
				c := counter
				g.Go(func() error {
					rec, ok := b.lookup(ctx, logger, cache, runID, c, server, domain)
					if !ok {
						failed.Add(1)
					}
					records[c] = rec
					_ = bar.Add(1)
					return nil
				})
				counter++
			}
		}
	}
	_ = g.Wait()
	duration := t.Stop()
	_ = bar.Finish()

	if err := ctx.Err(); err != nil {
		logger.WithField("issued", counter).Warn("run interrupted, discarding its records")
		return nil, fmt.Errorf("run %s interrupted after %d of %d lookups: %w", runID, counter, total, err)
	}

	if err := b.commit(runStart, records); err != nil {
		logger.WithError(err).Error("failed to commit run")
		return nil, err
	}
	logger.WithFields(log.Fields{"records": total, "failed": failed.Load(), "duration": duration}).Info("run committed")

	return &Result{
		RunID:    runID,
		RunStart: runStart,
		Records:  records,
		Failed:   failed.Load(),
		Duration: duration,
	}, nil
}

// take waits for a permit of limit and reports false when ctx is done first.
func take(ctx context.Context, limit ratelimit.Limiter) bool {
	permit := make(chan struct{})
	go func() {
		limit.Take()
		close(permit)
	}()
	select {
	case <-permit:
		return ctx.Err() == nil
	case <-ctx.Done():
		return false
	}
}

// runStart returns the run's key prefix. When another run already used the current millisecond the
// prefix is moved forward, so runs sharing a store never collide.
func (b *Benchmark) runStart() (string, error) {
	start := b.Clock.Now().UTC().Truncate(time.Millisecond)
	for {
		runStart := FormatTimestamp(start)
		exists, err := b.Store.HasPrefix(RunPrefix(runStart))
		if err != nil {
			return "", fmt.Errorf("%w: checking run prefix '%s': %w", ErrStore, runStart, err)
		}
		if !exists {
			return runStart, nil
		}
		start = start.Add(time.Millisecond)
	}
}

// warmUp creates the handles of all servers before the first timed lookup.
func (b *Benchmark) warmUp(cache *ResolverCache, logger log.Interface) {
	for _, s := range b.Servers {
		h, err := cache.GetOrCreate(s.Addr)
		if err != nil {
			logger.WithError(err).WithField("server", s.Addr).Warn("unable to create resolver")
			continue
		}
		logger.WithFields(log.Fields{"server": s.Addr, "target": h.Target, "transport": h.Transport}).Debug("resolver ready")
	}
}

func (b *Benchmark) lookup(ctx context.Context, logger log.Interface, cache *ResolverCache, runID string, counter uint64, server Server, domain string) (ResultRecord, bool) {
	lctx, cancel := context.WithTimeout(ctx, b.RequestTimeout)
	defer cancel()

	res, err := b.Backend.Resolve(lctx, server.Addr, domain, cache)
	if err != nil {
		res.IP = ""
	}

	rec := ResultRecord{
		Server:     server,
		At:         FormatTimestamp(b.Clock.Now()),
		RunID:      runID,
		Counter:    counter,
		ID:         uuid.NewString(),
		Domain:     domain,
		LookupTime: res.LookupTime.Seconds(),
		LookupIP:   res.IP,
	}

	lookupDurationMetrics.WithLabelValues(b.Backend.Name()).Observe(res.LookupTime.Seconds())
	lookupsTotalMetrics.WithLabelValues(b.Backend.Name(), res.Status.String()).Inc()
	logLookup(logger, rec, res, err)

	return rec, err == nil
}

func (b *Benchmark) commit(runStart string, records []ResultRecord) error {
	batch := new(leveldb.Batch)
	for _, rec := range records {
		value, err := rec.Marshal()
		if err != nil {
			storeCommitsTotalMetrics.WithLabelValues("error").Inc()
			return fmt.Errorf("%w: encoding record %d: %w", ErrStore, rec.Counter, err)
		}
		batch.Put([]byte(StorageKey(runStart, rec.Counter)), value)
	}
	if err := b.Store.Write(batch); err != nil {
		storeCommitsTotalMetrics.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: committing %d records of run '%s': %w", ErrStore, len(records), runStart, err)
	}
	storeCommitsTotalMetrics.WithLabelValues("ok").Inc()
	return nil
}

func (b *Benchmark) printBanner(total uint64) {
	printutils.NeutralFprintf(b.Writer, "Using %s servers and %s domains\n",
		printutils.HighlightSprint(len(b.Servers)), printutils.HighlightSprint(len(b.Domains)))

	limits := ""
	if b.Rate > 0 {
		limits = fmt.Sprintf("(limited to %s QPS)", printutils.HighlightSprint(b.Rate))
	}
	printutils.NeutralFprintf(b.Writer, "Benchmarking %s lookups via %s backend with %s concurrent requests %s\n",
		printutils.HighlightSprint(total), printutils.HighlightSprint(b.Backend.Name()),
		printutils.HighlightSprint(b.Concurrency), limits)
}

func (b *Benchmark) progressBar(total uint64) *progressbar.ProgressBar {
	if b.Silent || !b.Progress {
		return progressbar.DefaultSilent(int64(total), "lookups")
	}
	return progressbar.NewOptions64(int64(total),
		progressbar.OptionSetDescription("lookups"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSetWriter(b.Writer),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(b.Writer, "\n")
		}),
	)
}
