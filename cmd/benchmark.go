package cmd

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tantalor93/dnsperf/internal/sysutil"
	"github.com/tantalor93/dnsperf/pkg/dnsbench"
	"github.com/tantalor93/dnsperf/pkg/reporter"
	"github.com/tantalor93/dnsperf/pkg/store"
)

type runCommand struct {
	serversPath string
	domainsPath string
	output      string

	iterations  uint
	backend     string
	concurrency uint32
	rate        int
	noCache     bool

	opts dnsbench.BackendOptions

	progress bool
	json     bool
	silent   bool

	prometheusAddr string
}

func newRunCommand(app *kingpin.Application) (string, command) {
	c := &runCommand{}
	cmd := app.Command("run", "Resolve every domain against every server and store each lookup as one record.").Default()

	cmd.Flag("servers", "File with one '<address>,<description>' nameserver per line, lines starting with # are ignored. "+
		"DoH (DNS over HTTPS) servers such as `https://1.1.1.1/dns-query` and DoQ (DNS over QUIC) servers such as `quic://dns.adguard-dns.com` are supported by the native backend. "+
		"It can also be a resource accessible using HTTP. An empty value benchmarks the system nameserver.").
		Short('s').Default(dnsbench.DefaultServersPath).StringVar(&c.serversPath)

	cmd.Flag("domains", "File with one domain per line. It can also be a resource accessible using HTTP.").
		Short('d').Default(dnsbench.DefaultDomainsPath).StringVar(&c.domainsPath)

	cmd.Flag("output", "Path of the result store.").
		Short('o').Envar("DNSPERF_OUTPUT").Default(dnsbench.DefaultOutputPath).StringVar(&c.output)

	cmd.Flag("numiter", "Number of iterations over all servers and domains.").
		Short('n').Default("1").UintVar(&c.iterations)

	cmd.Flag("resolve-impl", "Resolution backend, native uses in-process DNS clients reused per server, delegated hands every lookup to the Go resolver library.").
		Default(dnsbench.DefaultBackend).StringVar(&c.backend)

	cmd.Flag("concurrency", "Number of concurrent lookups to issue.").
		Short('c').Default("1").Uint32Var(&c.concurrency)

	cmd.Flag("rate-limit", "Apply a global lookups / second rate limit.").
		Short('l').Default("0").IntVar(&c.rate)

	cmd.Flag("no-cache", "Create a new resolver for every lookup instead of reusing one per server.").
		Default("false").BoolVar(&c.noCache)

	cmd.Flag("recurse", "Allow DNS recursion. Enabled by default.").
		Short('r').Default("true").BoolVar(&c.opts.Recurse)

	cmd.Flag("tcp", "Use TCP for DNS requests.").Default("false").BoolVar(&c.opts.TCP)

	cmd.Flag("dot", "Use DoT (DNS over TLS) for DNS requests.").Default("false").BoolVar(&c.opts.DOT)

	cmd.Flag("write", "write timeout.").Default(dnsbench.DefaultWriteTimeout.String()).DurationVar(&c.opts.WriteTimeout)

	cmd.Flag("read", "read timeout.").Default(dnsbench.DefaultReadTimeout.String()).DurationVar(&c.opts.ReadTimeout)

	cmd.Flag("connect", "connect timeout.").Default(dnsbench.DefaultConnectTimeout.String()).DurationVar(&c.opts.ConnectTimeout)

	cmd.Flag("request", "request timeout.").Default(dnsbench.DefaultRequestTimeout.String()).DurationVar(&c.opts.RequestTimeout)

	cmd.Flag("doh-method", "HTTP method to use for DoH requests. Supported values: get, post.").
		Default(dnsbench.PostHTTPMethod).EnumVar(&c.opts.DohMethod, dnsbench.GetHTTPMethod, dnsbench.PostHTTPMethod)

	cmd.Flag("doh-protocol", "HTTP protocol to use for DoH requests. Supported values: 1.1, 2 and 3.").
		Default(dnsbench.HTTP1Proto).EnumVar(&c.opts.DohProtocol, dnsbench.HTTP1Proto, dnsbench.HTTP2Proto, dnsbench.HTTP3Proto)

	cmd.Flag("insecure", "Disables server TLS certificate validation. Applicable for DoT, DoH and DoQ.").
		Default("false").BoolVar(&c.opts.Insecure)

	cmd.Flag("progress", "Show a progress bar of the issued lookups.").
		Default("false").BoolVar(&c.progress)

	cmd.Flag("json", "Report the run summary as JSON.").BoolVar(&c.json)

	cmd.Flag("silent", "Disable stdout.").Default("false").BoolVar(&c.silent)

	cmd.Flag("prometheus", "Enables Prometheus metrics endpoint on the specified address. For example :8080").
		PlaceHolder(":8080").StringVar(&c.prometheusAddr)

	return cmd.FullCommand(), c
}

func (c *runCommand) run(ctx context.Context, logger log.Interface, stdout io.Writer) error {
	// the backend and the servers are validated first, configuration errors must not touch the store
	backend, err := dnsbench.NewBackend(c.backend, c.opts)
	if err != nil {
		return err
	}

	servers, err := dnsbench.ReadServers(c.serversPath)
	if err != nil {
		return err
	}
	domains, err := dnsbench.ReadDomains(c.domainsPath)
	if err != nil {
		return err
	}
	for _, s := range servers {
		if err := backend.Validate(s.Addr); err != nil {
			return err
		}
	}

	if c.prometheusAddr != "" {
		stop, err := servePrometheus(c.prometheusAddr, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	if limit, err := sysutil.RaiseOpenFilesLimit(); err != nil {
		logger.WithError(err).Debug("unable to raise open files limit")
	} else {
		logger.WithField("limit", limit).Debug("open files limit")
	}

	db, err := store.Open(c.output)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Warn("failed to close result store")
		}
	}()

	bench := dnsbench.Benchmark{
		Servers:        servers,
		Domains:        domains,
		Iterations:     c.iterations,
		Backend:        backend,
		Store:          db,
		NoCache:        c.noCache,
		Concurrency:    c.concurrency,
		Rate:           c.rate,
		RequestTimeout: c.opts.RequestTimeout,
		Log:            logger,
		Writer:         stdout,
		Silent:         c.silent || c.json,
		Progress:       c.progress,
	}
	res, err := bench.Run(ctx)
	if err != nil {
		return err
	}

	if c.silent {
		return nil
	}
	summary := reporter.Merge(res.RunID, res.RunStart, res.Records, res.Duration)
	return reporter.PrintReport(stdout, summary, c.json)
}

// servePrometheus exposes the lookup metrics on addr until the returned function is called.
func servePrometheus(addr string, logger log.Interface) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("prometheus endpoint stopped")
		}
	}()
	logger.Infof("serving prometheus metrics at http://%s/metrics", listener.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
