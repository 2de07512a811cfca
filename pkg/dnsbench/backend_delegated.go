package dnsbench

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/miekg/dns"
	"github.com/mjl-/adns"
	"github.com/tantalor93/dnsperf/pkg/timer"
)

// delegatedBackend hands every lookup to a resolver library configured for a single server.
// It keeps no state between lookups and ignores the resolver cache.
// The library consults the hosts file before DNS, so a domain listed there (like localhost) is
// answered locally without reaching the server, and its lookup time does not measure the server.
type delegatedBackend struct {
	opts BackendOptions
}

func (d *delegatedBackend) Name() string {
	return DelegatedBackend
}

func (d *delegatedBackend) Validate(server string) error {
	if ok, _ := isHTTPUrl(server); ok || strings.HasPrefix(server, "quic://") {
		return configErrorf("server '%s' is not supported by the %s backend, only plain DNS servers are", server, DelegatedBackend)
	}
	if server == "" {
		return configErrorf("empty server address")
	}
	return nil
}

func (d *delegatedBackend) NewCache() *ResolverCache {
	return nil
}

func (d *delegatedBackend) Resolve(ctx context.Context, server, domain string, _ *ResolverCache) (LookupResult, error) {
	target := addPortIfMissing(server, DefaultDNSPort)
	r := &adns.Resolver{
		PreferGo:     true,
		StrictErrors: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			if d.opts.TCP {
				network = "tcp"
			}
			dialer := net.Dialer{Timeout: d.opts.ConnectTimeout}
			return dialer.DialContext(ctx, network, target)
		},
	}

	t := timer.Start(d.opts.Clock)
	ips, _, err := r.LookupIP(ctx, "ip4", dns.Fqdn(domain))
	res := LookupResult{LookupTime: t.Stop()}

	if err != nil {
		res.Status = delegatedErrorStatus(err)
		return res, &ResolutionError{Server: server, Domain: domain, Status: res.Status, Err: err}
	}
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			res.Status = StatusOK
			res.IP = ip4.String()
			return res, nil
		}
	}
	res.Status = StatusNoAnswer
	return res, &ResolutionError{Server: server, Domain: domain, Status: res.Status, Err: fmt.Errorf("no A record for %s", domain)}
}

func delegatedErrorStatus(err error) Status {
	var dnsErr *adns.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsTimeout:
			return StatusTimeout
		case dnsErr.IsNotFound:
			return StatusNXDomain
		case dnsErr.IsTemporary:
			return StatusServerFailure
		}
	}
	return errorStatus(err)
}
