package dnsbench

import (
	"context"
	"fmt"

	"github.com/miekg/dns"
	"github.com/tantalor93/dnsperf/pkg/timer"
)

type nativeBackend struct {
	opts BackendOptions
}

func (n *nativeBackend) Name() string {
	return NativeBackend
}

func (n *nativeBackend) Validate(server string) error {
	_, _, err := dialTarget(server, n.opts)
	return err
}

func (n *nativeBackend) NewCache() *ResolverCache {
	return NewResolverCache(n.newHandle)
}

func (n *nativeBackend) newHandle(server string) (*ResolverHandle, error) {
	return newResolverHandle(server, n.opts)
}

func (n *nativeBackend) Resolve(ctx context.Context, server, domain string, cache *ResolverCache) (LookupResult, error) {
	var h *ResolverHandle
	var err error
	if cache != nil {
		h, err = cache.GetOrCreate(server)
	} else {
		h, err = n.newHandle(server)
	}
	if err != nil {
		return LookupResult{Status: StatusError}, &ResolutionError{Server: server, Domain: domain, Status: StatusError, Err: err}
	}

	msg := newQuestion(domain, n.opts.Recurse, h.Transport == DoQTransport)

	t := timer.Start(n.opts.Clock)
	resp, err := h.Query(ctx, msg)
	res := LookupResult{LookupTime: t.Stop()}

	if err != nil {
		res.Status = errorStatus(err)
		return res, &ResolutionError{Server: server, Domain: domain, Status: res.Status, Err: err}
	}
	if resp.Rcode != dns.RcodeSuccess {
		res.Status = StatusServerFailure
		if resp.Rcode == dns.RcodeNameError {
			res.Status = StatusNXDomain
		}
		return res, &ResolutionError{Server: server, Domain: domain, Status: res.Status,
			Err: fmt.Errorf("rcode %s, flags [%s]", dns.RcodeToString[resp.Rcode], getFlags(resp))}
	}
	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			res.Status = StatusOK
			res.IP = a.A.String()
			return res, nil
		}
	}
	res.Status = StatusNoAnswer
	return res, &ResolutionError{Server: server, Domain: domain, Status: res.Status,
		Err: fmt.Errorf("no A record in answer, flags [%s]", getFlags(resp))}
}

func newQuestion(domain string, recurse, zeroID bool) *dns.Msg {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), dns.TypeA)
	m.RecursionDesired = recurse
	if zeroID {
		// https://www.rfc-editor.org/rfc/rfc9250#section-4.2.1
		m.Id = 0
	}
	return m
}
