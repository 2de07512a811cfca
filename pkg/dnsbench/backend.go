package dnsbench

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	// NativeBackend resolves with the in-process miekg/dns (DoH, DoQ) clients and reuses per-server handles.
	NativeBackend = "native"
	// DelegatedBackend resolves through the Go resolver library, every lookup is self-contained.
	DelegatedBackend = "delegated"
)

const (
	// UDPTransport represents plain DNS over UDP.
	UDPTransport = "udp"
	// TCPTransport represents plain DNS over TCP.
	TCPTransport = "tcp"
	// TLSTransport represents DNS over TLS.
	TLSTransport = "tcp-tls"
	// DoHTransport represents DNS over HTTPS.
	DoHTransport = "doh"
	// DoQTransport represents DNS over QUIC.
	DoQTransport = "doq"
)

const (
	// GetHTTPMethod represents GET HTTP Method for DoH.
	GetHTTPMethod = "get"
	// PostHTTPMethod represents POST HTTP Method for DoH.
	PostHTTPMethod = "post"
)

const (
	// HTTP1Proto represents HTTP/1.1 protocol for DoH.
	HTTP1Proto = "1.1"
	// HTTP2Proto represents HTTP/2 protocol for DoH.
	HTTP2Proto = "2"
	// HTTP3Proto represents HTTP/3 protocol for DoH.
	HTTP3Proto = "3"
)

// Backends lists the valid backend selectors.
var Backends = []string{NativeBackend, DelegatedBackend}

// Backend performs a single "A" lookup of domain against server.
type Backend interface {
	// Name is the selector the backend was created with.
	Name() string

	// Validate checks that server can be used by the backend.
	Validate(server string) error

	// NewCache returns a resolver cache for one run, or nil when the backend does not reuse resolver state.
	NewCache() *ResolverCache

	// Resolve looks up the first A record of domain. On failure it returns a *ResolutionError
	// together with a LookupResult carrying the failure status and the measured time.
	Resolve(ctx context.Context, server, domain string, cache *ResolverCache) (LookupResult, error)
}

// BackendOptions configures the lookups of a Backend.
type BackendOptions struct {
	// TCP makes plain DNS lookups use TCP.
	TCP bool
	// DOT makes plain DNS lookups of the native backend use DNS over TLS.
	DOT bool
	// Recurse sets the RD flag of the native backend queries.
	Recurse bool
	// Insecure disables server certificate validation for DoT, DoH and DoQ.
	Insecure bool

	DohMethod   string
	DohProtocol string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration

	// Clock measures the lookups, the real clock is used when nil.
	Clock clock.Clock
}

func (o *BackendOptions) normalize() {
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.RequestTimeout == 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
}

// NewBackend creates the backend selected by name. An unknown name is a configuration error.
func NewBackend(name string, opts BackendOptions) (Backend, error) {
	opts.normalize()
	switch name {
	case NativeBackend:
		return &nativeBackend{opts: opts}, nil
	case DelegatedBackend:
		return &delegatedBackend{opts: opts}, nil
	default:
		return nil, configErrorf("invalid value for resolve implementation: '%s', expected one of %v", name, Backends)
	}
}

func errorStatus(err error) Status {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return StatusTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return StatusTimeout
	default:
		return StatusError
	}
}
