package dnsbench

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/miekg/dns"
	"github.com/quic-go/quic-go/http3"
	"github.com/tantalor93/doh-go/doh"
	"github.com/tantalor93/doq-go/doq"
	"golang.org/x/net/http2"
)

type queryFunc func(context.Context, *dns.Msg) (*dns.Msg, error)

// ResolverHandle is the native backend's client bound to one server.
// It is safe for concurrent use, every query picks its own connection or stream.
type ResolverHandle struct {
	// Server is the address as listed in the servers file.
	Server string
	// Target is the normalized address the queries are sent to.
	Target string
	// Transport is one of UDPTransport, TCPTransport, TLSTransport, DoHTransport, DoQTransport.
	Transport string

	query queryFunc
}

// Query sends msg to the handle's server.
func (h *ResolverHandle) Query(ctx context.Context, msg *dns.Msg) (*dns.Msg, error) {
	return h.query(ctx, msg)
}

// dialTarget derives the transport from the server address and adds the default port when missing.
func dialTarget(server string, opts BackendOptions) (target, transport string, err error) {
	if ok, _ := isHTTPUrl(server); ok {
		u, err := url.Parse(server)
		if err != nil || u.Host == "" {
			return "", "", configErrorf("invalid DoH server URL '%s'", server)
		}
		if u.Path == "" || u.Path == "/" {
			u.Path = DefaultDoHPath
		}
		return u.String(), DoHTransport, nil
	}
	if strings.HasPrefix(server, "quic://") {
		host := strings.TrimPrefix(server, "quic://")
		if host == "" {
			return "", "", configErrorf("invalid DoQ server '%s'", server)
		}
		return addPortIfMissing(host, DefaultDoTPort), DoQTransport, nil
	}
	if server == "" {
		return "", "", configErrorf("empty server address")
	}

	switch {
	case opts.DOT:
		// https://www.rfc-editor.org/rfc/rfc7858
		return addPortIfMissing(server, DefaultDoTPort), TLSTransport, nil
	case opts.TCP:
		return addPortIfMissing(server, DefaultDNSPort), TCPTransport, nil
	default:
		return addPortIfMissing(server, DefaultDNSPort), UDPTransport, nil
	}
}

func addPortIfMissing(server, port string) string {
	if _, _, err := net.SplitHostPort(server); err != nil {
		return net.JoinHostPort(strings.Trim(server, "[]"), port)
	}
	return server
}

func newResolverHandle(server string, opts BackendOptions) (*ResolverHandle, error) {
	target, transport, err := dialTarget(server, opts)
	if err != nil {
		return nil, err
	}
	h := &ResolverHandle{Server: server, Target: target, Transport: transport}
	switch transport {
	case DoHTransport:
		h.query = dohQuery(target, opts)
	case DoQTransport:
		h.query = getDoQClient(target, opts).Send
	default:
		h.query = dnsQuery(target, transport, opts)
	}
	return h, nil
}

func dnsQuery(target, network string, opts BackendOptions) queryFunc {
	dnsClient := getDNSClient(target, network, opts)
	return func(ctx context.Context, msg *dns.Msg) (*dns.Msg, error) {
		r, _, err := dnsClient.ExchangeContext(ctx, msg, target)
		return r, err
	}
}

func dohQuery(server string, opts BackendOptions) queryFunc {
	var tr http.RoundTripper
	switch opts.DohProtocol {
	case HTTP3Proto:
		// nolint:gosec
		tr = &http3.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.Insecure}}
	case HTTP2Proto:
		// nolint:gosec
		tr = &http2.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.Insecure}}
	case HTTP1Proto:
		fallthrough
	default:
		// nolint:gosec
		tr = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.Insecure}}
	}
	c := http.Client{Transport: tr, Timeout: opts.ReadTimeout}
	dohClient := doh.NewClient(server, doh.WithHTTPClient(&c))

	switch opts.DohMethod {
	case GetHTTPMethod:
		return dohClient.SendViaGet
	case PostHTTPMethod:
		return dohClient.SendViaPost
	default:
		return dohClient.SendViaPost
	}
}

func getDoQClient(server string, opts BackendOptions) *doq.Client {
	h, _, _ := net.SplitHostPort(server)
	return doq.NewClient(server,
		// nolint:gosec
		doq.WithTLSConfig(&tls.Config{ServerName: h, InsecureSkipVerify: opts.Insecure}),
		doq.WithReadTimeout(opts.ReadTimeout),
		doq.WithWriteTimeout(opts.WriteTimeout),
		doq.WithConnectTimeout(opts.ConnectTimeout),
	)
}

func getDNSClient(target, network string, opts BackendOptions) *dns.Client {
	h, _, _ := net.SplitHostPort(target)
	return &dns.Client{
		Net:          network,
		DialTimeout:  opts.ConnectTimeout,
		WriteTimeout: opts.WriteTimeout,
		ReadTimeout:  opts.ReadTimeout,
		Timeout:      opts.RequestTimeout,
		// nolint:gosec
		TLSConfig: &tls.Config{ServerName: h, InsecureSkipVerify: opts.Insecure},
	}
}
