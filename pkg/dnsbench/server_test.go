package dnsbench_test

import (
	"crypto/tls"

	"github.com/miekg/dns"
)

const udpNetwork = "udp"

// Server represents simple DNS server.
type Server struct {
	Addr  string
	inner *dns.Server
}

// Close shuts down running DNS server instance.
func (s *Server) Close() {
	_ = s.inner.Shutdown()
}

// NewServer creates and starts new DNS server instance.
func NewServer(network string, tlsConfig *tls.Config, f dns.HandlerFunc) *Server {
	ch := make(chan bool)
	s := &dns.Server{Net: network, Addr: "127.0.0.1:0", TLSConfig: tlsConfig, NotifyStartedFunc: func() { close(ch) }, Handler: f}

	go func() {
		if err := s.ListenAndServe(); err != nil {
			panic(err)
		}
	}()

	<-ch
	server := Server{inner: s}
	if network == udpNetwork {
		server.Addr = s.PacketConn.LocalAddr().String()
	} else {
		server.Addr = s.Listener.Addr().String()
	}
	return &server
}

// answering replies with an A record of 127.0.0.1 for every name except names under nx.example., which
// do not exist, and names under empty.example., which have no A records.
func answering(w dns.ResponseWriter, r *dns.Msg) {
	ret := new(dns.Msg)
	ret.SetReply(r)
	name := r.Question[0].Name
	switch {
	case dns.IsSubDomain("nx.example.", name):
		ret.Rcode = dns.RcodeNameError
	case dns.IsSubDomain("empty.example.", name):
	default:
		ret.Answer = append(ret.Answer, A(name+" IN A 127.0.0.1"))
	}
	_ = w.WriteMsg(ret)
}

func A(rr string) *dns.A { r, _ := dns.NewRR(rr); return r.(*dns.A) }
