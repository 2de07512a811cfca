package cmd

import (
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
func NewServer(network string, f dns.HandlerFunc) *Server {
	ch := make(chan bool)
	s := &dns.Server{Net: network, Addr: "127.0.0.1:0", NotifyStartedFunc: func() { close(ch) }, Handler: f}

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

func answering(w dns.ResponseWriter, r *dns.Msg) {
	ret := new(dns.Msg)
	ret.SetReply(r)
	if r.Question[0].Name == "nx.example." {
		ret.Rcode = dns.RcodeNameError
	} else {
		rr, _ := dns.NewRR(r.Question[0].Name + " IN A 127.0.0.1")
		ret.Answer = append(ret.Answer, rr)
	}
	_ = w.WriteMsg(ret)
}
