package dnsbench

import (
	"github.com/apex/log"
	"github.com/miekg/dns"
)

func logLookup(logger log.Interface, rec ResultRecord, res LookupResult, err error) {
	entry := logger.WithFields(log.Fields{
		"counter":  rec.Counter,
		"server":   rec.Server.Addr,
		"desc":     rec.Server.Desc,
		"domain":   rec.Domain,
		"status":   res.Status.String(),
		"ip":       rec.LookupIP,
		"duration": res.LookupTime,
	})
	if err != nil {
		entry.WithError(err).Debug("lookup failed")
		return
	}
	entry.Debug("lookup")
}

func getFlags(resp *dns.Msg) string {
	respflags := ""
	if resp.Response {
		respflags += "qr"
	}
	if resp.Authoritative {
		respflags += " aa"
	}
	if resp.Truncated {
		respflags += " tc"
	}
	if resp.RecursionDesired {
		respflags += " rd"
	}
	if resp.RecursionAvailable {
		respflags += " ra"
	}
	if resp.Zero {
		respflags += " z"
	}
	if resp.AuthenticatedData {
		respflags += " ad"
	}
	if resp.CheckingDisabled {
		respflags += " cd"
	}
	return respflags
}
