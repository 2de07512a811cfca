//go:build windows

package dnsbench

import (
	"os/exec"
	"regexp"
)

const defaultNameServer = "127.0.0.1"

var nslookupServer = regexp.MustCompile(`Address:\s+([^\s]+)`)

// DefaultNameServer returns the nameserver reported by nslookup, or 127.0.0.1 when it cannot be determined.
func DefaultNameServer() string {
	out, err := exec.Command("nslookup").Output()
	if err != nil {
		return defaultNameServer
	}
	if m := nslookupServer.FindStringSubmatch(string(out)); len(m) == 2 {
		return m[1]
	}
	return defaultNameServer
}
