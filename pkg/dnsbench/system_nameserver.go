//go:build !(unix || windows)

package dnsbench

// DefaultNameServer returns the loopback nameserver on platforms without a known resolver configuration.
func DefaultNameServer() string {
	return "127.0.0.1"
}
