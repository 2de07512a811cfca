package dnsbench

import (
	"time"
)

const (
	// DefaultServersPath is a default path to the file with the servers to benchmark.
	DefaultServersPath = "servers.txt"

	// DefaultDomainsPath is a default path to the file with the domains to query.
	DefaultDomainsPath = "domains.txt"

	// DefaultOutputPath is a default path of the result store.
	DefaultOutputPath = "dnsperfdb"

	// DefaultSQLitePath is a default path of the SQLite database the results are exported to.
	DefaultSQLitePath = "dns.db"

	// DefaultBackend is a default resolution backend.
	DefaultBackend = NativeBackend

	// DefaultIterations is a default number of iterations over all servers and domains.
	DefaultIterations = 1

	// DefaultRequestTimeout is a default request timeout.
	DefaultRequestTimeout = 5 * time.Second

	// DefaultConnectTimeout is a default connect timeout.
	DefaultConnectTimeout = time.Second

	// DefaultReadTimeout is a default read timeout.
	DefaultReadTimeout = 3 * time.Second

	// DefaultWriteTimeout is a default write timeout.
	DefaultWriteTimeout = time.Second

	// DefaultConcurrency is a default concurrency.
	DefaultConcurrency = 1

	// DefaultDNSPort is a default port of plain DNS servers.
	DefaultDNSPort = "53"

	// DefaultDoTPort is a default port of DoT and DoQ servers.
	DefaultDoTPort = "853"

	// DefaultDoHPath is a path appended to DoH servers given without one.
	DefaultDoHPath = "/dns-query"

	// SystemServerDesc is a description of the server used when no servers file is provided.
	SystemServerDesc = "system"
)
