//go:build unix

package dnsbench

import (
	"bufio"
	"os"
	"strings"
)

const defaultNameServer = "127.0.0.1"

// DefaultNameServer returns the first nameserver of /etc/resolv.conf, or 127.0.0.1 when there is none.
func DefaultNameServer() string {
	file, err := os.Open("/etc/resolv.conf")
	if err != nil {
		return defaultNameServer
	}
	defer func() {
		_ = file.Close()
	}()
	return firstNameServer(bufio.NewScanner(file))
}

func firstNameServer(scanner *bufio.Scanner) string {
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], ";") || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fields[0] == "nameserver" && len(fields) >= 2 {
			return fields[1]
		}
	}
	return defaultNameServer
}
