package dnsbench

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"
)

var (
	serverLine  = regexp.MustCompile(`^\s*([^,\s]+)\s*,\s*(.*?)\s*$`)
	commentLine = regexp.MustCompile(`^\s*#`)
)

var client = http.Client{
	Timeout: 120 * time.Second,
}

// ParseServers reads one "<address>,<description>" entry per line. Comment lines starting with '#'
// and lines not matching the format are skipped.
func ParseServers(r io.Reader) ([]Server, error) {
	var servers []Server
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if commentLine.MatchString(line) {
			continue
		}
		if m := serverLine.FindStringSubmatch(line); m != nil {
			servers = append(servers, Server{Addr: m[1], Desc: m[2]})
		}
	}
	return servers, scanner.Err()
}

// ParseDomains reads one domain per non-empty line.
func ParseDomains(r io.Reader) ([]string, error) {
	var domains []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if d := strings.TrimSpace(scanner.Text()); len(d) > 0 {
			domains = append(domains, d)
		}
	}
	return domains, scanner.Err()
}

// ReadServers loads servers from a local file or an HTTP(S) resource.
// An empty path falls back to the system nameserver.
func ReadServers(path string) ([]Server, error) {
	if path == "" {
		return []Server{{Addr: DefaultNameServer(), Desc: SystemServerDesc}}, nil
	}
	src, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	servers, err := ParseServers(src)
	if err != nil {
		return nil, configErrorf("failed to read servers from '%s': %v", path, err)
	}
	return servers, nil
}

// ReadDomains loads domains from a local file or an HTTP(S) resource.
func ReadDomains(path string) ([]string, error) {
	src, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	domains, err := ParseDomains(src)
	if err != nil {
		return nil, configErrorf("failed to read domains from '%s': %v", path, err)
	}
	return domains, nil
}

func openSource(path string) (io.ReadCloser, error) {
	if ok, _ := isHTTPUrl(path); ok {
		resp, err := client.Get(path)
		if err != nil {
			return nil, configErrorf("failed to download file '%s' with error '%v'", path, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return nil, configErrorf("failed to download file '%s' with status '%s'", path, resp.Status)
		}
		return resp.Body, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return f, nil
}

func isHTTPUrl(s string) (ok bool, network string) {
	if strings.HasPrefix(s, "http://") {
		return true, "http"
	}
	if strings.HasPrefix(s, "https://") {
		return true, "https"
	}
	return false, ""
}
