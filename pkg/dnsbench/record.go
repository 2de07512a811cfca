package dnsbench

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// TimestampFormat is the textual UTC format of record timestamps and run start prefixes.
	TimestampFormat = "2006-01-02 15:04:05.000"

	// KeySeparator separates the run start prefix and the counter in a StorageKey.
	KeySeparator = "|"
)

// Status is the outcome of a single lookup.
type Status int

const (
	// StatusOK means the server answered with at least one A record.
	StatusOK Status = iota
	// StatusNoAnswer means the server answered successfully but without any A record.
	StatusNoAnswer
	// StatusNXDomain means the domain does not exist.
	StatusNXDomain
	// StatusServerFailure means the server answered with an error rcode other than NXDOMAIN.
	StatusServerFailure
	// StatusTimeout means the lookup did not finish before its deadline.
	StatusTimeout
	// StatusError means the lookup failed on the client side, e.g. the server is unreachable.
	StatusError
)

var statusNames = map[Status]string{
	StatusOK:            "OK",
	StatusNoAnswer:      "NOANSWER",
	StatusNXDomain:      "NXDOMAIN",
	StatusServerFailure: "SERVFAIL",
	StatusTimeout:       "TIMEOUT",
	StatusError:         "ERROR",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Server is a nameserver to benchmark.
type Server struct {
	Addr string `json:"addr"`
	Desc string `json:"desc"`
}

// LookupResult is the outcome of one lookup produced by a Backend.
type LookupResult struct {
	Status     Status
	IP         string
	LookupTime time.Duration
}

// ResultRecord is the persisted unit, one per lookup. Field order is the order of the JSON object.
type ResultRecord struct {
	Server     Server  `json:"server"`
	At         string  `json:"at"`
	RunID      string  `json:"rid"`
	Counter    uint64  `json:"counter"`
	ID         string  `json:"id"`
	Domain     string  `json:"domain"`
	LookupTime float64 `json:"lookup_time"`
	LookupIP   string  `json:"lookup_ip"`
}

// Marshal serializes the record into the stored JSON value.
func (r ResultRecord) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalRecord decodes a stored JSON value.
func UnmarshalRecord(data []byte) (ResultRecord, error) {
	var r ResultRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return ResultRecord{}, err
	}
	return r, nil
}

// FormatTimestamp formats t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// StorageKey builds the composite key of a record. The counter is zero padded to 12 digits, so
// the lexicographic order of keys in the store matches the counter order within a run.
func StorageKey(runStart string, counter uint64) string {
	return fmt.Sprintf("%s%s%012d", runStart, KeySeparator, counter)
}

// RunPrefix returns the key prefix shared by all records of the run started at runStart.
func RunPrefix(runStart string) string {
	return runStart + KeySeparator
}
