package dnsbench_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/benbjohnson/clock"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/tantalor93/dnsperf/pkg/dnsbench"
	"github.com/tantalor93/dnsperf/pkg/store"
)

func init() {
	color.NoColor = true
}

// failingStore serves prefix checks from the wrapped store, when there is one, and rejects every commit.
type failingStore struct {
	db *store.Store

	mu     sync.Mutex
	writes int
}

func (f *failingStore) HasPrefix(prefix string) (bool, error) {
	if f.db == nil {
		return false, nil
	}
	return f.db.HasPrefix(prefix)
}

func (f *failingStore) Write(*leveldb.Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	return errors.New("disk full")
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func nativeBackend(t *testing.T) dnsbench.Backend {
	t.Helper()
	b, err := dnsbench.NewBackend(dnsbench.NativeBackend, dnsbench.BackendOptions{})
	require.NoError(t, err)
	return b
}

func TestBenchmark_Run(t *testing.T) {
	s := NewServer(udpNetwork, nil, answering)
	defer s.Close()

	db := openStore(t)
	buf := bytes.Buffer{}
	servers := []dnsbench.Server{{Addr: s.Addr, Desc: "first"}, {Addr: s.Addr, Desc: "second"}}
	domains := []string{"example.org", "example.com", "nx.example"}

	bench := dnsbench.Benchmark{
		Servers:    servers,
		Domains:    domains,
		Iterations: 2,
		Backend:    nativeBackend(t),
		Store:      db,
		Writer:     &buf,
	}

	rs, err := bench.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Using 2 servers and 3 domains\nBenchmarking 12 lookups via native backend with 1 concurrent requests \n", buf.String())
	assert.NotEmpty(t, rs.RunID)
	assert.EqualValues(t, 4, rs.Failed, "nx.example is resolved twice per iteration")
	require.Len(t, rs.Records, 12)

	stored, err := db.Records(rs.RunStart)
	require.NoError(t, err)
	assert.Equal(t, rs.Records, stored)

	ids := make(map[string]struct{})
	counter := uint64(0)
	for i := 0; i < 2; i++ {
		for _, srv := range servers {
			for _, d := range domains {
				rec := stored[counter]
				assert.Equal(t, counter, rec.Counter)
				assert.Equal(t, srv, rec.Server)
				assert.Equal(t, d, rec.Domain)
				assert.Equal(t, rs.RunID, rec.RunID)
				assert.GreaterOrEqual(t, rec.LookupTime, 0.0)
				if d == "nx.example" {
					assert.Empty(t, rec.LookupIP)
				} else {
					assert.Equal(t, "127.0.0.1", rec.LookupIP)
				}
				ids[rec.ID] = struct{}{}
				counter++
			}
		}
	}
	assert.Len(t, ids, 12, "record ids are unique")
}

func TestBenchmark_Run_concurrent(t *testing.T) {
	s := NewServer(udpNetwork, nil, answering)
	defer s.Close()

	db := openStore(t)
	bench := dnsbench.Benchmark{
		Servers:     []dnsbench.Server{{Addr: s.Addr, Desc: "local"}},
		Domains:     []string{"a.example", "b.example", "c.example", "d.example"},
		Iterations:  5,
		Backend:     nativeBackend(t),
		Store:       db,
		Concurrency: 8,
		Rate:        1000,
		Silent:      true,
	}

	rs, err := bench.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rs.Failed)

	stored, err := db.Records(rs.RunStart)
	require.NoError(t, err)
	require.Len(t, stored, 20)
	for i, rec := range stored {
		assert.EqualValues(t, i, rec.Counter)
		assert.Equal(t, bench.Domains[i%4], rec.Domain, "records keep issue order regardless of completion order")
	}
}

func TestBenchmark_Run_noCache(t *testing.T) {
	s := NewServer("tcp", nil, answering)
	defer s.Close()

	backend, err := dnsbench.NewBackend(dnsbench.NativeBackend, dnsbench.BackendOptions{TCP: true})
	require.NoError(t, err)

	bench := dnsbench.Benchmark{
		Servers:    []dnsbench.Server{{Addr: s.Addr, Desc: "local"}},
		Domains:    []string{"example.org"},
		Iterations: 3,
		Backend:    backend,
		Store:      openStore(t),
		NoCache:    true,
		Silent:     true,
	}

	rs, err := bench.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rs.Failed)
	assert.Len(t, rs.Records, 3)
}

func TestBenchmark_Run_delegated(t *testing.T) {
	s := NewServer(udpNetwork, nil, answering)
	defer s.Close()

	backend, err := dnsbench.NewBackend(dnsbench.DelegatedBackend, dnsbench.BackendOptions{})
	require.NoError(t, err)

	db := openStore(t)
	bench := dnsbench.Benchmark{
		Servers:    []dnsbench.Server{{Addr: s.Addr, Desc: "local"}},
		Domains:    []string{"example.org", "nx.example"},
		Iterations: 1,
		Backend:    backend,
		Store:      db,
		Silent:     true,
	}

	rs, err := bench.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rs.Records, 2)
	assert.Equal(t, "127.0.0.1", rs.Records[0].LookupIP)
	assert.Empty(t, rs.Records[1].LookupIP)
	assert.EqualValues(t, 1, rs.Failed)
}

func TestBenchmark_Run_unreachableServer(t *testing.T) {
	s := NewServer(udpNetwork, nil, answering)
	defer s.Close()

	backend, err := dnsbench.NewBackend(dnsbench.NativeBackend, dnsbench.BackendOptions{
		ReadTimeout:    100 * time.Millisecond,
		RequestTimeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)

	bench := dnsbench.Benchmark{
		// nothing listens on the discard port of the loopback
		Servers:        []dnsbench.Server{{Addr: "127.0.0.1:9", Desc: "down"}, {Addr: s.Addr, Desc: "up"}},
		Domains:        []string{"example.org"},
		Iterations:     1,
		Backend:        backend,
		Store:          openStore(t),
		RequestTimeout: 200 * time.Millisecond,
		Silent:         true,
	}

	rs, err := bench.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rs.Records, 2)
	assert.Empty(t, rs.Records[0].LookupIP)
	assert.Equal(t, "127.0.0.1", rs.Records[1].LookupIP, "a failing server does not affect the others")
	assert.EqualValues(t, 1, rs.Failed)
}

func TestBenchmark_Run_storeFailure(t *testing.T) {
	s := NewServer(udpNetwork, nil, answering)
	defer s.Close()

	db := openStore(t)
	bench := dnsbench.Benchmark{
		Servers:    []dnsbench.Server{{Addr: s.Addr, Desc: "local"}},
		Domains:    []string{"example.org", "nx.example"},
		Iterations: 2,
		Backend:    nativeBackend(t),
		Store:      db,
		Silent:     true,
	}
	committed, err := bench.Run(context.Background())
	require.NoError(t, err)

	fs := &failingStore{db: db}
	bench.Store = fs
	rs, err := bench.Run(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, dnsbench.ErrStore)
	assert.Nil(t, rs)
	assert.Equal(t, 1, fs.writes, "a run is committed with a single write")

	runs, err := db.Runs()
	require.NoError(t, err)
	assert.Equal(t, []store.Run{{Start: committed.RunStart, RunID: committed.RunID, Records: 4}}, runs,
		"a failed commit leaves no record of its run next to the committed one")
}

func TestBenchmark_Run_canceledWhileRateLimited(t *testing.T) {
	s := NewServer(udpNetwork, nil, answering)
	defer s.Close()

	handler := memory.New()
	db := openStore(t)
	bench := dnsbench.Benchmark{
		Servers:    []dnsbench.Server{{Addr: s.Addr, Desc: "local"}},
		Domains:    []string{"example.org"},
		Iterations: 10,
		Backend:    nativeBackend(t),
		Store:      db,
		Rate:       1,
		Log:        &log.Logger{Handler: handler, Level: log.DebugLevel},
		Silent:     true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	rs, err := bench.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, rs)
	assert.Less(t, time.Since(start), 900*time.Millisecond, "cancellation does not wait for the next permit")

	var issued any
	for _, e := range handler.Entries {
		if e.Message == "run interrupted, discarding its records" {
			issued = e.Fields["issued"]
		}
	}
	assert.EqualValues(t, 1, issued, "only the lookup permitted before the deadline is issued")

	runs, err := db.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestBenchmark_Run_canceled(t *testing.T) {
	s := NewServer(udpNetwork, nil, answering)
	defer s.Close()

	db := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bench := dnsbench.Benchmark{
		Servers:    []dnsbench.Server{{Addr: s.Addr, Desc: "local"}},
		Domains:    []string{"example.org"},
		Iterations: 10,
		Backend:    nativeBackend(t),
		Store:      db,
		Silent:     true,
	}

	rs, err := bench.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, rs)

	runs, err := db.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs, "an interrupted run leaves nothing in the store")
}

func TestBenchmark_Run_sameMillisecond(t *testing.T) {
	s := NewServer(udpNetwork, nil, answering)
	defer s.Close()

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 1, 2, 3, 4, 5, 678_000_000, time.UTC))

	db := openStore(t)
	bench := dnsbench.Benchmark{
		Servers:    []dnsbench.Server{{Addr: s.Addr, Desc: "local"}},
		Domains:    []string{"example.org"},
		Iterations: 1,
		Backend:    nativeBackend(t),
		Store:      db,
		Clock:      mock,
		Silent:     true,
	}

	first, err := bench.Run(context.Background())
	require.NoError(t, err)
	second, err := bench.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2024-01-02 03:04:05.678", first.RunStart)
	assert.Equal(t, "2024-01-02 03:04:05.679", second.RunStart)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, "2024-01-02 03:04:05.678", first.Records[0].At)

	runs, err := db.Runs()
	require.NoError(t, err)
	assert.Equal(t, []store.Run{
		{Start: first.RunStart, RunID: first.RunID, Records: 1},
		{Start: second.RunStart, RunID: second.RunID, Records: 1},
	}, runs)
}

func TestBenchmark_Run_logsLookups(t *testing.T) {
	s := NewServer(udpNetwork, nil, answering)
	defer s.Close()

	handler := memory.New()
	bench := dnsbench.Benchmark{
		Servers:    []dnsbench.Server{{Addr: s.Addr, Desc: "local"}},
		Domains:    []string{"example.org", "nx.example"},
		Iterations: 1,
		Backend:    nativeBackend(t),
		Store:      openStore(t),
		Log:        &log.Logger{Handler: handler, Level: log.DebugLevel},
		Silent:     true,
	}

	_, err := bench.Run(context.Background())
	require.NoError(t, err)

	var lookups, failures, commits int
	for _, e := range handler.Entries {
		switch e.Message {
		case "lookup":
			lookups++
			assert.Equal(t, "OK", e.Fields["status"])
			assert.Equal(t, "127.0.0.1", e.Fields["ip"])
		case "lookup failed":
			failures++
			assert.Equal(t, "NXDOMAIN", e.Fields["status"])
			assert.Equal(t, "nx.example", e.Fields["domain"])
		case "run committed":
			commits++
			assert.EqualValues(t, 2, e.Fields["records"])
		}
	}
	assert.Equal(t, 1, lookups)
	assert.Equal(t, 1, failures)
	assert.Equal(t, 1, commits)
}

func TestBenchmark_Run_invalidConfiguration(t *testing.T) {
	delegated, err := dnsbench.NewBackend(dnsbench.DelegatedBackend, dnsbench.BackendOptions{})
	require.NoError(t, err)

	tests := []struct {
		name  string
		bench dnsbench.Benchmark
	}{
		{
			name:  "no backend",
			bench: dnsbench.Benchmark{Store: &failingStore{}},
		},
		{
			name:  "no store",
			bench: dnsbench.Benchmark{Backend: nativeBackend(t)},
		},
		{
			name: "DoH server with delegated backend",
			bench: dnsbench.Benchmark{
				Servers: []dnsbench.Server{{Addr: "https://1.1.1.1", Desc: "Cloudflare"}},
				Backend: delegated,
				Store:   &failingStore{},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := tt.bench.Run(context.Background())
			require.ErrorIs(t, err, dnsbench.ErrConfiguration)
			assert.Nil(t, rs)
			if fs, ok := tt.bench.Store.(*failingStore); ok {
				assert.Zero(t, fs.writes, "configuration errors never reach the store")
			}
		})
	}
}

func ExampleStorageKey() {
	fmt.Println(dnsbench.StorageKey("2024-01-02 03:04:05.678", 5))
	// Output: 2024-01-02 03:04:05.678|000000000005
}
