package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	// sqlite3 driver used by ExportSQLite
	_ "github.com/mattn/go-sqlite3"
	"github.com/tantalor93/dnsperf/pkg/dnsbench"
)

const (
	createPerfTable = `
	CREATE TABLE IF NOT EXISTS perf (
		Id          TEXT PRIMARY KEY,
		Rid         TEXT NOT NULL,
		Counter     INTEGER NOT NULL,
		At          TEXT NOT NULL,
		ServerAddr  TEXT NOT NULL,
		ServerDesc  TEXT NOT NULL,
		Domain      TEXT NOT NULL,
		LookupTime  REAL NOT NULL,
		LookupIp    TEXT
	);`

	insertPerfRow = `
	INSERT OR IGNORE INTO perf (Id, Rid, Counter, At, ServerAddr, ServerDesc, Domain, LookupTime, LookupIp)
	VALUES (:id, :rid, :counter, :at, :server_addr, :server_desc, :domain, :lookup_time, :lookup_ip);`
)

// PerfRow is one row of the perf table.
type PerfRow struct {
	ID         string  `db:"id"`
	RunID      string  `db:"rid"`
	Counter    uint64  `db:"counter"`
	At         string  `db:"at"`
	ServerAddr string  `db:"server_addr"`
	ServerDesc string  `db:"server_desc"`
	Domain     string  `db:"domain"`
	LookupTime float64 `db:"lookup_time"`
	LookupIP   string  `db:"lookup_ip"`
}

func newPerfRow(rec dnsbench.ResultRecord) PerfRow {
	return PerfRow{
		ID:         rec.ID,
		RunID:      rec.RunID,
		Counter:    rec.Counter,
		At:         rec.At,
		ServerAddr: rec.Server.Addr,
		ServerDesc: rec.Server.Desc,
		Domain:     rec.Domain,
		LookupTime: rec.LookupTime,
		LookupIP:   rec.LookupIP,
	}
}

// ExportSQLite copies the records whose key starts with prefix (all records for an empty prefix)
// into the perf table of the SQLite database at sqlitePath. Records already exported are skipped.
// The export runs in one transaction and returns the number of records read from the store.
func ExportSQLite(ctx context.Context, s *Store, sqlitePath, prefix string) (int, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite3", sqlitePath)
	if err != nil {
		return 0, fmt.Errorf("%w: unable to open SQLite database '%s': %w", dnsbench.ErrStore, sqlitePath, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, createPerfTable); err != nil {
		return 0, fmt.Errorf("%w: creating perf table: %w", dnsbench.ErrStore, err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", dnsbench.ErrStore, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	count := 0
	err = s.Scan(prefix, func(key string, rec dnsbench.ResultRecord) error {
		if _, err := tx.NamedExecContext(ctx, insertPerfRow, newPerfRow(rec)); err != nil {
			return fmt.Errorf("%w: could not insert record '%s': %w", dnsbench.ErrStore, key, err)
		}
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %w", dnsbench.ErrStore, err)
	}
	return count, nil
}

// ReadSQLite returns the exported rows grouped by run id and ordered by counter.
func ReadSQLite(ctx context.Context, sqlitePath string) ([]PerfRow, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite3", sqlitePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dnsbench.ErrStore, err)
	}
	defer db.Close()

	var rows []PerfRow
	err = db.SelectContext(ctx, &rows, `
	SELECT Id AS id, Rid AS rid, Counter AS counter, At AS at, ServerAddr AS server_addr,
		ServerDesc AS server_desc, Domain AS domain, LookupTime AS lookup_time, IFNULL(LookupIp, '') AS lookup_ip
	FROM perf ORDER BY Rid, Counter`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dnsbench.ErrStore, err)
	}
	return rows, nil
}
