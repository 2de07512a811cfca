//go:build unix

// Package sysutil adjusts process limits for benchmarks with many open sockets.
package sysutil

import "golang.org/x/sys/unix"

// RaiseOpenFilesLimit raises the soft limit of open file descriptors to the hard limit
// and reports the resulting soft limit.
func RaiseOpenFilesLimit() (cur uint64, err error) {
	var r unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &r); err != nil {
		return 0, err
	}
	if r.Cur >= r.Max {
		return uint64(r.Cur), nil
	}
	r.Cur = r.Max
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &r); err != nil {
		return 0, err
	}
	return uint64(r.Cur), nil
}
