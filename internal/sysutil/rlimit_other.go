//go:build !unix

package sysutil

import "errors"

// RaiseOpenFilesLimit is not supported on this platform.
func RaiseOpenFilesLimit() (cur uint64, err error) {
	return 0, errors.ErrUnsupported
}
