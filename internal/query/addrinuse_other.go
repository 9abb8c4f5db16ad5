//go:build !windows

package query

import (
	"errors"
	"syscall"
)

var errAddrInUse error = syscall.EADDRINUSE

func isAddrInUse(err error) bool {
	return errors.Is(err, errAddrInUse)
}
