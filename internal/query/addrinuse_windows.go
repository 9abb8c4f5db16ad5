package query

import (
	"errors"
	"syscall"
)

// WSAEADDRINUSE, syscall.EADDRINUSE is a Go-only value on Windows
var errAddrInUse error = syscall.Errno(10048)

func isAddrInUse(err error) bool {
	return errors.Is(err, errAddrInUse) || errors.Is(err, syscall.EADDRINUSE)
}
