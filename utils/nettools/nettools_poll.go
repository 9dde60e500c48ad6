//go:build darwin || linux
// +build darwin linux

package nettools

import (
	"syscall"

	"golang.org/x/sys/unix"
)

var _ = func() error { // make sure this executes before func init()
	probe = pollStale
	return nil
}()

// pollStale polls the fd for readability with a zero timeout. An idle
// keep-alive connection must have nothing to read; POLLIN here means EOF,
// reset, or unsolicited bytes, and POLLHUP/POLLERR/POLLNVAL speak for
// themselves.
func pollStale(rc syscall.RawConn) (stale bool) {
	err := rc.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, 0)
		if err != nil || n <= 0 {
			return
		}
		if fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			stale = true
		}
	})
	if err != nil {
		return false
	}
	return stale
}
