//go:build linux

package taskcore

import "golang.org/x/sys/unix"

// wakeup is an eventfd-backed primitive used to interrupt a blocked
// epoll_wait call (spec.md §9's readiness-source design note; grounded
// on the teacher's createWakeFd/wakeup_linux.go).
type wakeup struct {
	fd int
}

func newWakeup() (*wakeup, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	return &wakeup{fd: fd}, nil
}

func (w *wakeup) readFD() int { return w.fd }

func (w *wakeup) signal() error {
	var buf [8]byte
	buf[7] = 1
	_, err := unix.Write(w.fd, buf[:])
	if err != nil && err != unix.EAGAIN {
		return err
	}
	return nil
}

func (w *wakeup) drain() {
	var buf [8]byte
	for {
		if _, err := unix.Read(w.fd, buf[:]); err != nil {
			return
		}
	}
}

func (w *wakeup) close() error {
	return unix.Close(w.fd)
}
