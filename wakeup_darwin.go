//go:build darwin

package taskcore

import "golang.org/x/sys/unix"

// wakeup is a self-pipe used to interrupt a blocked kevent call, since
// kqueue has no eventfd equivalent (grounded on the teacher's
// wakeup_darwin.go self-pipe pattern).
type wakeup struct {
	r, w int
}

func newWakeup() (*wakeup, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return nil, err
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return nil, err
	}
	return &wakeup{r: fds[0], w: fds[1]}, nil
}

func (w *wakeup) readFD() int { return w.r }

func (w *wakeup) signal() error {
	_, err := unix.Write(w.w, []byte{1})
	if err != nil && err != unix.EAGAIN {
		return err
	}
	return nil
}

func (w *wakeup) drain() {
	var buf [64]byte
	for {
		if _, err := unix.Read(w.r, buf[:]); err != nil {
			return
		}
	}
}

func (w *wakeup) close() error {
	_ = unix.Close(w.w)
	return unix.Close(w.r)
}
