//go:build darwin

package taskcore

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// darwinReadiness implements readinessSource with kqueue (spec.md
// §4.C), grounded on the teacher's FastPoller in poller_darwin.go — the
// token is carried in each Kevent_t's Udata field rather than derived
// from the fd, matching the token-based id→task lookup EventThread owns.
type darwinReadiness struct {
	kq   int
	wake *wakeup

	mu   sync.Mutex
	open bool

	buf [256]unix.Kevent_t
}

func newReadinessSource() readinessSource {
	return &darwinReadiness{}
}

func (p *darwinReadiness) init() error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	w, err := newWakeup()
	if err != nil {
		_ = unix.Close(kq)
		return err
	}
	wakeEv := unix.Kevent_t{Ident: uint64(w.readFD()), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD | unix.EV_ENABLE}
	if _, err := unix.Kevent(kq, []unix.Kevent_t{wakeEv}, nil, nil); err != nil {
		_ = unix.Close(kq)
		_ = w.close()
		return err
	}
	p.kq = kq
	p.wake = w
	p.open = true
	return nil
}

func (p *darwinReadiness) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return nil
	}
	p.open = false
	_ = p.wake.close()
	return unix.Close(p.kq)
}

// changeList builds the kevent change list for (de)registering the
// READ/WRITE filters for fd that mask requests, carrying token in Udata.
func (p *darwinReadiness) changeList(fd int, token uint64, mask EventMask, flags uint16) []unix.Kevent_t {
	udata := (*byte)(unsafe.Pointer(uintptr(token)))
	var out []unix.Kevent_t
	if mask&EventRead != 0 {
		out = append(out, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags, Udata: udata})
	}
	if mask&EventWrite != 0 {
		out = append(out, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags, Udata: udata})
	}
	return out
}

func (p *darwinReadiness) register(fd int, token uint64, mask EventMask, edgeTriggered bool) error {
	return p.apply(fd, token, mask, edgeTriggered)
}

func (p *darwinReadiness) modify(fd int, token uint64, mask EventMask, edgeTriggered bool) error {
	return p.apply(fd, token, mask, edgeTriggered)
}

// apply always clears both filters then re-adds exactly the requested
// ones; kqueue has no combined "READ|WRITE" filter to toggle, and the
// delete-then-add pair is idempotent regardless of what was previously
// armed (mirrors the teacher's ModifyFD diffing, simplified since this
// source does not itself track prior per-fd interest).
func (p *darwinReadiness) apply(fd int, token uint64, mask EventMask, edgeTriggered bool) error {
	clear := p.changeList(fd, token, EventRead|EventWrite, unix.EV_DELETE)
	if len(clear) > 0 {
		_, _ = unix.Kevent(p.kq, clear, nil, nil) // best-effort; ENOENT if not armed
	}
	if mask == 0 {
		return nil
	}
	flags := uint16(unix.EV_ADD | unix.EV_ENABLE)
	if edgeTriggered {
		flags |= unix.EV_CLEAR
	} else {
		// Level-triggered registrations are one-shot (spec.md §4.C):
		// kqueue removes the event after it fires once, and RequestEvent's
		// re-apply (EV_ADD) rearms it for exactly one more delivery.
		flags |= unix.EV_ONESHOT
	}
	add := p.changeList(fd, token, mask, flags)
	_, err := unix.Kevent(p.kq, add, nil, nil)
	return err
}

func (p *darwinReadiness) unregister(fd int) error {
	del := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	_, _ = unix.Kevent(p.kq, del, nil, nil) // ignore errors, as the teacher does on delete
	return nil
}

func (p *darwinReadiness) wait(timeoutMs int) ([]readinessEvent, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{Sec: int64(timeoutMs / 1000), Nsec: int64((timeoutMs % 1000) * 1e6)}
	}
	n, err := unix.Kevent(p.kq, nil, p.buf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	var out []readinessEvent
	for i := 0; i < n; i++ {
		ev := p.buf[i]
		if ev.Ident == uint64(p.wake.readFD()) {
			p.wake.drain()
			continue
		}
		var mask EventMask
		switch ev.Filter {
		case unix.EVFILT_READ:
			mask = EventRead
		case unix.EVFILT_WRITE:
			mask = EventWrite
		}
		token := uint64(uintptr(unsafe.Pointer(ev.Udata)))
		out = append(out, readinessEvent{token: token, mask: mask})
	}
	return out, nil
}

func (p *darwinReadiness) wakeSelf() error {
	return p.wake.signal()
}
