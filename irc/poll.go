package irc

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// MaxDescriptor is the highest descriptor a Descriptors set can hold.
const MaxDescriptor = unix.FD_SETSIZE - 1

// Descriptors is the shared input/output descriptor set handed to every
// Conn during a tick.  The same set reports readiness after a wait.
type Descriptors struct {
	in, out unix.FdSet
	max     int
	err     error
}

// NewDescriptors returns an empty set.
func NewDescriptors() *Descriptors {
	d := &Descriptors{}
	d.Reset()
	return d
}

// Reset empties the set.
func (d *Descriptors) Reset() {
	d.in.Zero()
	d.out.Zero()
	d.max = -1
	d.err = nil
}

// AddRead registers fd for input readiness.
func (d *Descriptors) AddRead(fd int) {
	if d.check(fd) {
		d.in.Set(fd)
		d.track(fd)
	}
}

// AddWrite registers fd for output readiness.
func (d *Descriptors) AddWrite(fd int) {
	if d.check(fd) {
		d.out.Set(fd)
		d.track(fd)
	}
}

// Readable reports whether fd is in the input set.
func (d *Descriptors) Readable(fd int) bool {
	return fd >= 0 && fd <= MaxDescriptor && d.in.IsSet(fd)
}

// Writable reports whether fd is in the output set.
func (d *Descriptors) Writable(fd int) bool {
	return fd >= 0 && fd <= MaxDescriptor && d.out.IsSet(fd)
}

// Max returns the highest registered descriptor, or -1 for an empty set.
func (d *Descriptors) Max() int { return d.max }

// Err reports the first descriptor that could not be registered since
// the last Reset.  Such a descriptor is left out of the set; the rest of
// the set is still waited on.
func (d *Descriptors) Err() error { return d.err }

// takeErr returns Err and clears it, so each registrant sees only its
// own failures.
func (d *Descriptors) takeErr() error {
	err := d.err
	d.err = nil
	return err
}

// clearReady marks nothing ready while keeping the registration
// bookkeeping, for use after a failed wait.
func (d *Descriptors) clearReady() {
	d.in.Zero()
	d.out.Zero()
}

func (d *Descriptors) check(fd int) bool {
	if fd < 0 || fd > MaxDescriptor {
		if d.err == nil {
			d.err = fmt.Errorf("descriptor %d outside select range [0, %d]", fd, MaxDescriptor)
		}
		return false
	}
	return true
}

func (d *Descriptors) track(fd int) {
	if fd > d.max {
		d.max = fd
	}
}

// Waiter blocks until a descriptor in set is ready or timeout elapses.
// On return set holds only the ready descriptors.
type Waiter interface {
	Wait(set *Descriptors, timeout time.Duration) error
}

// SelectWaiter waits with select(2).
type SelectWaiter struct{}

// Wait implements Waiter.  An interrupted wait reports nothing ready.
func (SelectWaiter) Wait(set *Descriptors, timeout time.Duration) error {
	if timeout < 0 {
		timeout = 0
	}
	tv := unix.NsecToTimeval(timeout.Nanoseconds())

	_, err := unix.Select(set.Max()+1, &set.in, &set.out, nil, &tv)
	if errors.Is(err, unix.EINTR) {
		set.clearReady()
		return nil
	}
	return err
}
