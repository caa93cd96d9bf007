// If you are AI: This file implements the single-threaded event loop every videotools process drives its I/O and timers through.

// Package reactor implements a single-threaded, cooperative event loop
// over file-descriptor readiness and a sorted set of timers. One Reactor
// exists per process; every long-running component registers the fds
// and timers it cares about and never blocks on I/O outside the loop.
package reactor

import (
	"sync"
	"sync/atomic"
	"time"
)

// Handler reacts to an fd becoming ready for read or write.
type Handler interface {
	HandleEvent(fd int)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(fd int)

// HandleEvent calls f(fd).
func (f HandlerFunc) HandleEvent(fd int) { f(fd) }

// ExceptionHandler is consulted when a registered handler panics. An fd's
// exceptional condition goes to its AddException handler instead. A nil
// hook means the default: re-raise and quit the loop.
type ExceptionHandler interface {
	HandleException(fd int, err error)
}

// ExceptionHandlerFunc adapts a plain function to ExceptionHandler.
type ExceptionHandlerFunc func(fd int, err error)

// HandleException calls f(fd, err).
func (f ExceptionHandlerFunc) HandleException(fd int, err error) { f(fd, err) }

// TimerHandler fires once when its deadline elapses.
type TimerHandler interface {
	HandleTimeout()
}

// TimerFunc adapts a plain function to TimerHandler.
type TimerFunc func()

// HandleTimeout calls f().
func (f TimerFunc) HandleTimeout() { f() }

// registration is one fd's handler plus the optional exception hook
// consulted if the handler panics.
type registration struct {
	handler Handler
	onExc   ExceptionHandler
	dead    bool
}

// Timer is a single scheduled callback. Cancel is reentrant and safe to
// call from within the handler's own HandleTimeout.
type Timer struct {
	deadline  time.Time
	handler   TimerHandler
	cancelled bool
}

// Cancel marks the timer so it will not fire, whether or not it has
// already elapsed this dispatch pass.
func (t *Timer) Cancel() {
	t.cancelled = true
}

// pendingOp records an Add/Drop requested while a dispatch pass holds
// the handler maps logically frozen; it is applied once the pass ends.
type pendingOp struct {
	set   bool // true = add, false = drop
	class int  // 0=read, 1=write, 2=exception
	fd    int
	reg   registration
}

const (
	classRead = iota
	classWrite
	classException
)

// QuitReason explains why Run returned.
type QuitReason string

// Reactor is one process's event loop: three fd-indexed handler maps
// (read/write/exception) with deferred mutation during dispatch, plus a
// deadline-ordered timer set.
type Reactor struct {
	mu        sync.Mutex
	read      map[int]*registration
	write     map[int]*registration
	exception map[int]*registration
	timers    []*Timer

	dispatching bool
	pending     []pendingOp

	quitReason   atomic.Value // string
	quit         atomic.Bool
	wakeR, wakeW int // self-pipe for QuitFromSignal; set by platform poll code
}

// New returns an idle Reactor. Call Run to start the loop.
func New() *Reactor {
	r := &Reactor{
		read:      make(map[int]*registration),
		write:     make(map[int]*registration),
		exception: make(map[int]*registration),
	}
	r.quitReason.Store("")
	return r
}

// AddRead registers h to run when fd becomes readable.
func (r *Reactor) AddRead(fd int, h Handler) { r.add(classRead, fd, h, nil) }

// AddWrite registers h to run when fd becomes writable.
func (r *Reactor) AddWrite(fd int, h Handler) { r.add(classWrite, fd, h, nil) }

// AddException registers h to run when fd reports an exceptional
// condition (out-of-band data, socket error).
func (r *Reactor) AddException(fd int, h Handler) { r.add(classException, fd, h, nil) }

// OnException overrides the exception hook consulted if a read/write
// handler on fd panics. The default re-raises and quits the loop.
func (r *Reactor) OnException(fd int, onExc ExceptionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg, ok := r.read[fd]; ok {
		reg.onExc = onExc
	}
	if reg, ok := r.write[fd]; ok {
		reg.onExc = onExc
	}
}

// add registers h for class/fd, or queues the registration if a dispatch
// pass currently holds the handler maps frozen.
func (r *Reactor) add(class, fd int, h Handler, onExc ExceptionHandler) {
	reg := registration{handler: h, onExc: onExc}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dispatching {
		r.pending = append(r.pending, pendingOp{set: true, class: class, fd: fd, reg: reg})
		return
	}
	r.mapFor(class)[fd] = &reg
}

// DropRead unregisters fd's read handler, if any.
func (r *Reactor) DropRead(fd int) { r.drop(classRead, fd) }

// DropWrite unregisters fd's write handler, if any.
func (r *Reactor) DropWrite(fd int) { r.drop(classWrite, fd) }

// DropException unregisters fd's exception handler, if any.
func (r *Reactor) DropException(fd int) { r.drop(classException, fd) }

// drop unregisters class/fd, or marks it dead and queues the removal if
// a dispatch pass currently holds the handler maps frozen.
func (r *Reactor) drop(class, fd int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dispatching {
		if reg := r.mapFor(class)[fd]; reg != nil {
			reg.dead = true
		}
		r.pending = append(r.pending, pendingOp{set: false, class: class, fd: fd})
		return
	}
	delete(r.mapFor(class), fd)
}

// mapFor returns the handler map for a fd class.
func (r *Reactor) mapFor(class int) map[int]*registration {
	switch class {
	case classRead:
		return r.read
	case classWrite:
		return r.write
	default:
		return r.exception
	}
}

// SetTimer schedules h to run once at deadline. The returned Timer can
// be cancelled any time before it fires.
func (r *Reactor) SetTimer(deadline time.Time, h TimerHandler) *Timer {
	t := &Timer{deadline: deadline, handler: h}
	r.mu.Lock()
	r.timers = append(r.timers, t)
	r.mu.Unlock()
	return t
}

// Quit requests the loop stop after the current dispatch pass, recording
// reason as Run's return value.
func (r *Reactor) Quit(reason string) {
	r.quitReason.Store(reason)
	r.quit.Store(true)
	r.wake()
}

// QuitFromSignal is safe to call from a signal handler: it sets the same
// atomic quit flag and nudges the poll wait via the self-pipe, without
// taking any lock or allocating.
func (r *Reactor) QuitFromSignal() {
	r.quit.Store(true)
	r.wakePipeSignalSafe()
}

