// If you are AI: This file drives one Reactor.Run iteration: timer firing, fd dispatch, and pending-mutation merge.

package reactor

import (
	"fmt"
	"sort"
	"time"
)

// Run drives the loop until Quit/QuitFromSignal or a fatal poll error.
// Each iteration: wait for fd readiness up to the next timer deadline,
// fire expired timers in deadline order, fire ready handlers in
// read→write→exception order, then merge pending Add/Drop mutations
// queued during dispatch.
func (r *Reactor) Run() (QuitReason, error) {
	if err := r.initWake(); err != nil {
		return "", err
	}
	defer r.closeWake()

	for !r.quit.Load() {
		timeout := r.waitTimeout()
		readyR, readyW, readyE, err := r.poll(timeout)
		if err != nil {
			return "", err
		}

		r.fireExpiredTimers(time.Now())

		r.dispatchPass(readyR, classRead)
		r.dispatchPass(readyW, classWrite)
		r.dispatchPass(readyE, classException)

		r.mergePending()
	}
	reason, _ := r.quitReason.Load().(string)
	return QuitReason(reason), nil
}

// nextTimer returns the earliest live timer, or nil if none are pending.
// Cancelled timers are skipped but left in place for fireExpiredTimers
// to garbage-collect.
func (r *Reactor) nextTimer() *Timer {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.Slice(r.timers, func(i, j int) bool { return r.timers[i].deadline.Before(r.timers[j].deadline) })
	for _, t := range r.timers {
		if !t.cancelled {
			return t
		}
	}
	return nil
}

// waitTimeout returns how long poll should block: until the next timer
// deadline, or indefinitely (a negative duration) if none is pending.
func (r *Reactor) waitTimeout() time.Duration {
	t := r.nextTimer()
	if t == nil {
		return -1
	}
	d := time.Until(t.deadline)
	if d < 0 {
		return 0
	}
	return d
}

// fireExpiredTimers runs every live, expired timer in deadline order and
// then drops cancelled and fired timers from the set.
func (r *Reactor) fireExpiredTimers(now time.Time) {
	r.mu.Lock()
	sort.Slice(r.timers, func(i, j int) bool { return r.timers[i].deadline.Before(r.timers[j].deadline) })
	var due []*Timer
	kept := r.timers[:0]
	for _, t := range r.timers {
		if !t.cancelled && !t.deadline.After(now) {
			due = append(due, t)
			continue
		}
		if !t.cancelled {
			kept = append(kept, t)
		}
	}
	r.timers = kept
	r.mu.Unlock()

	for _, t := range due {
		if t.cancelled {
			continue
		}
		r.safeCall(func() { t.handler.HandleTimeout() }, nil, 0)
	}
}

// safeCall runs fn, catching a panic and routing it to onExc (or the
// default re-raise-and-quit policy) rather than crashing the loop.
func (r *Reactor) safeCall(fn func(), onExc ExceptionHandler, fd int) {
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("reactor: handler panic: %v", p)
			if onExc != nil {
				onExc.HandleException(fd, err)
				return
			}
			r.Quit(err.Error())
		}
	}()
	fn()
}

// dispatchPass fires every ready fd's handler for one class, under the
// "logically frozen" rule: registrations marked dead mid-pass are
// skipped, and the pass itself never mutates the live map directly.
func (r *Reactor) dispatchPass(ready []int, class int) {
	if len(ready) == 0 {
		return
	}
	r.mu.Lock()
	r.dispatching = true
	m := r.mapFor(class)
	type job struct {
		fd  int
		reg *registration
	}
	var jobs []job
	for _, fd := range ready {
		if reg, ok := m[fd]; ok && !reg.dead {
			jobs = append(jobs, job{fd: fd, reg: reg})
		}
	}
	r.mu.Unlock()

	for _, j := range jobs {
		fd, reg := j.fd, j.reg
		r.mu.Lock()
		dead := reg.dead
		r.mu.Unlock()
		if dead {
			continue
		}
		r.safeCall(func() { reg.handler.HandleEvent(fd) }, reg.onExc, fd)
	}

	r.mu.Lock()
	r.dispatching = false
	r.mu.Unlock()
}

// mergePending applies every Add/Drop queued during the just-finished
// dispatch pass, and drops any registration marked dead mid-pass.
func (r *Reactor) mergePending() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, op := range r.pending {
		m := r.mapFor(op.class)
		if op.set {
			reg := op.reg
			m[op.fd] = &reg
			continue
		}
		delete(m, op.fd)
	}
	r.pending = r.pending[:0]
	for _, m := range []map[int]*registration{r.read, r.write, r.exception} {
		for fd, reg := range m {
			if reg.dead {
				delete(m, fd)
			}
		}
	}
}
