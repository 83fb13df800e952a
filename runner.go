// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/kont"
)

// driverState tracks the transaction driver through its life cycle.
type driverState int

const (
	driverIdle driverState = iota
	driverRunning
	driverAwaiting  // suspended with at least one operation in flight
	driverDone      // body completed, result recorded
	driverForbidden // suspended on something that is not a transaction operation
)

// driverSlot is the explicit execution-context handle for the
// single-active-driver invariant. Exactly one driver may be bound at a
// time; binding while another driver holds the slot is a nesting
// violation. Databases sharing one host scheduler share one slot.
type driverSlot struct {
	current *runner
}

// rootOutcome is the normalized completion value of the body future.
type rootOutcome struct {
	value any
	err   error
}

// txnOperation is the structural interface for transaction operation
// effects. dispatchTxn either resolves synchronously (resumed, true)
// or parks t until a host notification resolves it (zero, false).
// A suspension whose operation does not implement txnOperation is a
// forbidden suspension.
type txnOperation interface {
	dispatchTxn(r *runner, t *task) (kont.Resumed, bool)
}

// task is one suspended strand of the body future: the root, or a
// child spawned by a Join. Affine: resumed at most once per effect.
type task struct {
	susp  *kont.Suspension[kont.Resumed]
	group *joinGroup // nil for the root task
	slot  int
}

// joinGroup collects the results of concurrently issued operations.
// The owner task is resumed once every part has completed.
type joinGroup struct {
	owner   *task // nil while parts are being spawned
	pending int
	results []kont.Resumed
	combine func([]kont.Resumed) kont.Resumed
}

// runner drives the body future of one transaction in lock-step with
// the host scheduler. It is the exclusive owner of the pending
// operation count and of every suspension of the body; all driving
// happens inside poll cycles on the host's execution context.
type runner struct {
	txn    HostTransaction
	slot   *driverSlot
	serial Serial
	state  driverState

	// pending counts operations in flight. Invariant: whenever a poll
	// cycle ends with the body suspended, pending > 0.
	pending int

	guard    scope
	result   rootOutcome
	finished atomix.Uint32 // read from host notifier contexts

	// mu and inbox serialize poll cycles. A notifier can fire while a
	// cycle is still running, from the host's ticking goroutine or
	// re-entrantly from inside Issue; its cycle must wait for the
	// running one to end.
	mu       sync.Mutex
	inbox    []func()
	draining bool
}

func newRunner(slot *driverSlot, txn HostTransaction) *runner {
	return &runner{
		txn:    txn,
		slot:   slot,
		serial: nextSerial(),
	}
}

// bind makes r the slot's active driver for one poll cycle. Finding
// the slot already bound means transactions were nested: both host
// transactions are aborted and the nesting violation is fatal.
func (r *runner) bind() {
	if cur := r.slot.current; cur != nil {
		_ = cur.txn.Abort()
		if cur != r {
			_ = r.txn.Abort()
		}
		panic(panicNestedTransactions)
	}
	r.slot.current = r
}

// poll runs one poll cycle: bind, resume the body via fn, unbind.
// If the cycle unwinds by panic the host transaction is aborted first,
// so it is never left dangling between commit and abort.
func (r *runner) poll(fn func()) {
	r.bind()
	r.state = driverRunning
	completed := false
	defer func() {
		r.slot.current = nil
		if !completed {
			_ = r.txn.Abort()
			return
		}
		if r.state == driverRunning {
			r.state = driverAwaiting
		}
	}()
	fn()
	completed = true
}

// dispatch runs job in its own turn. Turns never overlap: a job
// arriving while another runs is queued and drained after it, in
// arrival order, on whichever goroutine claimed the drain. A panic out
// of a job leaves the drain claimed; the runner is in a fatal
// violation at that point and later deliveries only enqueue.
func (r *runner) dispatch(job func()) {
	r.mu.Lock()
	r.inbox = append(r.inbox, job)
	if r.draining {
		r.mu.Unlock()
		return
	}
	r.draining = true
	for len(r.inbox) > 0 {
		next := r.inbox[0]
		r.inbox = r.inbox[1:]
		r.mu.Unlock()
		next()
		r.mu.Lock()
	}
	r.draining = false
	r.mu.Unlock()
}

// spawn starts driving expr as a new task.
func (r *runner) spawn(expr kont.Expr[kont.Resumed], group *joinGroup, slot int) {
	t := &task{group: group, slot: slot}
	result, susp := kont.StepExpr(expr)
	t.susp = susp
	if susp == nil {
		r.complete(t, result)
		return
	}
	r.advance(t)
}

// advance dispatches the operation t is suspended on, resuming the
// task for as long as dispatches resolve synchronously. It returns
// with t either completed or parked on an in-flight operation.
func (r *runner) advance(t *task) {
	for {
		op, ok := t.susp.Op().(txnOperation)
		if !ok {
			r.forbidden()
		}
		v, done := op.dispatchTxn(r, t)
		if !done {
			if r.pending == 0 {
				// Parked with nothing under way: the body would block
				// forever while the host auto-commits underneath it.
				r.forbidden()
			}
			return
		}
		result, next := t.susp.Resume(v)
		t.susp = next
		if next == nil {
			r.complete(t, result)
			return
		}
	}
}

// resume re-enters a parked task with its operation's resolved value.
func (r *runner) resume(t *task, v kont.Resumed) {
	result, next := t.susp.Resume(v)
	t.susp = next
	if next == nil {
		r.complete(t, result)
		return
	}
	r.advance(t)
}

// complete records a finished task. Join children feed their group;
// the root records the transaction outcome and, for a logical error,
// aborts the host transaction — an error result produces no implicit
// host rollback.
func (r *runner) complete(t *task, result kont.Resumed) {
	if g := t.group; g != nil {
		g.results[t.slot] = result
		g.pending--
		if g.pending == 0 && g.owner != nil {
			r.resume(g.owner, g.combine(g.results))
		}
		return
	}
	out := result.(rootOutcome)
	if out.err != nil {
		_ = r.txn.Abort()
	}
	r.result = out
	r.state = driverDone
	r.finished.Store(1)
}

// forbidden aborts the host transaction and raises the fatal
// forbidden-suspension violation. There is no safe continuation: the
// host transaction's state relative to the still-suspended body is
// undefined from here on.
func (r *runner) forbidden() {
	r.state = driverForbidden
	r.finished.Store(1)
	_ = r.txn.Abort()
	panic(panicForbiddenSuspension)
}

// foreignCheck guards operations against being dispatched by a driver
// other than the one their transaction handle belongs to. Awaiting
// another transaction's operation is a forbidden suspension.
func (r *runner) foreignCheck(owner *runner) {
	if owner != r {
		r.forbidden()
	}
}
