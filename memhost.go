// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb

import (
	"errors"
	"sync"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// queueCapacity is the bounded capacity of the host call queue.
// 64 keeps bursts of concurrently issued operations (Join fan-out,
// cursor walks) off the backlog slow path while the ring stays small.
const queueCapacity = 64

// MemHost is the embedded in-memory host engine: a transactional
// ordered KV store with object stores, indexes and cursors, plus the
// scheduler that executes queued calls and auto-commits idle
// transactions. Calls flow through a bounded lock-free SPSC queue from
// lfq; mu serializes the two ends, so the goroutine that issues calls
// and the one that ticks may differ. Notifiers always fire outside mu.
type MemHost struct {
	name    string
	version uint32
	stores  map[string]*memStore
	removed map[string]struct{}
	slot    driverSlot

	mu         sync.Mutex
	queue      lfq.SPSC[*memCall]
	backlog    []*memCall
	txns       []*memTxn
	journal    []Call
	nextCursor uint64
	closed     bool
}

// NewMemHost creates an empty engine. Stores are declared through a
// Factory upgrade, or ad hoc via CreateStore for host-wrapped use.
func NewMemHost(name string) *MemHost {
	h := &MemHost{
		name:    name,
		stores:  make(map[string]*memStore),
		removed: make(map[string]struct{}),
	}
	h.queue.Init(queueCapacity)
	return h
}

// CreateStore declares a store outside any versioned upgrade.
func (h *MemHost) CreateStore(name, keyPath string, autoIncrement bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.stores[name]; ok {
		return ErrAlreadyExists
	}
	h.stores[name] = newMemStore(name, keyPath, autoIncrement)
	delete(h.removed, name)
	return nil
}

// Journal returns a copy of every call executed so far, in execution
// order.
func (h *MemHost) Journal() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Call, len(h.journal))
	copy(out, h.journal)
	return out
}

// Close rejects all later Begin calls with ErrDatabaseIsClosed.
func (h *MemHost) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}

// Begin implements Host.
func (h *MemHost) Begin(stores []string, mode TransactionMode) (HostTransaction, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrDatabaseIsClosed
	}
	for _, name := range stores {
		if _, ok := h.stores[name]; !ok {
			if _, gone := h.removed[name]; gone {
				return nil, ErrObjectStoreWasRemoved
			}
			return nil, ErrDoesNotExist
		}
	}
	t := &memTxn{
		h:       h,
		names:   stores,
		mode:    mode,
		cursors: make(map[uint64]*memCursor),
	}
	h.txns = append(h.txns, t)
	return t, nil
}

// Tick implements Scheduler: execute one queued call, or auto-commit
// one transaction that has nothing under way.
func (h *MemHost) Tick() bool {
	h.mu.Lock()
	if c, ok := h.pop(); ok {
		h.journal = append(h.journal, c.call)
		c.txn.inflight--
		if c.txn.state != txnActive {
			// The transaction was aborted with this call still queued.
			c.req.fail(ErrInvalidCall)
		} else {
			h.exec(c)
		}
		h.mu.Unlock()
		// Fire outside mu: the notifier re-enters Issue when it
		// resumes the body.
		c.req.notify()
		return true
	}
	defer h.mu.Unlock()
	for i, t := range h.txns {
		if t.state == txnActive && t.inflight == 0 {
			t.state = txnCommitted
			t.undo = nil
		}
		if t.state != txnActive {
			h.txns = append(h.txns[:i], h.txns[i+1:]...)
			return true
		}
	}
	return false
}

// push enqueues a call, preserving FIFO order across queue overflow:
// once anything sits in the backlog, everything later joins it behind.
func (h *MemHost) push(c *memCall) {
	if len(h.backlog) > 0 {
		h.backlog = append(h.backlog, c)
		return
	}
	if err := h.queue.Enqueue(&c); err != nil {
		if !errors.Is(err, iox.ErrWouldBlock) {
			c.txn.inflight--
			c.req.fail(err)
			return
		}
		h.backlog = append(h.backlog, c)
	}
}

func (h *MemHost) pop() (*memCall, bool) {
	if c, err := h.queue.Dequeue(); err == nil {
		return c, true
	}
	if len(h.backlog) > 0 {
		c := h.backlog[0]
		h.backlog = h.backlog[1:]
		return c, true
	}
	return nil, false
}

// cloneStores snapshots the full schema and data, for upgrade
// rollback.
func (h *MemHost) cloneStores() map[string]*memStore {
	out := make(map[string]*memStore, len(h.stores))
	for name, st := range h.stores {
		out[name] = st.clone()
	}
	return out
}

type txnState int

const (
	txnActive txnState = iota
	txnCommitted
	txnAborted
)

// memTxn is one host transaction over a MemHost.
type memTxn struct {
	h        *MemHost
	names    []string
	mode     TransactionMode
	state    txnState
	inflight int
	undo     []func()
	cursors  map[uint64]*memCursor
}

func (t *memTxn) inScope(store string) bool {
	for _, n := range t.names {
		if n == store {
			return true
		}
	}
	return false
}

func writeCall(kind CallKind) bool {
	switch kind {
	case CallAdd, CallPut, CallDelete, CallDeleteRange, CallClear,
		CallCursorDelete, CallCursorUpdate:
		return true
	}
	return false
}

// Issue implements HostTransaction. Rejections here are synchronous:
// no call is queued and no notifier will fire.
func (t *memTxn) Issue(call Call) (HostRequest, error) {
	t.h.mu.Lock()
	defer t.h.mu.Unlock()
	if t.state != txnActive {
		return nil, ErrInvalidCall
	}
	if !t.inScope(call.Store) {
		return nil, ErrDoesNotExist
	}
	st := t.h.stores[call.Store]
	if st == nil {
		return nil, ErrDoesNotExist
	}
	if call.Index != "" {
		if _, ok := st.indexes[call.Index]; !ok {
			return nil, ErrDoesNotExist
		}
	}
	if writeCall(call.Kind) && t.mode != ReadWrite {
		return nil, ErrReadOnly
	}
	switch call.Kind {
	case CallAdd, CallPut:
		if call.Key != nil && !validKey(call.Key) {
			return nil, ErrInvalidKey
		}
	case CallDelete, CallCursorContinue:
		if !validKey(call.Key) {
			return nil, ErrInvalidKey
		}
	case CallCursorContinuePrimary:
		if !validKey(call.Key) || !validKey(call.PrimaryKey) {
			return nil, ErrInvalidKey
		}
	case CallCursorAdvance:
		if call.Count == 0 {
			return nil, ErrInvalidArgument
		}
	}
	if err := call.Range.validate(); err != nil {
		return nil, err
	}
	req := &memRequest{}
	t.inflight++
	t.h.push(&memCall{txn: t, call: call, req: req})
	return req, nil
}

// Abort implements HostTransaction. Rolls back by replaying the undo
// log in reverse; idempotent, and a no-op once committed.
func (t *memTxn) Abort() error {
	t.h.mu.Lock()
	defer t.h.mu.Unlock()
	if t.state != txnActive {
		return nil
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.state = txnAborted
	return nil
}

// memCall is one queued unit of host work.
type memCall struct {
	txn  *memTxn
	call Call
	req  *memRequest
}

// memRequest implements HostRequest for the embedded engine.
// Resolution and notifier registration may happen in either order, on
// different goroutines: the first resolution is latched, and the
// notifier fires exactly once, from whichever side completes the pair,
// never under the engine lock.
type memRequest struct {
	mu       sync.Mutex
	onOK     func(any)
	onErr    func(error)
	resolved bool
	failed   bool
	v        any
	err      error
	notified bool
}

func (r *memRequest) OnSuccess(fn func(result any)) {
	r.mu.Lock()
	r.onOK = fn
	fire := r.pending()
	r.mu.Unlock()
	if fire != nil {
		fire()
	}
}

func (r *memRequest) OnError(fn func(err error)) {
	r.mu.Lock()
	r.onErr = fn
	fire := r.pending()
	r.mu.Unlock()
	if fire != nil {
		fire()
	}
}

// pending returns the notifier call for a latched outcome, or nil.
// Callers hold mu; the returned closure must run outside it.
func (r *memRequest) pending() func() {
	if !r.resolved || r.notified {
		return nil
	}
	if r.failed {
		if fn := r.onErr; fn != nil {
			r.notified = true
			err := r.err
			return func() { fn(err) }
		}
		return nil
	}
	if fn := r.onOK; fn != nil {
		r.notified = true
		v := r.v
		return func() { fn(v) }
	}
	return nil
}

// succeed latches a success; the notifier fires via notify, or during
// registration when the outcome arrived first.
func (r *memRequest) succeed(v any) {
	r.mu.Lock()
	if !r.resolved {
		r.resolved, r.v = true, v
	}
	r.mu.Unlock()
}

func (r *memRequest) fail(err error) {
	r.mu.Lock()
	if !r.resolved {
		r.resolved, r.failed, r.err = true, true, err
	}
	r.mu.Unlock()
}

// notify fires the registered notifier for a latched outcome.
func (r *memRequest) notify() {
	r.mu.Lock()
	fire := r.pending()
	r.mu.Unlock()
	if fire != nil {
		fire()
	}
}
