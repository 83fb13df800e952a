// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/kont"
)

// request is one in-flight operation: the bridge from a host call to
// the task suspended on it. It resolves at most once; resolution
// decrements the pending count and re-drives the owning runner within
// a fresh poll cycle. No generic waker or executor is involved.
type request struct {
	r       *runner
	t       *task
	settled atomix.Uint32
}

// issue starts one host call as an operation of r, parking t until a
// notifier fires. A synchronous host rejection surfaces immediately
// through onErr: no operation is created and the driver is not
// involved. onOK and onErr map the host result to the operation's
// typed resumption value.
//
// A host that already resolved the call fires the notifier during
// registration, from inside the current poll cycle; deliver defers
// the resumption to its own cycle, so issue still returns parked.
func (r *runner) issue(t *task, call Call, onOK func(any) kont.Resumed, onErr func(error) kont.Resumed) (kont.Resumed, bool) {
	hreq, err := r.txn.Issue(call)
	if err != nil {
		return onErr(err), true
	}
	req := &request{r: r, t: t}
	r.pending++
	r.guard.retain()
	hreq.OnSuccess(func(v any) {
		req.deliver(func() kont.Resumed { return onOK(v) })
	})
	hreq.OnError(func(err error) {
		req.deliver(func() kont.Resumed { return onErr(err) })
	})
	return nil, false
}

// deliver resolves the operation with the host's notification.
// The at-most-once contract is enforced here; a notification arriving
// after the driver finished means the operation was abandoned, and
// the host must learn that through an abort since it cannot observe
// the abandonment itself.
func (req *request) deliver(resumed func() kont.Resumed) {
	if req.settled.Add(1) != 1 {
		return
	}
	r := req.r
	r.guard.release()
	if r.finished.Load() != 0 {
		_ = r.txn.Abort()
		return
	}
	r.dispatch(func() {
		// finished may have been set by a cycle drained ahead of this
		// one; the operation was abandoned after all.
		if r.finished.Load() != 0 {
			_ = r.txn.Abort()
			return
		}
		r.poll(func() {
			r.pending--
			r.resume(req.t, resumed())
		})
	})
}
