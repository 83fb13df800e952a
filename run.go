// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// TransactionBuilder names the stores and the mode of a transaction
// before it is run.
type TransactionBuilder struct {
	db    *Database
	names []string
	mode  TransactionMode
}

// Transaction starts building a transaction over the named stores.
// The default mode is read-only.
func (d *Database) Transaction(stores ...string) *TransactionBuilder {
	return &TransactionBuilder{db: d, names: stores}
}

// ReadWrite upgrades the transaction to read-write mode.
func (b *TransactionBuilder) ReadWrite() *TransactionBuilder {
	b.mode = ReadWrite
	return b
}

// Run begins the host transaction and drives body to completion:
// interleaving with the host scheduler on the calling goroutine when
// the database embeds one, or, when notifications come from elsewhere,
// waiting with adaptive backoff (iox.Backoff) while the notifying
// goroutine drives. Poll cycles never overlap either way.
//
// The outcome is three-valued. A Right from body commits (the host
// auto-commits once no operation is under way) and Run returns the
// value. A Left aborts the host transaction and Run returns the error;
// errors compose inside the body with Try and are recoverable there
// until the body itself resolves to Left. A protocol violation —
// suspending on anything that is not an operation of this transaction,
// or nesting a Run inside body — aborts the host transaction and
// panics; there is no defined state to continue from.
func Run[R any](b *TransactionBuilder, body func(Transaction) kont.Eff[Result[R]]) (R, error) {
	var zero R
	if b.db.closed {
		return zero, ErrDatabaseIsClosed
	}
	ht, err := b.db.host.Begin(b.names, b.mode)
	if err != nil {
		return zero, err
	}
	r := newRunner(b.db.slot, ht)
	expr := kont.ExprMap(kont.Reify(body(Transaction{r: r, names: b.names})),
		func(e Result[R]) kont.Resumed {
			if err, ok := e.GetLeft(); ok {
				return rootOutcome{err: err}
			}
			v, _ := e.GetRight()
			return rootOutcome{value: v}
		})
	defer func() {
		r.guard.close(r.state == driverDone)
	}()
	r.dispatch(func() { r.poll(func() { r.spawn(expr, nil, 0) }) })

	var bo iox.Backoff
	if sched, ok := b.db.host.(Scheduler); ok {
		for r.finished.Load() == 0 {
			if sched.Tick() {
				bo.Reset()
			} else {
				bo.Wait()
			}
		}
		// Drain to idle so the host observes the quiescent transaction
		// and auto-commits before Run returns.
		for sched.Tick() {
		}
	} else {
		for r.finished.Load() == 0 {
			bo.Wait()
		}
	}
	if r.result.err != nil {
		return zero, r.result.err
	}
	v, _ := r.result.value.(R)
	return v, nil
}
