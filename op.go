// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb

import (
	"code.hybscloud.com/kont"
)

// source names the record source an operation runs against: an object
// store, or one of its indexes. It also pins the owning runner so a
// foreign driver can never dispatch the operation.
type source struct {
	r     *runner
	store string
	index string
}

func (s source) call(kind CallKind) Call {
	return Call{Kind: kind, Store: s.store, Index: s.index}
}

// addOp inserts a value whose key the host computes (auto-increment or
// key path). Resolves to the effective key. Duplicate keys fail
// asynchronously with ErrAlreadyExists.
type addOp struct {
	kont.Phantom[Result[Key]]
	src   source
	value any
}

func (op addOp) dispatchTxn(r *runner, t *task) (kont.Resumed, bool) {
	r.foreignCheck(op.src.r)
	call := op.src.call(CallAdd)
	call.Value = op.value
	return r.issue(t, call,
		func(v any) kont.Resumed { return kont.Right[error](Key(v)) },
		leftOf[Key],
	)
}

// addKVOp inserts a value under an explicit key.
type addKVOp struct {
	kont.Phantom[Result[struct{}]]
	src   source
	key   Key
	value any
}

func (op addKVOp) dispatchTxn(r *runner, t *task) (kont.Resumed, bool) {
	r.foreignCheck(op.src.r)
	call := op.src.call(CallAdd)
	call.Key = op.key
	call.Value = op.value
	return r.issue(t, call,
		func(any) kont.Resumed { return kont.Right[error](struct{}{}) },
		leftOf[struct{}],
	)
}

// putOp upserts a value whose key the host computes. Resolves to the
// effective key.
type putOp struct {
	kont.Phantom[Result[Key]]
	src   source
	value any
}

func (op putOp) dispatchTxn(r *runner, t *task) (kont.Resumed, bool) {
	r.foreignCheck(op.src.r)
	call := op.src.call(CallPut)
	call.Value = op.value
	return r.issue(t, call,
		func(v any) kont.Resumed { return kont.Right[error](Key(v)) },
		leftOf[Key],
	)
}

// putKVOp upserts a value under an explicit key.
type putKVOp struct {
	kont.Phantom[Result[struct{}]]
	src   source
	key   Key
	value any
}

func (op putKVOp) dispatchTxn(r *runner, t *task) (kont.Resumed, bool) {
	r.foreignCheck(op.src.r)
	call := op.src.call(CallPut)
	call.Key = op.key
	call.Value = op.value
	return r.issue(t, call,
		func(any) kont.Resumed { return kont.Right[error](struct{}{}) },
		leftOf[struct{}],
	)
}

// getOp fetches the first value in a range (a single key is the Only
// range). Resolves to nil when nothing matches.
type getOp struct {
	kont.Phantom[Result[any]]
	src source
	rng *KeyRange
}

func (op getOp) dispatchTxn(r *runner, t *task) (kont.Resumed, bool) {
	r.foreignCheck(op.src.r)
	call := op.src.call(CallGet)
	call.Range = op.rng
	return r.issue(t, call,
		func(v any) kont.Resumed { return kont.Right[error](v) },
		leftOf[any],
	)
}

// getAllOp fetches every value in a range, in key order, up to limit.
type getAllOp struct {
	kont.Phantom[Result[[]any]]
	src   source
	rng   *KeyRange
	limit int
}

func (op getAllOp) dispatchTxn(r *runner, t *task) (kont.Resumed, bool) {
	r.foreignCheck(op.src.r)
	call := op.src.call(CallGetAll)
	call.Range = op.rng
	call.Limit = op.limit
	return r.issue(t, call,
		func(v any) kont.Resumed { return kont.Right[error](v.([]any)) },
		leftOf[[]any],
	)
}

// countOp counts keys in a range.
type countOp struct {
	kont.Phantom[Result[int]]
	src source
	rng *KeyRange
}

func (op countOp) dispatchTxn(r *runner, t *task) (kont.Resumed, bool) {
	r.foreignCheck(op.src.r)
	call := op.src.call(CallCount)
	call.Range = op.rng
	return r.issue(t, call,
		func(v any) kont.Resumed { return kont.Right[error](v.(int)) },
		leftOf[int],
	)
}

// containsOp reports whether a key exists. A count under the hood.
type containsOp struct {
	kont.Phantom[Result[bool]]
	src source
	key Key
}

func (op containsOp) dispatchTxn(r *runner, t *task) (kont.Resumed, bool) {
	r.foreignCheck(op.src.r)
	rng := Only(op.key)
	call := op.src.call(CallCount)
	call.Range = &rng
	return r.issue(t, call,
		func(v any) kont.Resumed { return kont.Right[error](v.(int) != 0) },
		leftOf[bool],
	)
}

// deleteOp removes one key.
type deleteOp struct {
	kont.Phantom[Result[struct{}]]
	src source
	key Key
}

func (op deleteOp) dispatchTxn(r *runner, t *task) (kont.Resumed, bool) {
	r.foreignCheck(op.src.r)
	call := op.src.call(CallDelete)
	call.Key = op.key
	return r.issue(t, call,
		func(any) kont.Resumed { return kont.Right[error](struct{}{}) },
		leftOf[struct{}],
	)
}

// deleteRangeOp removes every key in a range.
type deleteRangeOp struct {
	kont.Phantom[Result[struct{}]]
	src source
	rng *KeyRange
}

func (op deleteRangeOp) dispatchTxn(r *runner, t *task) (kont.Resumed, bool) {
	r.foreignCheck(op.src.r)
	call := op.src.call(CallDeleteRange)
	call.Range = op.rng
	return r.issue(t, call,
		func(any) kont.Resumed { return kont.Right[error](struct{}{}) },
		leftOf[struct{}],
	)
}

// clearOp removes every record of the store.
type clearOp struct {
	kont.Phantom[Result[struct{}]]
	src source
}

func (op clearOp) dispatchTxn(r *runner, t *task) (kont.Resumed, bool) {
	r.foreignCheck(op.src.r)
	return r.issue(t, op.src.call(CallClear),
		func(any) kont.Resumed { return kont.Right[error](struct{}{}) },
		leftOf[struct{}],
	)
}
