// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb

import (
	"code.hybscloud.com/kont"
)

// CursorDirection selects the order a cursor walks its source.
type CursorDirection int

const (
	// Next advances one by one, in ascending key order.
	Next CursorDirection = iota
	// NextUnique advances ascending, skipping duplicate index keys.
	NextUnique
	// Prev goes back one by one, in descending key order.
	Prev
	// PrevUnique goes back descending, skipping duplicate index keys.
	PrevUnique
)

func (d CursorDirection) unique() bool {
	return d == NextUnique || d == PrevUnique
}

func (d CursorDirection) forward() bool {
	return d == Next || d == NextUnique
}

// CursorBuilder configures a cursor before the initial positioning
// operation is issued.
type CursorBuilder struct {
	src     source
	rng     *KeyRange
	dir     CursorDirection
	keyOnly bool
}

// Range restricts the cursor to keys inside rng.
func (b CursorBuilder) Range(rng KeyRange) CursorBuilder {
	b.rng = &rng
	return b
}

// Direction sets the walk order. The default is Next.
func (b CursorBuilder) Direction(d CursorDirection) CursorBuilder {
	b.dir = d
	return b
}

// Open issues the initial positioning operation and resolves to the
// cursor, already placed on its first record (or exhausted).
func (b CursorBuilder) Open() kont.Eff[Result[*Cursor]] {
	return kont.Perform(openCursorOp{b: b})
}

// OpenKey opens a key-only cursor: positions carry keys but no values.
func (b CursorBuilder) OpenKey() kont.Eff[Result[*Cursor]] {
	b.keyOnly = true
	return kont.Perform(openCursorOp{b: b})
}

// Cursor is a host-backed lazy sequence of records. The current
// position is buffered locally; every move or mutation is an
// operation routed through the active transaction driver. A cursor
// whose host reports no further position is exhausted for good.
type Cursor struct {
	src     source
	id      uint64
	dir     CursorDirection
	keyOnly bool
	pos     *CursorPosition // nil once exhausted
}

// Value returns the value at the current position. The second result
// is false once the cursor is exhausted, and for key-only cursors.
func (c *Cursor) Value() (any, bool) {
	if c.pos == nil || c.keyOnly {
		return nil, false
	}
	return c.pos.Value, true
}

// Key returns the source key at the current position; for index
// cursors this is the index key. False once exhausted.
func (c *Cursor) Key() (Key, bool) {
	if c.pos == nil {
		return nil, false
	}
	return c.pos.Key, true
}

// PrimaryKey returns the store key at the current position.
// False once exhausted.
func (c *Cursor) PrimaryKey() (Key, bool) {
	if c.pos == nil {
		return nil, false
	}
	return c.pos.PrimaryKey, true
}

// Advance moves the cursor count positions in its direction.
// count must be positive.
func (c *Cursor) Advance(count uint32) kont.Eff[Result[struct{}]] {
	return kont.Perform(advanceOp{cur: c, count: count})
}

// AdvanceUntil repositions the cursor directly to key, or to the
// nearest following position in the cursor's direction. key must lie
// strictly ahead of the current position. Unavailable on
// duplicate-skipping directions.
func (c *Cursor) AdvanceUntil(key Key) kont.Eff[Result[struct{}]] {
	return kont.Perform(continueOp{cur: c, key: key})
}

// AdvanceUntilPrimaryKey repositions to the (index key, primary key)
// pair, or the nearest following position. Only available on index
// cursors with a non-duplicate-skipping direction.
func (c *Cursor) AdvanceUntilPrimaryKey(indexKey, primaryKey Key) kont.Eff[Result[struct{}]] {
	return kont.Perform(continuePrimaryOp{cur: c, key: indexKey, primary: primaryKey})
}

// Delete removes the record at the current position. The cursor does
// not move. Unavailable on key-only cursors.
func (c *Cursor) Delete() kont.Eff[Result[struct{}]] {
	return kont.Perform(cursorDeleteOp{cur: c})
}

// Update replaces the record at the current position and resolves to
// its primary key. Unavailable on key-only cursors.
func (c *Cursor) Update(value any) kont.Eff[Result[Key]] {
	return kont.Perform(cursorUpdateOp{cur: c, value: value})
}

// openCursorOp issues the initial positioning call.
type openCursorOp struct {
	kont.Phantom[Result[*Cursor]]
	b CursorBuilder
}

func (op openCursorOp) dispatchTxn(r *runner, t *task) (kont.Resumed, bool) {
	r.foreignCheck(op.b.src.r)
	if err := op.b.rng.validate(); err != nil {
		return leftOf[*Cursor](err), true
	}
	call := op.b.src.call(CallOpenCursor)
	call.Range = op.b.rng
	call.Direction = op.b.dir
	call.KeyOnly = op.b.keyOnly
	b := op.b
	return r.issue(t, call,
		func(v any) kont.Resumed {
			cur := &Cursor{src: b.src, dir: b.dir, keyOnly: b.keyOnly}
			if pos, _ := v.(*CursorPosition); pos != nil {
				cur.id = pos.Cursor
				cur.pos = pos
			}
			return kont.Right[error](cur)
		},
		leftOf[*Cursor],
	)
}

// position is the shared success mapping of every positional move.
func positionResumed(cur *Cursor) func(any) kont.Resumed {
	return func(v any) kont.Resumed {
		pos, _ := v.(*CursorPosition)
		cur.pos = pos
		return kont.Right[error](struct{}{})
	}
}

type advanceOp struct {
	kont.Phantom[Result[struct{}]]
	cur   *Cursor
	count uint32
}

func (op advanceOp) dispatchTxn(r *runner, t *task) (kont.Resumed, bool) {
	r.foreignCheck(op.cur.src.r)
	if op.cur.pos == nil {
		return leftOf[struct{}](ErrCursorCompleted), true
	}
	if op.count == 0 {
		return leftOf[struct{}](ErrInvalidArgument), true
	}
	call := op.cur.src.call(CallCursorAdvance)
	call.Cursor = op.cur.id
	call.Count = op.count
	return r.issue(t, call, positionResumed(op.cur), leftOf[struct{}])
}

type continueOp struct {
	kont.Phantom[Result[struct{}]]
	cur *Cursor
	key Key
}

func (op continueOp) dispatchTxn(r *runner, t *task) (kont.Resumed, bool) {
	r.foreignCheck(op.cur.src.r)
	cur := op.cur
	if cur.pos == nil {
		return leftOf[struct{}](ErrCursorCompleted), true
	}
	if cur.dir.unique() {
		return leftOf[struct{}](ErrNotSupported), true
	}
	if !validKey(op.key) {
		return leftOf[struct{}](ErrInvalidKey), true
	}
	// The target must lie strictly ahead in the walk direction.
	c := compareKeys(normalizeKey(op.key), normalizeKey(cur.pos.Key))
	if (cur.dir.forward() && c <= 0) || (!cur.dir.forward() && c >= 0) {
		return leftOf[struct{}](ErrInvalidArgument), true
	}
	call := cur.src.call(CallCursorContinue)
	call.Cursor = cur.id
	call.Key = op.key
	return r.issue(t, call, positionResumed(cur), leftOf[struct{}])
}

type continuePrimaryOp struct {
	kont.Phantom[Result[struct{}]]
	cur     *Cursor
	key     Key
	primary Key
}

func (op continuePrimaryOp) dispatchTxn(r *runner, t *task) (kont.Resumed, bool) {
	r.foreignCheck(op.cur.src.r)
	cur := op.cur
	if cur.pos == nil {
		return leftOf[struct{}](ErrCursorCompleted), true
	}
	if cur.src.index == "" || cur.dir.unique() {
		return leftOf[struct{}](ErrNotSupported), true
	}
	if !validKey(op.key) || !validKey(op.primary) {
		return leftOf[struct{}](ErrInvalidKey), true
	}
	call := cur.src.call(CallCursorContinuePrimary)
	call.Cursor = cur.id
	call.Key = op.key
	call.PrimaryKey = op.primary
	return r.issue(t, call, positionResumed(cur), leftOf[struct{}])
}

type cursorDeleteOp struct {
	kont.Phantom[Result[struct{}]]
	cur *Cursor
}

func (op cursorDeleteOp) dispatchTxn(r *runner, t *task) (kont.Resumed, bool) {
	r.foreignCheck(op.cur.src.r)
	if op.cur.pos == nil {
		return leftOf[struct{}](ErrCursorCompleted), true
	}
	if op.cur.keyOnly {
		return leftOf[struct{}](ErrInvalidCall), true
	}
	call := op.cur.src.call(CallCursorDelete)
	call.Cursor = op.cur.id
	return r.issue(t, call,
		func(any) kont.Resumed { return kont.Right[error](struct{}{}) },
		leftOf[struct{}],
	)
}

type cursorUpdateOp struct {
	kont.Phantom[Result[Key]]
	cur   *Cursor
	value any
}

func (op cursorUpdateOp) dispatchTxn(r *runner, t *task) (kont.Resumed, bool) {
	r.foreignCheck(op.cur.src.r)
	if op.cur.pos == nil {
		return leftOf[Key](ErrCursorCompleted), true
	}
	if op.cur.keyOnly {
		return leftOf[Key](ErrInvalidCall), true
	}
	call := op.cur.src.call(CallCursorUpdate)
	call.Cursor = op.cur.id
	call.Value = op.value
	return r.issue(t, call,
		func(v any) kont.Resumed { return kont.Right[error](Key(v)) },
		leftOf[Key],
	)
}
