// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb

// TransactionMode selects the access level of a transaction.
type TransactionMode int

const (
	// ReadOnly disallows modifications; writes are rejected by the host.
	ReadOnly TransactionMode = iota
	// ReadWrite allows modifications to the stores in scope.
	ReadWrite
)

// CallKind discriminates host calls.
type CallKind int

const (
	CallAdd CallKind = iota
	CallPut
	CallGet
	CallGetAll
	CallCount
	CallDelete
	CallDeleteRange
	CallClear
	CallOpenCursor
	CallCursorAdvance
	CallCursorContinue
	CallCursorContinuePrimary
	CallCursorDelete
	CallCursorUpdate
)

// Call is one asynchronous request issued against a host transaction.
// Kind selects the operation; the remaining fields are read per kind.
type Call struct {
	Kind  CallKind
	Store string
	Index string // empty for direct store access

	Key        Key       // Add/Put explicit key, Delete, CursorContinue
	PrimaryKey Key       // CursorContinuePrimary
	Range      *KeyRange // Get/GetAll/Count/DeleteRange/OpenCursor; nil = all keys
	Value      any       // Add/Put/CursorUpdate
	Limit      int       // GetAll; 0 = unlimited
	Count      uint32    // CursorAdvance

	Cursor    uint64          // cursor id for positional/mutating cursor calls
	Direction CursorDirection // OpenCursor
	KeyOnly   bool            // OpenCursor without values
}

// CursorPosition is the host result of a cursor call: the position the
// cursor now buffers. A nil *CursorPosition result means the cursor is
// exhausted.
type CursorPosition struct {
	Cursor     uint64
	Key        Key
	PrimaryKey Key
	Value      any
}

// HostRequest is one in-flight host call. It accepts exactly one
// success notifier and one failure notifier; each fires at most once.
// A host may resolve the call before a notifier is registered, even
// before Issue returns; it must latch such an outcome and fire the
// notifier upon registration.
type HostRequest interface {
	OnSuccess(func(result any))
	OnError(func(err error))
}

// HostTransaction is the host-side atomic unit of work. There is no
// commit call: the host finalizes the transaction itself once its
// scheduler observes no pending operation on it.
type HostTransaction interface {
	// Issue starts one asynchronous call. A synchronous error means
	// the host refused to start it (bad state or arguments) and no
	// operation was created.
	Issue(call Call) (HostRequest, error)

	// Abort rolls the transaction back. Idempotent.
	Abort() error
}

// Host supplies the transactional store capability this package binds.
type Host interface {
	Begin(stores []string, mode TransactionMode) (HostTransaction, error)
}

// Scheduler is implemented by hosts whose event loop the caller pumps.
// Tick performs one unit of host work: executing a queued call and
// firing its notifier, or auto-committing an idle transaction. It
// returns false when the host has nothing to do.
//
// Run pumps a Scheduler host on the calling goroutine; hosts that do
// not implement Scheduler must fire notifiers from their own context.
type Scheduler interface {
	Tick() bool
}
