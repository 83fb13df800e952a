// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb

import (
	"errors"

	"code.hybscloud.com/kont"
)

// Result is the outcome of one transaction operation:
// Left on failure, Right on success. Operation failures reported
// asynchronously by the host arrive as Left values and are recoverable
// inside the transaction body.
type Result[T any] = kont.Either[error, T]

// Recoverable operation errors. Synchronous host rejections and
// asynchronous operation failures both surface as these sentinels.
var (
	// ErrAlreadyExists reports a key or name collision.
	ErrAlreadyExists = errors.New("idb: already exists")

	// ErrDoesNotExist reports a missing store, index or database.
	ErrDoesNotExist = errors.New("idb: does not exist")

	// ErrDatabaseIsClosed reports an operation on a closed database.
	ErrDatabaseIsClosed = errors.New("idb: database is closed")

	// ErrInvalidArgument reports an argument the host cannot accept.
	ErrInvalidArgument = errors.New("idb: invalid argument")

	// ErrInvalidCall reports a call that is not valid in the current
	// transaction or cursor state.
	ErrInvalidCall = errors.New("idb: invalid call")

	// ErrInvalidKey reports a value that is not a valid key.
	ErrInvalidKey = errors.New("idb: invalid key")

	// ErrInvalidRange reports a malformed key range.
	ErrInvalidRange = errors.New("idb: invalid range")

	// ErrReadOnly reports a write inside a read-only transaction.
	ErrReadOnly = errors.New("idb: read-only transaction")

	// ErrObjectStoreWasRemoved reports an operation on a store that was
	// deleted by a later upgrade.
	ErrObjectStoreWasRemoved = errors.New("idb: object store was removed")

	// ErrCursorCompleted reports a positional call on an exhausted cursor.
	ErrCursorCompleted = errors.New("idb: cursor completed")

	// ErrVersionMustNotBeZero rejects Open with version zero.
	ErrVersionMustNotBeZero = errors.New("idb: version must not be zero")

	// ErrVersionTooOld rejects Open with a version below the stored one.
	ErrVersionTooOld = errors.New("idb: version too old")

	// ErrNotSupported reports an operation the source kind does not
	// support, such as AdvanceUntilPrimaryKey on a store cursor.
	ErrNotSupported = errors.New("idb: not supported")
)

// Fatal protocol violations. Both are raised by panic after a
// best-effort abort of the host transaction: no defined host state
// exists past either of them.
const (
	// panicNestedTransactions is raised when a driver is entered while
	// another driver is already bound to the same execution context.
	panicNestedTransactions = "idb: tried to nest transactions"

	// panicForbiddenSuspension is raised when the transaction body
	// suspends on anything that is not an operation of its own
	// transaction. IndexedDB semantics would auto-commit the
	// transaction out from under the still-suspended body.
	panicForbiddenSuspension = "idb: transaction blocked without any request under way"
)

// Ok lifts a success value into a completed operation result.
func Ok[T any](v T) kont.Eff[Result[T]] {
	return kont.Pure(kont.Right[error](v))
}

// Fail lifts an error into a completed operation result.
func Fail[T any](err error) kont.Eff[Result[T]] {
	return kont.Pure(kont.Left[error, T](err))
}

// Try sequences two operations, short-circuiting on Left.
// Fuses kont.Bind + Either branch, the counterpart of `?` chaining.
func Try[A, B any](m kont.Eff[Result[A]], f func(A) kont.Eff[Result[B]]) kont.Eff[Result[B]] {
	return kont.Bind(m, func(e Result[A]) kont.Eff[Result[B]] {
		if err, ok := e.GetLeft(); ok {
			return Fail[B](err)
		}
		v, _ := e.GetRight()
		return f(v)
	})
}

// TryThen sequences two operations, discarding the first success value
// and short-circuiting on Left.
func TryThen[A, B any](m kont.Eff[Result[A]], next kont.Eff[Result[B]]) kont.Eff[Result[B]] {
	return Try(m, func(A) kont.Eff[Result[B]] { return next })
}

// leftOf builds the Left resumption value for an operation with
// success type T. Instantiations are passed as failure notifiers.
func leftOf[T any](err error) kont.Resumed {
	return kont.Left[error, T](err)
}
