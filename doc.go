// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package idb provides auto-committing transactions over a
// host-provided transactional KV store via algebraic effects on
// [code.hybscloud.com/kont].
//
// A transaction body is an effectful computation; every store, index
// and cursor access is a typed operation dispatched by the transaction
// driver, which keeps the host's pending-operation accounting exact so
// the host commits the moment the body has nothing under way.
//
// # Architecture
//
//   - Driving: [Run] reifies the body and steps it one suspension at a
//     time; operations resolve through host notifiers, never through
//     goroutines or channels owned by this package.
//   - Host boundary: [Host], [HostTransaction] and [HostRequest] carry
//     the store capability; [MemHost] is the embedded engine, queuing
//     calls on a bounded lock-free SPSC queue via
//     [code.hybscloud.com/lfq].
//   - Waiting: [Run] pumps a [Scheduler] host on the calling goroutine
//     and otherwise waits with adaptive backoff
//     ([code.hybscloud.com/iox.Backoff]).
//   - Error handling: operation results are [code.hybscloud.com/kont.Either];
//     [Try], [TryThen], [Ok] and [Fail] compose them, and a Left from
//     the body aborts the host transaction.
//
// # API Topologies
//
//   - Schema: [Factory], [VersionChangeEvent], [ObjectStoreBuilder],
//     [IndexBuilder].
//   - Operations: [ObjectStore] and [Index] methods (Add, Put, Get,
//     GetAll, Count, Delete, Clear, ...), each returning an effect.
//   - Cursors: [CursorBuilder], [Cursor] with Advance, AdvanceUntil,
//     AdvanceUntilPrimaryKey, Delete and Update.
//   - Concurrency: [Join], [Join3] overlap host calls of one
//     transaction; [Loop] iterates effectful state machines.
//
// # Protocol violations
//
// Suspending the body on anything that is not an operation of its own
// transaction, or running a transaction inside another's body, aborts
// the host transaction and panics: the auto-commit contract leaves no
// state to continue from.
//
// # Example
//
//	db, _ := f.Open("app", 1, func(e idb.VersionChangeEvent) error {
//		_, err := e.BuildObjectStore("users").AutoIncrement().Create()
//		return err
//	})
//	n, err := idb.Run(db.Transaction("users").ReadWrite(),
//		func(t idb.Transaction) kont.Eff[idb.Result[int]] {
//			users, _ := t.ObjectStore("users")
//			return idb.TryThen(users.Add(map[string]any{"name": "ada"}),
//				users.Count())
//		})
package idb
