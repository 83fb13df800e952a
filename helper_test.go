// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb_test

import (
	"testing"

	"code.hybscloud.com/idb"
	"code.hybscloud.com/kont"
)

// newTestDB opens a fresh database with plain explicit-key stores.
func newTestDB(t *testing.T, stores ...string) *idb.Database {
	t.Helper()
	f := idb.NewFactory()
	db, err := f.Open("testdb", 1, func(e idb.VersionChangeEvent) error {
		for _, name := range stores {
			if _, err := e.BuildObjectStore(name).Create(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return db
}

// mustRun runs a transaction body and fails the test on any error.
func mustRun[R any](t *testing.T, b *idb.TransactionBuilder, body func(idb.Transaction) kont.Eff[idb.Result[R]]) R {
	t.Helper()
	v, err := idb.Run(b, body)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return v
}

// putPairs writes key/value pairs in order in one transaction.
func putPairs(t *testing.T, db *idb.Database, store string, pairs [][2]any) {
	t.Helper()
	mustRun(t, db.Transaction(store).ReadWrite(), func(tx idb.Transaction) kont.Eff[idb.Result[struct{}]] {
		s, err := tx.ObjectStore(store)
		if err != nil {
			return idb.Fail[struct{}](err)
		}
		return idb.Loop(0, func(i int) kont.Eff[kont.Either[int, idb.Result[struct{}]]] {
			if i == len(pairs) {
				return kont.Pure(kont.Right[int](kont.Right[error](struct{}{})))
			}
			return kont.Bind(s.PutKV(pairs[i][0], pairs[i][1]),
				func(r idb.Result[struct{}]) kont.Eff[kont.Either[int, idb.Result[struct{}]]] {
					if err, bad := r.GetLeft(); bad {
						return kont.Pure(kont.Right[int](kont.Left[error, struct{}](err)))
					}
					return kont.Pure(kont.Left[int, idb.Result[struct{}]](i + 1))
				})
		})
	})
}

// drainValues walks a cursor to exhaustion, collecting values.
func drainValues(cur *idb.Cursor) kont.Eff[idb.Result[[]any]] {
	return idb.Loop([]any(nil), func(acc []any) kont.Eff[kont.Either[[]any, idb.Result[[]any]]] {
		v, ok := cur.Value()
		if !ok {
			return kont.Pure(kont.Right[[]any](kont.Right[error](acc)))
		}
		acc = append(acc, v)
		return kont.Bind(cur.Advance(1),
			func(r idb.Result[struct{}]) kont.Eff[kont.Either[[]any, idb.Result[[]any]]] {
				if err, bad := r.GetLeft(); bad {
					return kont.Pure(kont.Right[[]any](kont.Left[error, []any](err)))
				}
				return kont.Pure(kont.Left[[]any, idb.Result[[]any]](acc))
			})
	})
}

// drainKeys walks a cursor to exhaustion, collecting source keys.
func drainKeys(cur *idb.Cursor) kont.Eff[idb.Result[[]idb.Key]] {
	return idb.Loop([]idb.Key(nil), func(acc []idb.Key) kont.Eff[kont.Either[[]idb.Key, idb.Result[[]idb.Key]]] {
		k, ok := cur.Key()
		if !ok {
			return kont.Pure(kont.Right[[]idb.Key](kont.Right[error](acc)))
		}
		acc = append(acc, k)
		return kont.Bind(cur.Advance(1),
			func(r idb.Result[struct{}]) kont.Eff[kont.Either[[]idb.Key, idb.Result[[]idb.Key]]] {
				if err, bad := r.GetLeft(); bad {
					return kont.Pure(kont.Right[[]idb.Key](kont.Left[error, []idb.Key](err)))
				}
				return kont.Pure(kont.Left[[]idb.Key, idb.Result[[]idb.Key]](acc))
			})
	})
}

// expectPanic is deferred by violation tests to assert the exact
// panic message.
func expectPanic(t *testing.T, want string) {
	t.Helper()
	r := recover()
	if r == nil {
		t.Fatal("expected panic")
	}
	msg, ok := r.(string)
	if !ok || msg != want {
		t.Fatalf("unexpected panic: %v", r)
	}
}
