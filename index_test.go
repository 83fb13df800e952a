// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb_test

import (
	"errors"
	"reflect"
	"testing"

	"code.hybscloud.com/idb"
	"code.hybscloud.com/kont"
)

func newIndexedDB(t *testing.T) *idb.Database {
	t.Helper()
	f := idb.NewFactory()
	db, err := f.Open("indexed", 1, func(e idb.VersionChangeEvent) error {
		users, err := e.BuildObjectStore("users").KeyPath("id").Create()
		if err != nil {
			return err
		}
		if err := users.BuildIndex("by_age", "age").Create(); err != nil {
			return err
		}
		return users.BuildIndex("by_email", "email").Unique().Create()
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return db
}

func user(id int, age int, email string) map[string]any {
	return map[string]any{"id": id, "age": age, "email": email}
}

func seedUsers(t *testing.T, db *idb.Database) {
	t.Helper()
	mustRun(t, db.Transaction("users").ReadWrite(), func(tx idb.Transaction) kont.Eff[idb.Result[struct{}]] {
		users, _ := tx.ObjectStore("users")
		return idb.TryThen(users.Put(user(1, 30, "a@x")),
			idb.TryThen(users.Put(user(2, 25, "b@x")),
				idb.TryThen(users.Put(user(3, 30, "c@x")),
					idb.Ok(struct{}{}))))
	})
}

func TestIndexGetAndOrder(t *testing.T) {
	db := newIndexedDB(t)
	seedUsers(t, db)

	ages := mustRun(t, db.Transaction("users"), func(tx idb.Transaction) kont.Eff[idb.Result[[]any]] {
		users, _ := tx.ObjectStore("users")
		return users.Index("by_age").GetAll(0)
	})
	// Index order: by age, ties by primary key.
	wantIDs := []any{2, 1, 3}
	if len(ages) != 3 {
		t.Fatalf("got %d records, want 3", len(ages))
	}
	for i, v := range ages {
		if v.(map[string]any)["id"] != wantIDs[i] {
			t.Fatalf("position %d got id %v, want %v", i, v.(map[string]any)["id"], wantIDs[i])
		}
	}

	first := mustRun(t, db.Transaction("users"), func(tx idb.Transaction) kont.Eff[idb.Result[any]] {
		users, _ := tx.ObjectStore("users")
		return users.Index("by_age").Get(30)
	})
	if first.(map[string]any)["id"] != 1 {
		t.Fatalf("Get(30) got id %v, want 1", first.(map[string]any)["id"])
	}
}

func TestIndexCountAndContains(t *testing.T) {
	db := newIndexedDB(t)
	seedUsers(t, db)

	pair := mustRun(t, db.Transaction("users"), func(tx idb.Transaction) kont.Eff[idb.Result[idb.Pair[int, bool]]] {
		users, _ := tx.ObjectStore("users")
		age := users.Index("by_age")
		return idb.Join(age.CountIn(idb.Only(30)), age.Contains(99))
	})
	if pair.First != 2 {
		t.Fatalf("count got %d, want 2", pair.First)
	}
	if pair.Second {
		t.Fatal("Contains(99) should be false")
	}
}

func TestUniqueIndexViolation(t *testing.T) {
	db := newIndexedDB(t)
	seedUsers(t, db)

	err := mustRun(t, db.Transaction("users").ReadWrite(), func(tx idb.Transaction) kont.Eff[idb.Result[error]] {
		users, _ := tx.ObjectStore("users")
		return kont.Bind(users.Put(user(4, 40, "a@x")), func(r idb.Result[idb.Key]) kont.Eff[idb.Result[error]] {
			err, _ := r.GetLeft()
			return idb.Ok(err)
		})
	})
	if !errors.Is(err, idb.ErrAlreadyExists) {
		t.Fatalf("got %v, want ErrAlreadyExists", err)
	}
}

func TestMissingIndexRejectsFirstOperation(t *testing.T) {
	db := newIndexedDB(t)
	err := mustRun(t, db.Transaction("users"), func(tx idb.Transaction) kont.Eff[idb.Result[error]] {
		users, _ := tx.ObjectStore("users")
		return kont.Bind(users.Index("by_nothing").Count(), func(r idb.Result[int]) kont.Eff[idb.Result[error]] {
			err, _ := r.GetLeft()
			return idb.Ok(err)
		})
	})
	if !errors.Is(err, idb.ErrDoesNotExist) {
		t.Fatalf("got %v, want ErrDoesNotExist", err)
	}
}

func TestIndexCursorPrimaryKeys(t *testing.T) {
	db := newIndexedDB(t)
	seedUsers(t, db)

	primaries := mustRun(t, db.Transaction("users"), func(tx idb.Transaction) kont.Eff[idb.Result[[]idb.Key]] {
		users, _ := tx.ObjectStore("users")
		cursor := users.Index("by_age").Cursor().Open()
		return idb.Try(cursor, func(cur *idb.Cursor) kont.Eff[idb.Result[[]idb.Key]] {
			return idb.Loop([]idb.Key(nil), func(acc []idb.Key) kont.Eff[kont.Either[[]idb.Key, idb.Result[[]idb.Key]]] {
				pk, ok := cur.PrimaryKey()
				if !ok {
					return kont.Pure(kont.Right[[]idb.Key](kont.Right[error](acc)))
				}
				acc = append(acc, pk)
				return kont.Bind(cur.Advance(1),
					func(r idb.Result[struct{}]) kont.Eff[kont.Either[[]idb.Key, idb.Result[[]idb.Key]]] {
						if err, bad := r.GetLeft(); bad {
							return kont.Pure(kont.Right[[]idb.Key](kont.Left[error, []idb.Key](err)))
						}
						return kont.Pure(kont.Left[[]idb.Key, idb.Result[[]idb.Key]](acc))
					})
			})
		})
	})
	if !reflect.DeepEqual(primaries, []idb.Key{float64(2), float64(1), float64(3)}) {
		t.Fatalf("got %v, want [2 1 3]", primaries)
	}
}

func TestIndexCursorUniqueDirection(t *testing.T) {
	db := newIndexedDB(t)
	seedUsers(t, db)

	keys := mustRun(t, db.Transaction("users"), func(tx idb.Transaction) kont.Eff[idb.Result[[]idb.Key]] {
		users, _ := tx.ObjectStore("users")
		return idb.Try(users.Index("by_age").Cursor().Direction(idb.NextUnique).Open(), drainKeys)
	})
	if !reflect.DeepEqual(keys, []idb.Key{float64(25), float64(30)}) {
		t.Fatalf("got %v, want [25 30]", keys)
	}
}

func TestAdvanceUntilPrimaryKey(t *testing.T) {
	db := newIndexedDB(t)
	seedUsers(t, db)

	pk := mustRun(t, db.Transaction("users"), func(tx idb.Transaction) kont.Eff[idb.Result[idb.Key]] {
		users, _ := tx.ObjectStore("users")
		return idb.Try(users.Index("by_age").Cursor().Open(), func(cur *idb.Cursor) kont.Eff[idb.Result[idb.Key]] {
			return idb.TryThen(cur.AdvanceUntilPrimaryKey(30, 3),
				kont.Bind(idb.Ok(struct{}{}), func(idb.Result[struct{}]) kont.Eff[idb.Result[idb.Key]] {
					pk, _ := cur.PrimaryKey()
					return idb.Ok(pk)
				}))
		})
	})
	if pk != float64(3) {
		t.Fatalf("got %v, want 3", pk)
	}
}

func TestAdvanceUntilPrimaryKeyOnStoreCursorUnsupported(t *testing.T) {
	db := newTestDB(t, "s")
	putPairs(t, db, "s", [][2]any{{1, "a"}, {2, "b"}})

	err := mustRun(t, db.Transaction("s"), func(tx idb.Transaction) kont.Eff[idb.Result[error]] {
		s, _ := tx.ObjectStore("s")
		return idb.Try(s.Cursor().Open(), func(cur *idb.Cursor) kont.Eff[idb.Result[error]] {
			return kont.Bind(cur.AdvanceUntilPrimaryKey(2, 2), func(r idb.Result[struct{}]) kont.Eff[idb.Result[error]] {
				err, _ := r.GetLeft()
				return idb.Ok(err)
			})
		})
	})
	if !errors.Is(err, idb.ErrNotSupported) {
		t.Fatalf("got %v, want ErrNotSupported", err)
	}
}
