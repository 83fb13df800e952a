// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb

import (
	"code.hybscloud.com/kont"
)

// Transaction is the in-body handle to one running transaction.
// Every operation obtained through it must be awaited inside the same
// Run call that produced it.
type Transaction struct {
	r     *runner
	names []string
}

// Serial returns the serial number assigned to this transaction.
func (t Transaction) Serial() Serial {
	return t.r.serial
}

// ObjectStore resolves a store granted to this transaction.
func (t Transaction) ObjectStore(name string) (ObjectStore, error) {
	for _, n := range t.names {
		if n == name {
			return ObjectStore{src: source{r: t.r, store: name}}, nil
		}
	}
	return ObjectStore{}, ErrDoesNotExist
}

// ObjectStore operates on the records of one store within a
// transaction. Each method builds one operation effect; the operation
// is issued when the transaction driver dispatches it.
type ObjectStore struct {
	src source
}

// Add inserts a value and resolves to its host-computed key
// (auto-increment or key path). Fails with ErrAlreadyExists if the key
// is already present.
func (s ObjectStore) Add(value any) kont.Eff[Result[Key]] {
	return kont.Perform(addOp{src: s.src, value: value})
}

// AddKV inserts a value under an explicit key.
func (s ObjectStore) AddKV(key Key, value any) kont.Eff[Result[struct{}]] {
	return kont.Perform(addKVOp{src: s.src, key: key, value: value})
}

// Put inserts or replaces a value and resolves to its effective key.
func (s ObjectStore) Put(value any) kont.Eff[Result[Key]] {
	return kont.Perform(putOp{src: s.src, value: value})
}

// PutKV inserts or replaces a value under an explicit key.
func (s ObjectStore) PutKV(key Key, value any) kont.Eff[Result[struct{}]] {
	return kont.Perform(putKVOp{src: s.src, key: key, value: value})
}

// Get resolves to the value stored under key, or nil if absent.
func (s ObjectStore) Get(key Key) kont.Eff[Result[any]] {
	rng := Only(key)
	return kont.Perform(getOp{src: s.src, rng: &rng})
}

// GetFirstIn resolves to the first value with a key in rng, in key
// order, or nil if the range is empty.
func (s ObjectStore) GetFirstIn(rng KeyRange) kont.Eff[Result[any]] {
	return kont.Perform(getOp{src: s.src, rng: &rng})
}

// GetAll resolves to every value in the store in key order, up to
// limit. Zero means no limit.
func (s ObjectStore) GetAll(limit int) kont.Eff[Result[[]any]] {
	return kont.Perform(getAllOp{src: s.src, limit: limit})
}

// GetAllIn resolves to every value with a key in rng, in key order,
// up to limit. Zero means no limit.
func (s ObjectStore) GetAllIn(rng KeyRange, limit int) kont.Eff[Result[[]any]] {
	return kont.Perform(getAllOp{src: s.src, rng: &rng, limit: limit})
}

// Contains resolves to whether key is present.
func (s ObjectStore) Contains(key Key) kont.Eff[Result[bool]] {
	return kont.Perform(containsOp{src: s.src, key: key})
}

// Count resolves to the number of records in the store.
func (s ObjectStore) Count() kont.Eff[Result[int]] {
	return kont.Perform(countOp{src: s.src})
}

// CountIn resolves to the number of keys in rng.
func (s ObjectStore) CountIn(rng KeyRange) kont.Eff[Result[int]] {
	return kont.Perform(countOp{src: s.src, rng: &rng})
}

// Delete removes the record under key. Deleting an absent key
// succeeds.
func (s ObjectStore) Delete(key Key) kont.Eff[Result[struct{}]] {
	return kont.Perform(deleteOp{src: s.src, key: key})
}

// DeleteRange removes every record with a key in rng.
func (s ObjectStore) DeleteRange(rng KeyRange) kont.Eff[Result[struct{}]] {
	return kont.Perform(deleteRangeOp{src: s.src, rng: &rng})
}

// Clear removes every record of the store.
func (s ObjectStore) Clear() kont.Eff[Result[struct{}]] {
	return kont.Perform(clearOp{src: s.src})
}

// Index returns the named index of this store. Resolution is lazy:
// a missing index rejects the first operation with ErrDoesNotExist.
func (s ObjectStore) Index(name string) Index {
	return Index{src: source{r: s.src.r, store: s.src.store, index: name}}
}

// Cursor starts building a cursor over this store's records.
func (s ObjectStore) Cursor() CursorBuilder {
	return CursorBuilder{src: s.src}
}
