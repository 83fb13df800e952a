// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb

import (
	"code.hybscloud.com/kont"
)

// Index operates on one index of an object store within a transaction.
// Keys passed here are index keys; records resolve in index-key order,
// ties broken by primary key.
type Index struct {
	src source
}

// Get resolves to the first value under the index key, or nil.
func (ix Index) Get(key Key) kont.Eff[Result[any]] {
	rng := Only(key)
	return kont.Perform(getOp{src: ix.src, rng: &rng})
}

// GetFirstIn resolves to the first value with an index key in rng,
// or nil if the range is empty.
func (ix Index) GetFirstIn(rng KeyRange) kont.Eff[Result[any]] {
	return kont.Perform(getOp{src: ix.src, rng: &rng})
}

// GetAll resolves to every value in index order, up to limit.
func (ix Index) GetAll(limit int) kont.Eff[Result[[]any]] {
	return kont.Perform(getAllOp{src: ix.src, limit: limit})
}

// GetAllIn resolves to every value with an index key in rng, in index
// order, up to limit.
func (ix Index) GetAllIn(rng KeyRange, limit int) kont.Eff[Result[[]any]] {
	return kont.Perform(getAllOp{src: ix.src, rng: &rng, limit: limit})
}

// Contains resolves to whether any record carries the index key.
func (ix Index) Contains(key Key) kont.Eff[Result[bool]] {
	return kont.Perform(containsOp{src: ix.src, key: key})
}

// Count resolves to the number of index entries.
func (ix Index) Count() kont.Eff[Result[int]] {
	return kont.Perform(countOp{src: ix.src})
}

// CountIn resolves to the number of index keys in rng.
func (ix Index) CountIn(rng KeyRange) kont.Eff[Result[int]] {
	return kont.Perform(countOp{src: ix.src, rng: &rng})
}

// Cursor starts building a cursor over this index's entries.
func (ix Index) Cursor() CursorBuilder {
	return CursorBuilder{src: ix.src}
}
