// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb

import (
	"sort"
)

// memEntry is one record of a store, keyed by a normalized key.
type memEntry struct {
	key   Key
	value any
}

// memStore holds one object store's records in key order, plus its
// indexes. All mutation goes through putEntry/removeEntry so the
// indexes never drift from the records.
type memStore struct {
	name     string
	keyPath  string
	autoInc  bool
	nextAuto float64
	entries  []memEntry
	indexes  map[string]*memIndex
}

func newMemStore(name, keyPath string, autoInc bool) *memStore {
	return &memStore{
		name:     name,
		keyPath:  keyPath,
		autoInc:  autoInc,
		nextAuto: 1,
		indexes:  make(map[string]*memIndex),
	}
}

func (s *memStore) clone() *memStore {
	out := &memStore{
		name:     s.name,
		keyPath:  s.keyPath,
		autoInc:  s.autoInc,
		nextAuto: s.nextAuto,
		entries:  make([]memEntry, len(s.entries)),
		indexes:  make(map[string]*memIndex, len(s.indexes)),
	}
	copy(out.entries, s.entries)
	for name, ix := range s.indexes {
		out.indexes[name] = ix.clone()
	}
	return out
}

// search finds the insertion point of a normalized key.
func (s *memStore) search(k Key) (int, bool) {
	i := sort.Search(len(s.entries), func(i int) bool {
		return compareKeys(s.entries[i].key, k) >= 0
	})
	return i, i < len(s.entries) && compareKeys(s.entries[i].key, k) == 0
}

// putEntry inserts or replaces the record under key, maintaining
// every index. Unique-index conflicts must have been checked first.
func (s *memStore) putEntry(key Key, value any) (prev any, replaced bool) {
	i, found := s.search(key)
	if found {
		prev = s.entries[i].value
		for _, ix := range s.indexes {
			ix.remove(key, prev)
		}
		s.entries[i].value = value
	} else {
		s.entries = append(s.entries, memEntry{})
		copy(s.entries[i+1:], s.entries[i:])
		s.entries[i] = memEntry{key: key, value: value}
	}
	for _, ix := range s.indexes {
		_ = ix.insert(key, value)
	}
	return prev, found
}

// removeEntry deletes the record under key, maintaining every index.
func (s *memStore) removeEntry(key Key) (prev any, removed bool) {
	i, found := s.search(key)
	if !found {
		return nil, false
	}
	prev = s.entries[i].value
	for _, ix := range s.indexes {
		ix.remove(key, prev)
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return prev, true
}

// uniqueConflict reports whether inserting value under primary would
// violate a unique index.
func (s *memStore) uniqueConflict(primary Key, value any) bool {
	for _, ix := range s.indexes {
		if !ix.unique {
			continue
		}
		k, ok := fieldKey(value, ix.keyPath)
		if ok && ix.hasKey(k, primary) {
			return true
		}
	}
	return false
}

// idxEntry is one index record, sorted by (index key, primary key).
type idxEntry struct {
	key     Key
	primary Key
	value   any
}

type memIndex struct {
	name    string
	keyPath string
	unique  bool
	entries []idxEntry
}

func (ix *memIndex) clone() *memIndex {
	out := &memIndex{
		name:    ix.name,
		keyPath: ix.keyPath,
		unique:  ix.unique,
		entries: make([]idxEntry, len(ix.entries)),
	}
	copy(out.entries, ix.entries)
	return out
}

func (ix *memIndex) search(key, primary Key) (int, bool) {
	i := sort.Search(len(ix.entries), func(i int) bool {
		c := compareKeys(ix.entries[i].key, key)
		if c != 0 {
			return c > 0
		}
		return compareKeys(ix.entries[i].primary, primary) >= 0
	})
	found := i < len(ix.entries) &&
		compareKeys(ix.entries[i].key, key) == 0 &&
		compareKeys(ix.entries[i].primary, primary) == 0
	return i, found
}

// hasKey reports whether any entry other than exclude carries key.
func (ix *memIndex) hasKey(key, exclude Key) bool {
	i := sort.Search(len(ix.entries), func(i int) bool {
		return compareKeys(ix.entries[i].key, key) >= 0
	})
	for ; i < len(ix.entries) && compareKeys(ix.entries[i].key, key) == 0; i++ {
		if compareKeys(ix.entries[i].primary, exclude) != 0 {
			return true
		}
	}
	return false
}

// insert derives the index key from value and records the entry.
// Records without the indexed field are skipped. A unique violation
// fails without mutating.
func (ix *memIndex) insert(primary Key, value any) error {
	k, ok := fieldKey(value, ix.keyPath)
	if !ok {
		return nil
	}
	if ix.unique && ix.hasKey(k, primary) {
		return ErrAlreadyExists
	}
	i, _ := ix.search(k, primary)
	ix.entries = append(ix.entries, idxEntry{})
	copy(ix.entries[i+1:], ix.entries[i:])
	ix.entries[i] = idxEntry{key: k, primary: primary, value: value}
	return nil
}

func (ix *memIndex) remove(primary Key, value any) {
	k, ok := fieldKey(value, ix.keyPath)
	if !ok {
		return
	}
	if i, found := ix.search(k, primary); found {
		ix.entries = append(ix.entries[:i], ix.entries[i+1:]...)
	}
}

// fieldKey extracts and normalizes the named field of a map value.
func fieldKey(value any, path string) (Key, bool) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, false
	}
	f, ok := m[path]
	if !ok || !validKey(f) {
		return nil, false
	}
	return normalizeKey(f), true
}

// exec runs one dequeued call and latches its outcome; the caller
// fires the notifier once the engine lock is released.
func (h *MemHost) exec(c *memCall) {
	st := h.stores[c.call.Store]
	if st == nil {
		c.req.fail(ErrObjectStoreWasRemoved)
		return
	}
	rng := c.call.Range.normalize()
	switch c.call.Kind {
	case CallAdd, CallPut:
		h.execWrite(c, st)
	case CallGet:
		if c.call.Index != "" {
			for _, e := range st.indexes[c.call.Index].entries {
				if rng.contains(e.key) {
					c.req.succeed(e.value)
					return
				}
			}
		} else {
			for _, e := range st.entries {
				if rng.contains(e.key) {
					c.req.succeed(e.value)
					return
				}
			}
		}
		c.req.succeed(nil)
	case CallGetAll:
		out := []any{}
		if c.call.Index != "" {
			for _, e := range st.indexes[c.call.Index].entries {
				if c.call.Limit > 0 && len(out) == c.call.Limit {
					break
				}
				if rng.contains(e.key) {
					out = append(out, e.value)
				}
			}
		} else {
			for _, e := range st.entries {
				if c.call.Limit > 0 && len(out) == c.call.Limit {
					break
				}
				if rng.contains(e.key) {
					out = append(out, e.value)
				}
			}
		}
		c.req.succeed(out)
	case CallCount:
		n := 0
		if c.call.Index != "" {
			for _, e := range st.indexes[c.call.Index].entries {
				if rng.contains(e.key) {
					n++
				}
			}
		} else {
			for _, e := range st.entries {
				if rng.contains(e.key) {
					n++
				}
			}
		}
		c.req.succeed(n)
	case CallDelete:
		key := normalizeKey(c.call.Key)
		if prev, removed := st.removeEntry(key); removed {
			c.txn.undo = append(c.txn.undo, func() { st.putEntry(key, prev) })
		}
		c.req.succeed(nil)
	case CallDeleteRange:
		type pair struct {
			key   Key
			value any
		}
		var removed []pair
		for _, e := range st.entries {
			if rng.contains(e.key) {
				removed = append(removed, pair{key: e.key, value: e.value})
			}
		}
		for _, p := range removed {
			st.removeEntry(p.key)
		}
		if len(removed) > 0 {
			c.txn.undo = append(c.txn.undo, func() {
				for _, p := range removed {
					st.putEntry(p.key, p.value)
				}
			})
		}
		c.req.succeed(nil)
	case CallClear:
		prevEntries := st.entries
		prevIdx := make(map[string][]idxEntry, len(st.indexes))
		for name, ix := range st.indexes {
			prevIdx[name] = ix.entries
			ix.entries = nil
		}
		st.entries = nil
		c.txn.undo = append(c.txn.undo, func() {
			st.entries = prevEntries
			for name, ix := range st.indexes {
				ix.entries = prevIdx[name]
			}
		})
		c.req.succeed(nil)
	case CallOpenCursor:
		h.execOpenCursor(c, st, rng)
	default:
		h.execCursor(c, st)
	}
}

// execWrite handles Add and Put.
func (h *MemHost) execWrite(c *memCall, st *memStore) {
	t := c.txn
	var key Key
	if c.call.Key != nil {
		key = normalizeKey(c.call.Key)
	} else if st.keyPath != "" {
		if k, ok := fieldKey(c.call.Value, st.keyPath); ok {
			key = k
		}
	}
	if key == nil {
		if !st.autoInc {
			c.req.fail(ErrInvalidKey)
			return
		}
		prev := st.nextAuto
		key = st.nextAuto
		st.nextAuto++
		t.undo = append(t.undo, func() { st.nextAuto = prev })
	} else if n, ok := key.(float64); ok && st.autoInc && n >= st.nextAuto {
		// Explicit numeric keys move the generator past themselves.
		prev := st.nextAuto
		st.nextAuto = n + 1
		t.undo = append(t.undo, func() { st.nextAuto = prev })
	}
	_, exists := st.search(key)
	if exists && c.call.Kind == CallAdd {
		c.req.fail(ErrAlreadyExists)
		return
	}
	if st.uniqueConflict(key, c.call.Value) {
		c.req.fail(ErrAlreadyExists)
		return
	}
	prev, replaced := st.putEntry(key, c.call.Value)
	if replaced {
		t.undo = append(t.undo, func() { st.putEntry(key, prev) })
	} else {
		t.undo = append(t.undo, func() { st.removeEntry(key) })
	}
	c.req.succeed(key)
}

// cursorPos is one reachable cursor position, in walk order.
type cursorPos struct {
	key     Key
	primary Key
	value   any
}

// memCursor tracks a live cursor. Positions are recomputed from the
// live records on every move, so records deleted since the last move
// are never visited and never cause a skip.
type memCursor struct {
	id      uint64
	store   string
	index   string
	rng     *KeyRange
	dir     CursorDirection
	keyOnly bool
	key     Key
	primary Key
	done    bool
}

// walk materializes the cursor's position sequence from live data.
func (cur *memCursor) walk(st *memStore) []cursorPos {
	var asc []cursorPos
	if cur.index != "" {
		for _, e := range st.indexes[cur.index].entries {
			if cur.rng.contains(e.key) {
				asc = append(asc, cursorPos{key: e.key, primary: e.primary, value: e.value})
			}
		}
	} else {
		for _, e := range st.entries {
			if cur.rng.contains(e.key) {
				asc = append(asc, cursorPos{key: e.key, primary: e.key, value: e.value})
			}
		}
	}
	if cur.dir.unique() {
		dedup := asc[:0]
		for _, p := range asc {
			if len(dedup) == 0 || compareKeys(dedup[len(dedup)-1].key, p.key) != 0 {
				dedup = append(dedup, p)
			}
		}
		asc = dedup
	}
	if !cur.dir.forward() {
		for i, j := 0, len(asc)-1; i < j; i, j = i+1, j-1 {
			asc[i], asc[j] = asc[j], asc[i]
		}
	}
	return asc
}

// cmpWalk orders (key, primary) pairs in the cursor's walk direction.
func (cur *memCursor) cmpWalk(key, primary, key2, primary2 Key) int {
	c := compareKeys(key, key2)
	if c == 0 {
		c = compareKeys(primary, primary2)
	}
	if !cur.dir.forward() {
		c = -c
	}
	return c
}

func (h *MemHost) execOpenCursor(c *memCall, st *memStore, rng *KeyRange) {
	cur := &memCursor{
		store:   c.call.Store,
		index:   c.call.Index,
		rng:     rng,
		dir:     c.call.Direction,
		keyOnly: c.call.KeyOnly,
	}
	seq := cur.walk(st)
	if len(seq) == 0 {
		c.req.succeed((*CursorPosition)(nil))
		return
	}
	h.nextCursor++
	cur.id = h.nextCursor
	c.txn.cursors[cur.id] = cur
	h.settle(c, cur, seq[0])
}

// settle moves cur onto pos and reports it.
func (h *MemHost) settle(c *memCall, cur *memCursor, pos cursorPos) {
	cur.key = pos.key
	cur.primary = pos.primary
	out := &CursorPosition{Cursor: cur.id, Key: pos.key, PrimaryKey: pos.primary}
	if !cur.keyOnly {
		out.Value = pos.value
	}
	c.req.succeed(out)
}

func (h *MemHost) execCursor(c *memCall, st *memStore) {
	cur := c.txn.cursors[c.call.Cursor]
	if cur == nil || cur.done {
		c.req.fail(ErrInvalidCall)
		return
	}
	switch c.call.Kind {
	case CallCursorAdvance, CallCursorContinue, CallCursorContinuePrimary:
		seq := cur.walk(st)
		i := sort.Search(len(seq), func(i int) bool {
			return cur.cmpWalk(seq[i].key, seq[i].primary, cur.key, cur.primary) > 0
		})
		switch c.call.Kind {
		case CallCursorAdvance:
			i += int(c.call.Count) - 1
		case CallCursorContinue:
			key := normalizeKey(c.call.Key)
			for i < len(seq) && cur.cmpWalk(seq[i].key, seq[i].primary, key, seq[i].primary) < 0 {
				i++
			}
		case CallCursorContinuePrimary:
			key := normalizeKey(c.call.Key)
			primary := normalizeKey(c.call.PrimaryKey)
			for i < len(seq) && cur.cmpWalk(seq[i].key, seq[i].primary, key, primary) < 0 {
				i++
			}
		}
		if i >= len(seq) {
			cur.done = true
			delete(c.txn.cursors, cur.id)
			c.req.succeed((*CursorPosition)(nil))
			return
		}
		h.settle(c, cur, seq[i])
	case CallCursorDelete:
		key := cur.primary
		if prev, removed := st.removeEntry(key); removed {
			c.txn.undo = append(c.txn.undo, func() { st.putEntry(key, prev) })
		}
		c.req.succeed(nil)
	case CallCursorUpdate:
		key := cur.primary
		if st.keyPath != "" {
			k, ok := fieldKey(c.call.Value, st.keyPath)
			if !ok || compareKeys(k, key) != 0 {
				c.req.fail(ErrInvalidArgument)
				return
			}
		}
		if st.uniqueConflict(key, c.call.Value) {
			c.req.fail(ErrAlreadyExists)
			return
		}
		prev, replaced := st.putEntry(key, c.call.Value)
		if replaced {
			c.txn.undo = append(c.txn.undo, func() { st.putEntry(key, prev) })
		} else {
			c.txn.undo = append(c.txn.undo, func() { st.removeEntry(key) })
		}
		c.req.succeed(key)
	default:
		c.req.fail(ErrInvalidCall)
	}
}
