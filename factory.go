// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb

// Factory opens and deletes named in-memory databases. Each database
// is one MemHost; reopening a name yields a handle onto the same
// engine, so versioning and schema persist across Open calls.
type Factory struct {
	engines map[string]*MemHost
}

func NewFactory() *Factory {
	return &Factory{engines: make(map[string]*MemHost)}
}

// Open returns a handle to the named database at the given version.
// version must be positive and at least the stored version. When it is
// greater, upgrade runs first with exclusive schema access; an error
// from upgrade rolls the schema back to its pre-upgrade snapshot and
// leaves the stored version unchanged.
func (f *Factory) Open(name string, version uint32, upgrade func(VersionChangeEvent) error) (*Database, error) {
	if version == 0 {
		return nil, ErrVersionMustNotBeZero
	}
	engine, ok := f.engines[name]
	if !ok {
		engine = NewMemHost(name)
		f.engines[name] = engine
	}
	if version < engine.version {
		return nil, ErrVersionTooOld
	}
	if version > engine.version {
		snapshot := engine.cloneStores()
		removed := make(map[string]struct{}, len(engine.removed))
		for name := range engine.removed {
			removed[name] = struct{}{}
		}
		old := engine.version
		if upgrade != nil {
			err := upgrade(VersionChangeEvent{
				engine:     engine,
				OldVersion: old,
				NewVersion: version,
			})
			if err != nil {
				engine.stores = snapshot
				engine.removed = removed
				return nil, err
			}
		}
		engine.version = version
	}
	return &Database{name: name, host: engine, slot: &engine.slot}, nil
}

// DeleteDatabase drops the named engine and all its data. Deleting an
// unknown name is a no-op.
func (f *Factory) DeleteDatabase(name string) {
	delete(f.engines, name)
}

// VersionChangeEvent grants exclusive schema access during an upgrade.
type VersionChangeEvent struct {
	engine     *MemHost
	OldVersion uint32
	NewVersion uint32
}

// BuildObjectStore starts declaring a new object store.
func (e VersionChangeEvent) BuildObjectStore(name string) ObjectStoreBuilder {
	return ObjectStoreBuilder{engine: e.engine, name: name}
}

// DeleteObjectStore removes a store and all its records. Transactions
// opened before the upgrade that still name it fail at Begin with
// ErrObjectStoreWasRemoved.
func (e VersionChangeEvent) DeleteObjectStore(name string) error {
	if _, ok := e.engine.stores[name]; !ok {
		return ErrDoesNotExist
	}
	delete(e.engine.stores, name)
	e.engine.removed[name] = struct{}{}
	return nil
}

// ObjectStoreBuilder declares one object store of an upgrade.
type ObjectStoreBuilder struct {
	engine  *MemHost
	name    string
	keyPath string
	autoInc bool
}

// KeyPath derives record keys from the named field of map values.
func (b ObjectStoreBuilder) KeyPath(path string) ObjectStoreBuilder {
	b.keyPath = path
	return b
}

// AutoIncrement lets the store generate numeric keys for Add and Put
// calls that carry none.
func (b ObjectStoreBuilder) AutoIncrement() ObjectStoreBuilder {
	b.autoInc = true
	return b
}

// Create materializes the store.
func (b ObjectStoreBuilder) Create() (StoreSchema, error) {
	if _, ok := b.engine.stores[b.name]; ok {
		return StoreSchema{}, ErrAlreadyExists
	}
	st := newMemStore(b.name, b.keyPath, b.autoInc)
	b.engine.stores[b.name] = st
	delete(b.engine.removed, b.name)
	return StoreSchema{store: st}, nil
}

// StoreSchema is a created store's schema handle, for declaring
// indexes.
type StoreSchema struct {
	store *memStore
}

// BuildIndex starts declaring an index over the named field.
func (s StoreSchema) BuildIndex(name, keyPath string) IndexBuilder {
	return IndexBuilder{store: s.store, name: name, keyPath: keyPath}
}

// IndexBuilder declares one index of a store.
type IndexBuilder struct {
	store   *memStore
	name    string
	keyPath string
	unique  bool
}

// Unique rejects records whose index key is already present.
func (b IndexBuilder) Unique() IndexBuilder {
	b.unique = true
	return b
}

// Create materializes the index over the store's current records.
func (b IndexBuilder) Create() error {
	if _, ok := b.store.indexes[b.name]; ok {
		return ErrAlreadyExists
	}
	ix := &memIndex{name: b.name, keyPath: b.keyPath, unique: b.unique}
	for _, e := range b.store.entries {
		if err := ix.insert(e.key, e.value); err != nil {
			return err
		}
	}
	b.store.indexes[b.name] = ix
	return nil
}
