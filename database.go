// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb

// Database is a handle to one named database on a host. It carries the
// driver slot enforcing the single-active-transaction-driver invariant
// for its host execution context.
type Database struct {
	name   string
	host   Host
	slot   *driverSlot
	closed bool
}

// NewDatabase wraps a host store in a database handle with its own
// driver slot. Databases obtained from a Factory share the slot of
// their host scheduler instead.
func NewDatabase(host Host) *Database {
	return &Database{host: host, slot: new(driverSlot)}
}

// Name returns the database name, empty for host-wrapped databases.
func (d *Database) Name() string {
	return d.name
}

// Close marks the handle closed. Later Run calls fail with
// ErrDatabaseIsClosed; transactions already running are unaffected.
func (d *Database) Close() {
	d.closed = true
}
