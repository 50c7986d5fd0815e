// Package registry persists controller records.
//
// A Record is the durable outcome of provisioning: the stable device
// identifier, its last verified network address, and whether the device
// was positively verified. Records are keyed by device identifier, so a
// controller that comes back with a new DHCP lease updates its existing
// record instead of creating a duplicate.
//
// Store is the persistence interface the orchestrator consumes. Two
// implementations ship with the package: SQLiteStore for durable
// single-node storage and MemStore for tests and embedding applications
// that persist elsewhere. Both deliver Stream as a snapshot of current
// records followed by live updates.
package registry
