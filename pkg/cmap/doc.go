// Package cmap provides a concurrent map implementation for Capsule.
//
// The map is split into a fixed number of shards, each guarded by its own
// RWMutex. Keys are strings and are assigned to shards with MurmurHash3, so
// per-client state (rate limiter buckets keyed by remote IP) spreads evenly
// without a single global lock on the connection path.
//
// Usage:
//
//	m := cmap.New[*visitor]()
//	v := m.GetOrCreate(ip, newVisitor)
//	m.DeleteIf(func(_ string, v *visitor) bool { return v.idle(now) })
//
// All operations are thread-safe. Read operations (Get, Has, Range) use
// RLock, write operations (Set, Delete, GetOrCreate) use Lock.
package cmap
