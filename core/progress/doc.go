// Package progress tracks long-running imports so that callers can poll them.
//
// A Store hands out run ids and keeps a free-form map of fields per run
// (phase, processed/total counters, the final result). MemoryStore guards a
// map with one mutex and suits a single process; RedisStore keeps a JSON
// document per run with a TTL and suits several service instances.
package progress
