// Package writer batches ticks from the router into the tick store.
//
// The writer is a router sink: HandleTick only enqueues, so a slow store
// never stalls ingestion. Batches are flushed when they reach BatchSize or
// when FlushInterval elapses, whichever comes first. When the queue is at its
// maximum size new ticks are dropped and counted.
//
// Writes are append-only.
package writer
