// Package jobs runs fire-and-forget background work on a bounded in-memory
// queue drained by a fixed pool of workers. Jobs are not persisted: work
// still queued when the process exits is lost.
package jobs
