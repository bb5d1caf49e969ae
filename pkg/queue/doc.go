// Package queue implements the Episode Queue (spec §4.5): one FIFO per
// group id, drained by its own goroutine, with a shared semaphore
// bounding how many groups run concurrently and a second shared
// semaphore bounding how many LLM-bearing calls run concurrently across
// every group. WithRetry adds full-jitter exponential backoff around a
// Processor for transient failures.
package queue
