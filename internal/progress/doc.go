// Package progress provides the event primitives, non-blocking hub, and emitter
// interfaces used to fan out judge progress. The watch loop emits one snapshot
// per merged update; the hub batches them on a background goroutine and hands
// them to pluggable sinks such as Prometheus, an outcome store or a publisher.
package progress
