// Package sinks implements concrete progress consumers: structured logging,
// Prometheus collectors, the outcome repository and a message publisher. Each
// sink satisfies progress.Sink and is safe for repeated Consume/Close cycles.
package sinks
