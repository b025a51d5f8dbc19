// Package store defines interfaces for persistence dependencies (judge
// outcome repositories). Implementations live in other packages; this package
// must not import database drivers or concrete clients.
package store
