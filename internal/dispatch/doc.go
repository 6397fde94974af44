// Package dispatch provides the broker's single-threaded cooperative
// scheduler: a buffered queue drained by one goroutine, with delayed posts
// and a synchronous Call escape hatch for read-only queries.
package dispatch
