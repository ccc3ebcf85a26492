// Package query provides the SQL helpers that run on top of the connection
// runtime: select, insert and update operations with row-to-map decoding,
// ? placeholder rebinding for PostgreSQL and slow-statement profiling. Every
// helper opens its own connection scope, so callers only need an explicit
// scope when they want several statements to share one transaction.
package query
