// Package db implements the connection and transaction runtime used by the
// query layer. Each execution context (the goroutine serving one unit of
// work) holds at most one physical database connection, opened lazily on
// first cursor use and released when the outermost scope exits. Transactions
// nest by reference counting; only the outermost scope decides whether to
// commit or roll back, and transaction finalization always runs before the
// connection is released.
package db
