// Package postgres adapts database/sql sessions driven by the pgx stdlib
// driver to the connection runtime's raw connection contract. Each raw
// connection is a dedicated session checked out of the pool; its first cursor
// opens a transaction that stays open until Commit or Rollback, matching the
// autocommit-off semantics the runtime is built around.
package postgres
