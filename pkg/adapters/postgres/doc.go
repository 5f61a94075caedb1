// Package postgres stores drafts and committed companies in PostgreSQL
// through a pgx connection pool.
package postgres
