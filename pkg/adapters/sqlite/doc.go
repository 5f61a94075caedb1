// Package sqlite stores drafts and committed companies in SQLite through
// modernc.org/sqlite (pure Go, no cgo).
//
// One *sql.DB serves both the DraftStore and the SubmissionGateway; the
// schema is created on first use.
package sqlite
