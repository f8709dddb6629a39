// Package postgres provides the PostgreSQL card sink.
//
// CardStore implements the dispatcher's Sink on a "cards" table keyed by
// word: Exists answers the already-processed check and Write upserts the
// generated content, stamping the model and the run ID. The schema is
// managed by goose migrations embedded in the binary (see Migrate).
//
// Connections use the pgx stdlib driver through database/sql, and all store
// code is written against the DBTX interface so it works with either a
// *sql.DB or a *sql.Tx.
package postgres
