// Package docstore persists documents, chunks, classification rules, and the
// audit trail in SQLite.
//
// The Store manages the connection, schema initialization, and every lifecycle
// transition. Status changes go through Transition, which checks the expected
// current status and records the audit event in the same transaction, so a
// document can never skip a lifecycle step and every change stays attributable.
//
// Treat this package as the single source of truth for document semantics;
// when you add new statuses or columns, update schema.sql and bump
// schemaVersion.
package docstore
