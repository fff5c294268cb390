// Package db is the relational store behind the object registry and the
// issue store.
//
// # Contract
//
// The Database:
//  1. Opens a bounded connection pool to PostgreSQL (pgx) or SQLite (modernc)
//  2. Applies the embedded goose migrations for that dialect on Open
//  3. Registers objects idempotently: one id per (cluster, namespace, type, name)
//  4. Appends issues, or refreshes them in place keyed on
//     (object_id, issue_tech_id, category)
//  5. Answers the two category-in-namespace lookups used by the query service
//
// Every failure is returned as a *StorageError. Writes that reference an
// unregistered object additionally match ErrReferentialIntegrity with
// errors.Is. Context cancellation and deadlines propagate unchanged through
// the wrapping.
package db
