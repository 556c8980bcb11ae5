// Package cache persists generated email summaries in a local SQLite
// database (modernc.org/sqlite, no cgo).
//
// Entries are keyed by a SHA-256 hash of the account identifier and the
// Gmail message ID, so the database never stores user identities in the
// clear. Entries older than the store's TTL read as misses and are removed
// by Prune.
package cache
