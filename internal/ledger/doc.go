// Package ledger persists a local record of submitted datamover jobs in
// SQLite: operation, endpoints, lifecycle status, and failure message.
//
// The datamover service keeps no client-side history, so the ledger is what
// 'shuttle jobs' reports on. It is transient bookkeeping rather than a
// long-term archive; schema changes bump schemaVersion and users clear the
// database to adopt the new schema.
package ledger
