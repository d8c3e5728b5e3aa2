// Package transfer implements the high-level operations between a
// fileserver share and a cluster project space: syncing, fetching single
// files through a scratch cache, uploading, and removal.
//
// The package decides where a file lives and in which direction data moves;
// the actual byte movement is always delegated to the datamover client.
// Destructive operations require explicit confirmation, and every datamover
// submission is recorded in the ledger when one is attached.
package transfer
