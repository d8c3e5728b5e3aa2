// Package datamover mediates access to the cluster's datamover command
// line tools (dtcp, dtmv, dtrm, dtls, dtrsync).
//
// Each tool submits a transfer job to the institutionally operated
// datamover service and blocks until the job completes, so the client's
// responsibility is limited to argument construction, timeout handling,
// output capture for error context, and parsing dtls listings. Scheduling,
// authentication, and retries belong to the external service.
//
// Prefer this package over ad-hoc exec.Command usage when touching the
// fileserver so timeout handling and error reporting remain consistent.
package datamover
