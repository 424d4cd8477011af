// Package api is the operations facade shared by the daemon surface and the
// CLI. It wraps the stores and the ingester with the review actions a human
// operator performs: approve, reject, reset, rule management, and the
// read-only views over documents, jobs, and the audit trail.
package api
