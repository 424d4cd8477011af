// Package pipeline implements the stage handlers that move a document from
// ingested to committed: extract, chunk, embed, classify, and commit.
//
// Handlers are safe to re-run after a retry or a lease takeover. Each one
// either checks the document's current status before transitioning or writes
// idempotently (chunk replacement, resumable embedding, verified moves), so a
// job that dies mid-stage can be picked up again without corrupting state.
package pipeline
