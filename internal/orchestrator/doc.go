// Package orchestrator drives the document pipeline: it ingests files from
// the inbox, runs a pool of workers that lease jobs and dispatch them to the
// stage handlers, chains each finished stage into the next, and routes
// terminal failures to review or to the error state.
package orchestrator
