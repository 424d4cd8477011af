// Package jobqueue persists pipeline jobs in SQLite and hands them to
// workers under exclusive, time-limited leases.
//
// A worker takes a job with Lease, keeps it with Renew, and ends it with
// Complete or Fail. Every owner-side operation is conditional on the worker
// still holding the lease; a worker that lost its lease to an expiry reclaim
// gets ErrLeaseLost instead of silently double-writing. Failed jobs return to
// pending until their retry budget runs out.
//
// The queue lives in its own database file so job churn never contends with
// document reads.
package jobqueue
