// Package taskreg owns the lifecycle of batch task records. It provides
// idempotent task creation via content fingerprinting, an active-task
// index per business key, atomic progress tracking for concurrently
// completing units, and retention-based cleanup of finished tasks.
package taskreg
