// Package operations wraps every mutating command in a transaction-like
// envelope: take the repository lock, capture a snapshot of where HEAD is,
// run the command, and on failure put HEAD back where the snapshot says it
// was. Successful and failed runs both end up in the operation history, so
// undo always has a complete record to work from.
//
// Read-only commands skip the lock and the snapshot; dry-run executions
// never reach this package at all.
package operations
