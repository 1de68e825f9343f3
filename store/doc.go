// Package store implements the authoritative in-memory notification cache:
// REST-hydrated snapshots, optimistic mutations without rollback, remote
// event reconciliation and listener fan-out.
//
// # Reconciliation contract
//
// Apply is the single entry point for push events and every path is
// idempotent and order-tolerant: duplicate new_notification events do not
// duplicate entries, the read flag is monotonic, and update/delete events
// for unknown ids are dropped. Unread-count hints are broadcast to count
// listeners without mutating the list; the next full fetch heals any
// transient disagreement.
//
// # Failure behavior
//
// Reads degrade instead of erroring: a failed initial fetch installs the
// built-in placeholder set, and a failed count fetch falls back to the local
// computation. Optimistic mutations are idempotent and retry-safe, so a
// failed REST call never rolls the cache back.
package store
