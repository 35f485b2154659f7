// Package ledger implements the durable record of alarm occurrences that have
// already fired today.
//
// FileLedger keeps the fired set in memory between Load and Persist, writes it
// as JSON with an atomic rename, and guards the load-mutate-persist cycle with
// an advisory lock file so overlapping ticks cannot fire an occurrence twice.
package ledger
