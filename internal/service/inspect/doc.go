// Package inspect implements the read-mostly maintenance commands: listing
// alarms and sounds, test-playing a sound and viewing or clearing the ledger.
package inspect
