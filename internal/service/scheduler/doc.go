// Package scheduler fires alarm bells.
//
// Scheduler.Tick is the unit of work: it takes the ledger lock, looks up the
// alarms due at the current minute in the operational timezone, plays each one
// that has not fired yet and records it. An external cron entry can call
// RunTick every minute, or Run keeps the process alive and ticks on a cron
// schedule itself.
package scheduler
