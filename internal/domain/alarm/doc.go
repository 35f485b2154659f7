// Package alarm contains the core domain types of the bell scheduler.
//
// It defines Alarm (a weekly recurring bell), Weekday and ClockTime (the
// minute-granular schedule coordinates), Occurrence (the instant a tick
// observed) and Key (the ledger identity of one fired occurrence).
package alarm
