// Package alarm reads alarm definitions owned by the web application.
//
// The scheduler never writes alarms. SQLSource queries the Laravel "alarms"
// table through database/sql, either from the embedded SQLite database or
// from PostgreSQL.
package alarm
