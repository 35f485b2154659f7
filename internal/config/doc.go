// Package config defines the bell scheduler settings and provides helpers to
// load, validate and save them in YAML format.
//
// Validate fills defaults taken from the appliance's historical behaviour:
// the Asia/Jerusalem timezone, the /tmp ledger file and the mpg123-first
// player list.
package config
