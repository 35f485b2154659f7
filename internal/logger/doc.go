// Package logger wraps zap for the bell scheduler:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and configuration,
//   - convenience functions (Infof, WarnKV, ErrorKV, etc.).
//
// Services take a context and pull the logger from it, so every message of a
// tick carries the tick id and the observed day and time.
package logger
