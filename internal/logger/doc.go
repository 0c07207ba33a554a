// Package logger wraps zap for the publisher:
//   - a global sugared logger writing console entries to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and the WithLevel option,
//   - leveled helpers (DebugKV, InfoKV, WarnKV, ErrorKV).
//
// Services take a context and log through it, so every entry of a run carries
// the service name and the package being published.
package logger
