// Package core defines the canonical generation request and response model
// that every backend adapter translates to and from, along with the shared
// error taxonomy, the progress sink used for best-effort telemetry, and the
// Secret wrapper for API credentials.
//
// Requests and responses are transient per-call value objects. They carry no
// identity beyond the call; persisting accepted responses is the caller's
// concern and happens outside this module.
package core
