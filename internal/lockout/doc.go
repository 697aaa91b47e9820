// Package lockout tracks failed PIN attempts and enforces a time-boxed
// lockout once too many accumulate.
//
// State is two values in a store.Store (attempt counter and lockout expiry),
// so clearing process memory or restarting does not reset it. Expiry is
// evaluated lazily: any status check that observes now >= lockoutUntil
// clears both values. There is no background timer.
//
// Reads fail open. An unreadable or unparsable state is treated as zero
// attempts and no lockout, and a warning is logged. Writes are not retried;
// a failed write is logged and the decision already made for the current
// call stands.
package lockout
