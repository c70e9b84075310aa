// Package challenge generates, validates and consumes the six digit one-time
// codes used by email verification and password reset.
//
// Codes are stored on the account record in one slot per kind. Generating a
// new code overwrites the slot, so only the latest code of a kind is ever
// valid. Expiry is evaluated lazily when a code is checked; nothing sweeps
// expired codes in the background.
//
// # Architecture boundaries
//
// The package owns the code format and the check order. Persistence and
// atomicity belong to the account.Store passed to New.
//
// # What this package must NOT do
//
//   - Deliver codes to users.
//   - Retry store writes.
package challenge
