// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunSendVerificationCode, RunCompleteReset,
// etc.) accepts a typed dependency struct of closures and reports metrics and
// audit events through its embedded Observer. The Engine builds these structs
// and keeps the resources they close over.
//
// # Architecture boundaries
//
// Flows decide the order of store reads, challenge operations, hashing and
// delivery. Atomicity of a single record update belongs to the store behind
// the Redeem and Generate closures.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import credgate (to avoid import cycles).
//   - Roll back a stored challenge after a failed delivery.
package flows
