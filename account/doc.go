// Package account holds the persisted user model shared by the engine and
// every credential store adapter.
//
// # Architecture boundaries
//
// The package has no dependencies beyond the standard library so that store
// adapters can import it without pulling in the engine.
//
// # What this package must NOT do
//
//   - Generate or validate challenge codes.
//   - Hash or compare passwords.
package account
