// Package password implements password hashing and verification with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so the
// engine can re-hash after the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length
// bounds) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other credgate package.
//   - Log plaintext passwords.
package password
