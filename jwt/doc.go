// Package jwt issues and validates stateless session tokens bound to an
// account email, using HS256 or Ed25519 keys loaded once at startup.
package jwt
