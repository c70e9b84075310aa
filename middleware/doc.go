// Package middleware guards HTTP handlers with credgate session tokens.
//
// [Guard] reads the Authorization header, validates the bearer token through
// Engine.ValidateToken and stores the token's email in the request context,
// where [EmailFromContext] finds it. Validation is stateless, so a guarded
// request never reaches the credential store.
//
// The package makes no decision beyond accept or reject.
package middleware
