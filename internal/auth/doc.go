// Package auth provides JWT token generation and validation for HomeHub.
//
// It implements a small 2-tier role model (user → admin) with HS256-signed
// access tokens. Tokens are validated by signature and expiry only, so the
// API middleware never needs a database lookup on the hot path.
//
// Multi-user account management is deliberately out of scope: HomeHub is a
// single-household deployment and ships with one local account.
package auth
