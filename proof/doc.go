// Package proof issues and verifies signed proof-of-authentication tokens.
//
// A token is produced when hardware reports a successful match, escrowed by
// the broker while explicit confirmation is pending, and handed to the
// credential store once released. Lockout resets verify a token's signature
// before reaching any provider.
package proof
