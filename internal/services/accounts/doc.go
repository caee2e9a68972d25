// Package accounts manages the caller's organization and its users.
//
// Methods taking a username fall back to the configured user when it is empty.
package accounts
