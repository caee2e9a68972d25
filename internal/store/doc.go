// Package store keeps named credential profiles on disk.
//
// Profiles live in a single JSON file under the configured home directory
// (~/.cve by default). The API key of each profile is sealed with a key
// derived from a passphrase (argon2id) using chacha20poly1305; the other
// fields stay in clear text so profiles can be listed without the
// passphrase. Writes replace the file atomically and the file is only
// readable by its owner. All methods are safe for concurrent use.
package store
