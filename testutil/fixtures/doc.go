// Package fixtures generates realistic events of the registered payload types for tests and seeding.
//
// Payloads and envelopes are deterministic for a given seed, event IDs are fresh UUIDv7 values.
package fixtures
