// Package testdoubles provides spies for the observability interfaces of the eventstore package.
//
// The spies record every call so tests can assert which logs, metrics and spans an engine produced.
package testdoubles
