// Package postgreswrapper starts a disposable PostgreSQL container and wraps the relational event store
// for each supported database adapter, so integration tests can run the same assertions against all of them.
package postgreswrapper
