// Package httpapi exposes an eventstore.EventRepository over HTTP.
//
// POST /events validates every entry against the type registry before anything is stored.
// GET /events answers paginated queries, the next link carries an opaque continuation token.
package httpapi
