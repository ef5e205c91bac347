// Package events holds the catalogue of payload shapes the event store accepts.
//
// Each payload type declares its discriminator, the properties a raw payload must contain
// and its field constraints. Schemas returns all of them, NewTypeRegistry indexes them.
package events
