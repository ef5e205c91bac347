// Package opensearchengine provides an OpenSearch implementation of eventstore.EventRepository.
//
// Each event is one document whose _id is the event ID. Queries are translated into a bool query
// with one filter clause per predicate, sorted by the keyword field "id".
//
// Writes use the bulk API with the "create" action, so an already stored ID is reported as a failed item
// instead of overwriting the document. A bulk request is not atomic: the other items of the batch are stored.
// AddEvents returns how many were created together with an error wrapping eventstore.ErrDuplicateEventID.
//
// Search only sees documents after an index refresh. WithRefresh(true) refreshes the index after every batch,
// which is what tests and low-volume deployments want.
package opensearchengine
