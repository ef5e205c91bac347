package eventstore

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
	DefaultLinkBase = "/events"
)

// PageSize is a validated page size, see NewPageSize. The zero value means DefaultPageSize.
type PageSize int

// NewPageSize validates a requested page size.
// Values below 1 fail with ErrInvalidPageSize, values above MaxPageSize are capped.
func NewPageSize(requested int) (PageSize, error) {
	if requested < 1 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidPageSize, requested)
	}

	return PageSize(min(requested, MaxPageSize)), nil
}

// Int returns the effective page size.
func (s PageSize) Int() int {
	if s < 1 {
		return DefaultPageSize
	}

	return int(min(s, MaxPageSize))
}

type Link struct {
	Href string `json:"href"`
}

type Links struct {
	Self Link  `json:"self"`
	Next *Link `json:"next,omitempty"`
}

// Page is one page of a paginated query. Links.Next is only set when more matching events exist.
type Page struct {
	Items Events `json:"items"`
	Links Links  `json:"links"`
}

// PageReader reads at most limit events matching criteria, in ascending ID order.
type PageReader func(ctx context.Context, criteria Criteria, limit int) (Events, error)

// Paginate runs the pagination protocol on top of an engine's PageReader.
//
// It reads one event more than the page size to find out whether a next page exists. The next link carries
// a continuation token built from the ID of the last returned event and the effective filter parameters.
// The self link is rebuilt from the builder's own parameters, the page size and its continuation token.
func Paginate(ctx context.Context, read PageReader, query QueryBuilder, size PageSize, linkBase string) (Page, error) {
	criteria, err := query.Criteria()
	if err != nil {
		return Page{}, err
	}

	limit := size.Int()

	found, err := read(ctx, criteria, limit+1)
	if err != nil {
		return Page{}, err
	}

	items := make(Events, 0, min(len(found), limit))
	items = append(items, found[:min(len(found), limit)]...)

	self, err := selfLink(query, limit, linkBase)
	if err != nil {
		return Page{}, err
	}

	page := Page{
		Items: items,
		Links: Links{Self: self},
	}

	if len(found) > limit {
		next, nextErr := nextLink(query, items[len(items)-1], limit, linkBase)
		if nextErr != nil {
			return Page{}, nextErr
		}

		page.Links.Next = &next
	}

	return page, nil
}

// ReadAll returns a lazy sequence over all events matching criteria, reading batchSize events at a time
// and resuming each batch after the last ID of the previous one.
func ReadAll(ctx context.Context, read PageReader, criteria Criteria, batchSize int) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		current := criteria

		for {
			batch, err := read(ctx, current, batchSize)
			if err != nil {
				yield(Event{}, err)
				return
			}

			for _, event := range batch {
				if !yield(event, nil) {
					return
				}
			}

			if len(batch) < batchSize {
				return
			}

			current = criteria.WithIDAfter(batch[len(batch)-1].ID)
		}
	}
}

// Failed returns a sequence yielding only err.
func Failed(err error) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		yield(Event{}, err)
	}
}

func selfLink(query QueryBuilder, limit int, linkBase string) (Link, error) {
	params := query.Parameters().With(ParamTop, strconv.Itoa(limit))

	if token, ok := query.ContinuationToken(); ok {
		encoded, err := token.Encode()
		if err != nil {
			return Link{}, err
		}

		params = params.With(ParamContinuationToken, encoded)
	}

	return Link{Href: buildHref(linkBase, params)}, nil
}

func nextLink(query QueryBuilder, last Event, limit int, linkBase string) (Link, error) {
	encoded, err := CreateToken(last.ID, query.EffectiveParameters())
	if err != nil {
		return Link{}, err
	}

	params := QueryParameters{}.
		With(ParamTop, strconv.Itoa(limit)).
		With(ParamContinuationToken, encoded)

	return Link{Href: buildHref(linkBase, params)}, nil
}

func buildHref(linkBase string, params QueryParameters) string {
	if linkBase == "" {
		linkBase = DefaultLinkBase
	}

	separator := "?"
	if strings.Contains(linkBase, "?") {
		separator = "&"
	}

	return linkBase + separator + params.Encode()
}
