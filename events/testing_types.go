package events

import (
	"math"

	"github.com/AntonStoeckl/typed-eventstore-go/schema"
)

// PaginationTest is a payload without required properties, used to seed bulk data.
type PaginationTest struct {
	Sequence int64 `json:"sequence"`
}

func (p PaginationTest) Check(c *schema.Checks) {
	c.Range("Sequence", p.Sequence, 0, math.MaxInt64)
}

// ConstraintsTest exercises every kind of field constraint.
type ConstraintsTest struct {
	Name  string   `json:"name"`
	Count int64    `json:"count"`
	Tags  []string `json:"tags"`
}

func (p ConstraintsTest) Check(c *schema.Checks) {
	c.Required("Name", p.Name).
		Range("Count", p.Count, 1, 10).
		NotEmpty("Tags", len(p.Tags))
}
