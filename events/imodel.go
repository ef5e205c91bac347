package events

import (
	"math"

	"github.com/AntonStoeckl/typed-eventstore-go/schema"
)

type IModelCreatedV1 struct {
	IModelID    string `json:"iModelId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (p IModelCreatedV1) Check(c *schema.Checks) {
	c.Required("IModelId", p.IModelID).
		UUID("IModelId", p.IModelID).
		Required("Name", p.Name)
}

// ChangesetPushedV1 reports a changeset pushed to an iModel. Index is the position of the changeset
// in the iModel's timeline and starts at 1.
type ChangesetPushedV1 struct {
	IModelID    string `json:"iModelId"`
	ChangesetID string `json:"changesetId"`
	Index       int64  `json:"index"`
	FileSize    int64  `json:"fileSize,omitempty"`
	Description string `json:"description,omitempty"`
}

func (p ChangesetPushedV1) Check(c *schema.Checks) {
	c.Required("IModelId", p.IModelID).
		UUID("IModelId", p.IModelID).
		Required("ChangesetId", p.ChangesetID).
		Range("Index", p.Index, 1, math.MaxInt32).
		Range("FileSize", p.FileSize, 0, math.MaxInt64)
}
