package events

import (
	"github.com/AntonStoeckl/typed-eventstore-go/schema"
)

const maxRunDurationSeconds = 7 * 24 * 60 * 60

type SynchronizationRunCompletedV1 struct {
	RunID           string   `json:"runId"`
	ConnectionID    string   `json:"connectionId,omitempty"`
	State           string   `json:"state"`
	DurationSeconds int64    `json:"durationSeconds"`
	Files           []string `json:"files"`
}

func (p SynchronizationRunCompletedV1) Check(c *schema.Checks) {
	c.Required("RunId", p.RunID).
		Required("State", p.State).
		Range("DurationSeconds", p.DurationSeconds, 0, maxRunDurationSeconds).
		NotEmpty("Files", len(p.Files))
}
