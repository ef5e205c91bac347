package events

import (
	"github.com/AntonStoeckl/typed-eventstore-go/schema"
)

type AccountCreatedV1 struct {
	AccountID string `json:"accountId"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Region    string `json:"region,omitempty"`
}

func (p AccountCreatedV1) Check(c *schema.Checks) {
	c.Required("AccountId", p.AccountID).
		UUID("AccountId", p.AccountID).
		Required("Name", p.Name)
}

type AccountDeletedV1 struct {
	AccountID string `json:"accountId"`
	Reason    string `json:"reason,omitempty"`
}

func (p AccountDeletedV1) Check(c *schema.Checks) {
	c.Required("AccountId", p.AccountID).
		UUID("AccountId", p.AccountID)
}
