package models

import "time"

// Client is a recipient identity. ContactRef and CounterpartyRef point at the
// courier account's directory and are rewritten when ownership drift is repaired.
type Client struct {
	ID              string    `json:"id" bson:"_id" db:"id"`
	UserID          string    `json:"user_id" bson:"user_id" db:"user_id"`
	FirstName       string    `json:"first_name" bson:"first_name" db:"first_name"`
	LastName        string    `json:"last_name" bson:"last_name" db:"last_name"`
	Phone           string    `json:"phone" bson:"phone" db:"phone"`
	ContactRef      string    `json:"contact_ref" bson:"contact_ref" db:"contact_ref"`
	CounterpartyRef string    `json:"counterparty_ref" bson:"counterparty_ref" db:"counterparty_ref"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at" db:"created_at"`

	// Populated on list responses
	Locations []ClientLocation `json:"locations,omitempty" bson:"-"`
}

// HasRemoteRefs reports whether the client was provisioned in the courier directory.
func (c *Client) HasRemoteRefs() bool {
	return c.CounterpartyRef != "" && c.ContactRef != ""
}
