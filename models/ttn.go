package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const TTNStatusNew = "new"

// TTN is an issued shipment document.
type TTN struct {
	ID               string          `json:"id" bson:"_id" db:"id"`
	UserID           string          `json:"user_id" bson:"user_id" db:"user_id"`
	ClientID         string          `json:"client_id" bson:"client_id" db:"client_id"`
	ClientLocationID *string         `json:"client_location_id,omitempty" bson:"client_location_id,omitempty" db:"client_location_id"`
	SenderID         string          `json:"sender_id" bson:"sender_id" db:"sender_id"`
	Description      string          `json:"description" bson:"description" db:"description"`
	Cost             decimal.Decimal `json:"cost" bson:"cost" db:"cost"`
	Status           string          `json:"status" bson:"status" db:"status"` // new
	NovaPoshtaRef    string          `json:"nova_poshta_ref" bson:"nova_poshta_ref" db:"nova_poshta_ref"`
	NovaPoshtaNumber string          `json:"nova_poshta_number" bson:"nova_poshta_number" db:"nova_poshta_number"`
	CreatedAt        time.Time       `json:"created_at" bson:"created_at" db:"created_at"`
}
