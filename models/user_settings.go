package models

import "time"

type UserSettings struct {
	UserID           string    `json:"user_id" bson:"_id" db:"user_id"`
	NovaPoshtaAPIKey string    `json:"-" bson:"nova_poshta_api_key" db:"nova_poshta_api_key"`
	UpdatedAt        time.Time `json:"updated_at" bson:"updated_at" db:"updated_at"`
}
