package models

import "time"

// Sender is a sender counterparty at a particular city and branch. Several rows
// may share SenderRef.
type Sender struct {
	ID                string     `json:"id" bson:"_id" db:"id"`
	UserID            string     `json:"user_id" bson:"user_id" db:"user_id"`
	Name              string     `json:"name" bson:"name" db:"name"`
	Phone             string     `json:"phone" bson:"phone" db:"phone"`
	CityName          string     `json:"city_name" bson:"city_name" db:"city_name"`
	CityRef           string     `json:"city_ref" bson:"city_ref" db:"city_ref"`
	SenderRef         string     `json:"sender_ref" bson:"sender_ref" db:"sender_ref"`
	SenderAddressRef  string     `json:"sender_address_ref" bson:"sender_address_ref" db:"sender_address_ref"`
	SenderAddressName string     `json:"sender_address_name" bson:"sender_address_name" db:"sender_address_name"`
	ContactSenderRef  string     `json:"contact_sender_ref" bson:"contact_sender_ref" db:"contact_sender_ref"`
	CreatedAt         time.Time  `json:"created_at" bson:"created_at" db:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at" bson:"updated_at" db:"updated_at"`
}
