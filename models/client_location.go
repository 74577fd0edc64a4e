package models

import "time"

// ClientLocation is a delivery destination (city + branch office) of a client.
type ClientLocation struct {
	ID            string    `json:"id" bson:"_id" db:"id"`
	ClientID      string    `json:"client_id" bson:"client_id" db:"client_id"`
	CityName      string    `json:"city_name" bson:"city_name" db:"city_name"`
	CityRef       string    `json:"city_ref" bson:"city_ref" db:"city_ref"`
	WarehouseName string    `json:"warehouse_name" bson:"warehouse_name" db:"warehouse_name"`
	WarehouseRef  string    `json:"warehouse_ref" bson:"warehouse_ref" db:"warehouse_ref"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at" db:"created_at"`
}

// DedupKey identifies a location regardless of its row id.
func (l ClientLocation) DedupKey() string {
	return l.ClientID + "|" + l.CityRef + "|" + l.WarehouseRef
}
