package models

// Restaurant is a row of ri_restaurants.
type Restaurant struct {
	ID           int64  `db:"id" json:"id"`
	Name         string `db:"name" json:"name" validate:"notblank"`
	FacilityType string `db:"facility_type" json:"facility_type"`
	Address      string `db:"address" json:"address" validate:"notblank"`
	City         string `db:"city" json:"city"`
	State        string `db:"state" json:"state" validate:"notblank"`
	Zip          string `db:"zip" json:"zip" validate:"notblank"`
	Location     Point  `db:"location" json:"location"`
	Clean        bool   `db:"clean" json:"clean"`
}

// RestaurantDetail is a restaurant together with the inspections that reference it.
type RestaurantDetail struct {
	Restaurant
	Inspections []Inspection `json:"inspections"`
}
