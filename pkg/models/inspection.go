package models

import "time"

// Inspection is a row of ri_inspections. RestaurantID is rewritten by
// foreign-key propagation once the restaurant is folded into a primary.
type Inspection struct {
	ID             int64     `db:"id" json:"id"`
	Risk           string    `db:"risk" json:"risk"`
	InspectionDate time.Time `db:"inspection_date" json:"inspection_date"`
	InspectionType string    `db:"inspection_type" json:"inspection_type"`
	Results        string    `db:"results" json:"results"`
	Violations     string    `db:"violations" json:"violations"`
	RestaurantID   int64     `db:"restaurant_id" json:"restaurant_id"`
}
