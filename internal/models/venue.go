package models

import "time"

// Venue represents a physical location where advisory sessions take place.
type Venue struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Location  string    `db:"location" json:"location"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// VenueFilter captures filters for listing venues.
type VenueFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
