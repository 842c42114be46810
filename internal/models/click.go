package models

import (
	"fmt"
	"time"
)

// Click is one emergency click: a single location fix and its capture time.
type Click struct {
	// ID is the unique identifier for the click (UUID format).
	ID string

	// UserEmail identifies who pressed the button.
	UserEmail string

	Latitude  float64
	Longitude float64

	// CapturedAt is the local time the fix was taken.
	CapturedAt time.Time
}

// LocationText renders the coordinates the way the home screen shows them.
func (c Click) LocationText() string {
	return fmt.Sprintf("Lat: %.4f, Lon: %.4f", c.Latitude, c.Longitude)
}
