package models

import "time"

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Beacon is an emergency location event. ContactsNotified holds the ids of
// the contacts registered when it was triggered.
type Beacon struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	TriggeredAt      time.Time `json:"triggeredAt"`
	ContactsNotified []string  `json:"contactsNotified"`
}
