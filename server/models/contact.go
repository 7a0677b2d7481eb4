package models

import "time"

type Contact struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Email        *string   `json:"email"`
	Relationship *string   `json:"relationship"`
	CreatedAt    time.Time `json:"createdAt"`
}
