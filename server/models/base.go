package models

import (
	"time"

	"github.com/google/uuid"
)

// Owner is the authenticated identity every record is scoped to.
type Owner struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// NewID returns a time-ordered unique identifier.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

// Now is the clock used for record timestamps.
var Now = func() time.Time {
	return time.Now().UTC()
}
