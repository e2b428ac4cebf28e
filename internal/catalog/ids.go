package catalog

import "github.com/google/uuid"

// NewID returns a time-ordered UUIDv7, falling back to a random v4.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
