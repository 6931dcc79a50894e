// Package uuid issues analysis run identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator issues UUID v7 run ids. They sort by creation time, so cached and published
// records can be ordered by id alone.
type Generator struct{}

// NewUUIDGenerator returns a run id generator.
func NewUUIDGenerator() Generator {
	return Generator{}
}

// NewID returns a fresh run id.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("new run id: %w", err)
	}
	return id.String(), nil
}
