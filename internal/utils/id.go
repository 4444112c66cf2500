package utils

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewID returns a random session identifier.
func NewID() string {
	id, err := uuid.NewRandom()
	if err == nil {
		return id.String()
	}

	// Fallback to timestamp if the random source is unavailable.
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}

// ShortID returns the first block of an identifier, for log lines and tables.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
