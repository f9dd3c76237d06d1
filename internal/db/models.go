package db

import (
	"time"

	"github.com/google/uuid"
)

// Import records one run of copying a dataset into the tracks table.
type Import struct {
	ID         uuid.UUID
	Source     string
	Rows       int
	StartedAt  time.Time
	FinishedAt time.Time
}
