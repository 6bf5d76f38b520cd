package db

import (
	"encoding/json"
	"time"
)

// Run is one recorded optimisation
type Run struct {
	ID          string
	CreatedAt   time.Time
	Signature   string
	Backend     string
	WorkerCount int
	PostCount   int
	HourCount   int
	IsOptim     bool
	Status      string
	Objective   float64
	DurationMS  int64
	Result      json.RawMessage // posts x hours x workers booleans
}
