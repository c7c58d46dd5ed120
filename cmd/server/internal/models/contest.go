package models

import (
	"time"

	"github.com/google/uuid"
)

type Contest struct {
	StartTime time.Time
	EndTime   time.Time
	Title     string
	Model
	// seconds added per wrong attempt before a solve
	Penalty int64
}

func (Contest) TableName() string {
	return "contest"
}

func (c Contest) GetID() uuid.UUID {
	return c.ID
}
