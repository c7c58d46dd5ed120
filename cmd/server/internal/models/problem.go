package models

import (
	"github.com/google/uuid"

	"github.com/codearena/judge-api/internal/types"
)

type Problem struct {
	Title         string
	ScoringMethod types.ScoringMethod `gorm:"type:text;default:STANDARD"`
	Model
	Point float64
}

func (Problem) TableName() string {
	return "problem"
}

func (p Problem) GetID() uuid.UUID {
	return p.ID
}
