package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Routine struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID             uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title               string     `gorm:"not null;size:255" json:"title"`
	Description         *string    `gorm:"type:text" json:"description"`
	AssignedByID        *uuid.UUID `gorm:"type:uuid" json:"assigned_by_id"`
	AssignedAt          *time.Time `json:"assigned_at"`
	SharedFromRoutineID *uuid.UUID `gorm:"type:uuid" json:"shared_from_routine_id"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (r *Routine) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type Exercise struct {
	ID                     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RoutineID              uuid.UUID `gorm:"type:uuid;not null;index" json:"routine_id"`
	PieceID                uuid.UUID `gorm:"type:uuid;not null;index" json:"piece_id"`
	OrderIndex             int       `gorm:"not null" json:"order_index"`
	RecommendedTimeSeconds *int      `json:"recommended_time_seconds"`
	Intentions             *string   `gorm:"type:text" json:"intentions"`
	StartPage              *int      `json:"start_page"`
}

func (e *Exercise) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// RoutineAssignment is the single active routine slot of a student.
type RoutineAssignment struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"student_id"`
	RoutineID    uuid.UUID `gorm:"type:uuid;not null" json:"routine_id"`
	AssignedByID uuid.UUID `gorm:"type:uuid;not null" json:"assigned_by_id"`
	AssignedAt   time.Time `gorm:"not null" json:"assigned_at"`
}

func (a *RoutineAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
