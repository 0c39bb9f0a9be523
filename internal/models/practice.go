package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PracticeSession struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	RoutineID       uuid.UUID  `gorm:"type:uuid;not null" json:"routine_id"`
	StartedAt       time.Time  `gorm:"not null" json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	DurationSeconds *int       `json:"duration_seconds"`
}

func (s *PracticeSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ExerciseSession is unique per (session, exercise). An incomplete row has all
// three completion fields cleared.
type ExerciseSession struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_exercise_sessions_pair" json:"session_id"`
	ExerciseID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_exercise_sessions_pair" json:"exercise_id"`
	CompletedAt       *time.Time `json:"completed_at"`
	ActualTimeSeconds *int       `json:"actual_time_seconds"`
	Reflections       *string    `gorm:"type:text" json:"reflections"`
}

func (s *ExerciseSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
