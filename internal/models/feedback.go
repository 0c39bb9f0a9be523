package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VideoSubmission struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	ExerciseID      *uuid.UUID `gorm:"type:uuid" json:"exercise_id"`
	PieceID         *uuid.UUID `gorm:"type:uuid" json:"piece_id"`
	SessionID       *uuid.UUID `gorm:"type:uuid" json:"session_id"`
	S3Key           string     `gorm:"column:s3_key;not null;size:512" json:"s3_key"`
	ThumbnailS3Key  *string    `gorm:"column:thumbnail_s3_key;size:512" json:"thumbnail_s3_key"`
	DurationSeconds int        `gorm:"not null" json:"duration_seconds"`
	Notes           *string    `gorm:"type:text" json:"notes"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	ReviewedByID    *uuid.UUID `gorm:"type:uuid" json:"reviewed_by_id"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (v *VideoSubmission) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

type Message struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubmissionID         uuid.UUID `gorm:"type:uuid;not null;index" json:"submission_id"`
	SenderID             uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	Text                 *string   `gorm:"type:text" json:"text"`
	VideoS3Key           *string   `gorm:"column:video_s3_key;size:512" json:"video_s3_key"`
	VideoDurationSeconds *int      `json:"video_duration_seconds"`
	ThumbnailS3Key       *string   `gorm:"column:thumbnail_s3_key;size:512" json:"thumbnail_s3_key"`
	CreatedAt            time.Time `json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
