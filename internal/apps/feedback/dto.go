package feedback

import (
	"github.com/google/uuid"
	"github.com/loopflow/cadenza/internal/models"
)

type CreateSubmissionRequest struct {
	ExerciseID      *uuid.UUID `json:"exercise_id"`
	PieceID         *uuid.UUID `json:"piece_id"`
	SessionID       *uuid.UUID `json:"session_id"`
	DurationSeconds int        `json:"duration_seconds" validate:"gte=0"`
	Notes           *string    `json:"notes"`
}

type CreateMessageRequest struct {
	Text                 *string `json:"text"`
	IncludeVideo         bool    `json:"include_video"`
	VideoDurationSeconds *int    `json:"video_duration_seconds" validate:"omitempty,gte=0"`
}

// SubmissionFilter narrows submission listings. Nil fields match everything.
type SubmissionFilter struct {
	PieceID       *uuid.UUID
	ExerciseID    *uuid.UUID
	PendingReview bool
}

type SubmissionResponse struct {
	Submission         *models.VideoSubmission `json:"submission"`
	UploadURL          string                  `json:"upload_url"`
	ThumbnailUploadURL string                  `json:"thumbnail_upload_url"`
	ExpiresIn          int                     `json:"expires_in"`
}

type UploadURLResponse struct {
	UploadURL          string `json:"upload_url"`
	ThumbnailUploadURL string `json:"thumbnail_upload_url"`
	ExpiresIn          int    `json:"expires_in"`
}

type VideoURLResponse struct {
	VideoURL     string  `json:"video_url"`
	ThumbnailURL *string `json:"thumbnail_url"`
	ExpiresIn    int     `json:"expires_in"`
}

type MessageResponse struct {
	Message            *models.Message `json:"message"`
	UploadURL          *string         `json:"upload_url,omitempty"`
	ThumbnailUploadURL *string         `json:"thumbnail_upload_url,omitempty"`
	ExpiresIn          *int            `json:"expires_in,omitempty"`
}
