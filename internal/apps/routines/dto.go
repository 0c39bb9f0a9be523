package routines

import (
	"github.com/google/uuid"
	"github.com/loopflow/cadenza/internal/models"
)

type RoutineRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description"`
}

type CreateExerciseRequest struct {
	PieceID                uuid.UUID `json:"piece_id" validate:"required"`
	OrderIndex             *int      `json:"order_index" validate:"omitempty,gte=0"`
	RecommendedTimeSeconds *int      `json:"recommended_time_seconds" validate:"omitempty,gte=0"`
	Intentions             *string   `json:"intentions"`
	StartPage              *int      `json:"start_page" validate:"omitempty,gte=1"`
}

// UpdateExerciseRequest changes only the fields that are present.
type UpdateExerciseRequest struct {
	OrderIndex             *int    `json:"order_index" validate:"omitempty,gte=0"`
	RecommendedTimeSeconds *int    `json:"recommended_time_seconds" validate:"omitempty,gte=0"`
	Intentions             *string `json:"intentions"`
	StartPage              *int    `json:"start_page" validate:"omitempty,gte=1"`
}

type ReorderRequest struct {
	ExerciseIDs []uuid.UUID `json:"exercise_ids" validate:"required"`
}

type AssignRequest struct {
	RoutineID string `json:"routine_id" query:"routine_id" validate:"required"`
}

type RoutineDetail struct {
	Routine   *models.Routine   `json:"routine"`
	Exercises []models.Exercise `json:"exercises"`
}

type AssignResponse struct {
	Message      string          `json:"message"`
	Routine      *models.Routine `json:"routine"`
	PiecesShared int             `json:"pieces_shared"`
}

type CurrentRoutineResponse struct {
	Assignment *models.RoutineAssignment `json:"assignment"`
	Routine    *models.Routine           `json:"routine"`
	Exercises  []models.Exercise         `json:"exercises"`
}
