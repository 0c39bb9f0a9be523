package practice

import (
	"encoding/json"
	"time"

	"github.com/loopflow/cadenza/internal/apperr"
	"github.com/loopflow/cadenza/internal/models"
)

type StartSessionRequest struct {
	RoutineID string `json:"routine_id" query:"routine_id" validate:"required"`
}

// Optional is a JSON field that remembers whether it appeared in the body.
// An explicit null sets Present with a nil Value.
type Optional[T any] struct {
	Present bool
	Value   *T
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Present: true, Value: &v}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type CompleteExerciseRequest struct {
	ActualTimeSeconds Optional[int]    `json:"actual_time_seconds"`
	Reflections       Optional[string] `json:"reflections"`
}

func (r CompleteExerciseRequest) validate() error {
	if v := r.ActualTimeSeconds.Value; v != nil && *v < 0 {
		return apperr.Validation("actual_time_seconds must be greater than or equal to 0")
	}
	return nil
}

type ToggleExerciseRequest struct {
	IsComplete        *bool            `json:"is_complete" validate:"required"`
	ActualTimeSeconds Optional[int]    `json:"actual_time_seconds"`
	Reflections       Optional[string] `json:"reflections"`
}

type SessionDetail struct {
	Session          *models.PracticeSession  `json:"session"`
	ExerciseSessions []models.ExerciseSession `json:"exercise_sessions"`
}

type CalendarDay struct {
	Date         string `json:"date"`
	SessionCount int    `json:"session_count"`
}

type Completion struct {
	CompletedAt time.Time `json:"completed_at"`
}
