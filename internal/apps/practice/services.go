package practice

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/loopflow/cadenza/internal/apperr"
	"github.com/loopflow/cadenza/internal/apps"
	"github.com/loopflow/cadenza/internal/models"
	"github.com/loopflow/cadenza/internal/policy"
	"gorm.io/gorm"
)

var (
	ErrSessionNotFound  = apperr.NotFound("Session not found")
	ErrRoutineNotFound  = apperr.NotFound("Routine not found")
	ErrExerciseNotFound = apperr.NotFound("Exercise not found")
	ErrRoutineMismatch  = apperr.Conflict("Exercise does not belong to session's routine")
)

const calendarDateFormat = "2006-01-02"

type PracticeService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPracticeService(deps apps.Deps) *PracticeService {
	return &PracticeService{db: deps.DB, now: deps.Clock()}
}

func (s *PracticeService) Start(user *models.User, routineID uuid.UUID) (*models.PracticeSession, error) {
	var routine models.Routine
	err := s.db.First(&routine, "id = ?", routineID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoutineNotFound
	}
	if err != nil {
		return nil, err
	}
	if !policy.OwnsRoutine(user, &routine) {
		return nil, apperr.Forbidden("Not authorized to practice this routine")
	}

	session := models.PracticeSession{
		UserID:    user.ID,
		RoutineID: routine.ID,
		StartedAt: s.now(),
	}
	if err := s.db.Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *PracticeService) owned(user *models.User, id uuid.UUID, denied string) (*models.PracticeSession, error) {
	var session models.PracticeSession
	err := s.db.First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if !policy.OwnsSession(user, &session) {
		return nil, apperr.Forbidden(denied)
	}
	return &session, nil
}

// Duration returns whole seconds between start and completion, both in UTC.
func Duration(started, completed time.Time) int {
	return int(completed.UTC().Sub(started.UTC()) / time.Second)
}

func (s *PracticeService) Complete(user *models.User, id uuid.UUID) (*models.PracticeSession, error) {
	session, err := s.owned(user, id, "Not authorized to complete this session")
	if err != nil {
		return nil, err
	}

	completed := s.now()
	duration := Duration(session.StartedAt, completed)
	err = s.db.Model(session).Updates(map[string]interface{}{
		"completed_at":     completed,
		"duration_seconds": duration,
	}).Error
	if err != nil {
		return nil, err
	}
	session.CompletedAt = &completed
	session.DurationSeconds = &duration
	return session, nil
}

// sessionExercise checks that the exercise exists and belongs to the
// session's routine.
func (s *PracticeService) sessionExercise(session *models.PracticeSession, exerciseID uuid.UUID) (*models.Exercise, error) {
	var exercise models.Exercise
	err := s.db.First(&exercise, "id = ?", exerciseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrExerciseNotFound
	}
	if err != nil {
		return nil, err
	}
	if !policy.ExerciseInRoutine(&exercise, session.RoutineID) {
		return nil, ErrRoutineMismatch
	}
	return &exercise, nil
}

// CompleteExercise upserts the (session, exercise) row, stamping completed_at
// and overwriting only the fields present in the request. A present null
// clears the stored value.
func (s *PracticeService) CompleteExercise(user *models.User, sessionID, exerciseID uuid.UUID, req CompleteExerciseRequest) (*models.ExerciseSession, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	session, err := s.owned(user, sessionID, "Not authorized to modify this session")
	if err != nil {
		return nil, err
	}
	exercise, err := s.sessionExercise(session, exerciseID)
	if err != nil {
		return nil, err
	}
	return s.upsert(session.ID, exercise.ID, func(row *models.ExerciseSession) {
		now := s.now()
		row.CompletedAt = &now
		if req.ActualTimeSeconds.Present {
			row.ActualTimeSeconds = req.ActualTimeSeconds.Value
		}
		if req.Reflections.Present {
			row.Reflections = req.Reflections.Value
		}
	})
}

// ToggleExercise completes like CompleteExercise, or clears the completion
// fields when is_complete is false.
func (s *PracticeService) ToggleExercise(user *models.User, sessionID, exerciseID uuid.UUID, req ToggleExerciseRequest) (*models.ExerciseSession, error) {
	if req.IsComplete != nil && *req.IsComplete {
		return s.CompleteExercise(user, sessionID, exerciseID, CompleteExerciseRequest{
			ActualTimeSeconds: req.ActualTimeSeconds,
			Reflections:       req.Reflections,
		})
	}

	session, err := s.owned(user, sessionID, "Not authorized to modify this session")
	if err != nil {
		return nil, err
	}
	exercise, err := s.sessionExercise(session, exerciseID)
	if err != nil {
		return nil, err
	}
	return s.upsert(session.ID, exercise.ID, func(row *models.ExerciseSession) {
		row.CompletedAt = nil
		row.ActualTimeSeconds = nil
		row.Reflections = nil
	})
}

func (s *PracticeService) upsert(sessionID, exerciseID uuid.UUID, apply func(*models.ExerciseSession)) (*models.ExerciseSession, error) {
	var row models.ExerciseSession
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("session_id = ? AND exercise_id = ?", sessionID, exerciseID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.ExerciseSession{SessionID: sessionID, ExerciseID: exerciseID}
			apply(&row)
			return tx.Create(&row).Error
		}
		if err != nil {
			return err
		}
		apply(&row)
		return tx.Model(&models.ExerciseSession{}).Where("id = ?", row.ID).Updates(map[string]interface{}{
			"completed_at":        row.CompletedAt,
			"actual_time_seconds": row.ActualTimeSeconds,
			"reflections":         row.Reflections,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *PracticeService) List(user *models.User) ([]models.PracticeSession, error) {
	sessions := []models.PracticeSession{}
	err := s.db.Where("user_id = ?", user.ID).Order("started_at DESC").Find(&sessions).Error
	return sessions, err
}

func (s *PracticeService) Get(user *models.User, id uuid.UUID) (*SessionDetail, error) {
	session, err := s.owned(user, id, "Not authorized to view this session")
	if err != nil {
		return nil, err
	}
	rows := []models.ExerciseSession{}
	if err := s.db.Where("session_id = ?", session.ID).Order("completed_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return &SessionDetail{Session: session, ExerciseSessions: rows}, nil
}

func (s *PracticeService) completed(user *models.User) ([]models.PracticeSession, error) {
	sessions := []models.PracticeSession{}
	err := s.db.Where("user_id = ? AND completed_at IS NOT NULL", user.ID).
		Order("completed_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// Calendar counts completed sessions per UTC day, oldest day first.
func (s *PracticeService) Calendar(user *models.User) ([]CalendarDay, error) {
	sessions, err := s.completed(user)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, session := range sessions {
		counts[session.CompletedAt.UTC().Format(calendarDateFormat)]++
	}
	days := make([]CalendarDay, 0, len(counts))
	for date, n := range counts {
		days = append(days, CalendarDay{Date: date, SessionCount: n})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days, nil
}

func (s *PracticeService) Completions(user *models.User) ([]Completion, error) {
	sessions, err := s.completed(user)
	if err != nil {
		return nil, err
	}
	completions := make([]Completion, 0, len(sessions))
	for _, session := range sessions {
		completions = append(completions, Completion{CompletedAt: session.CompletedAt.UTC()})
	}
	return completions, nil
}
