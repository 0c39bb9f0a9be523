package routines

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/loopflow/cadenza/internal/apperr"
	"github.com/loopflow/cadenza/internal/apps"
	"github.com/loopflow/cadenza/internal/apps/accounts"
	"github.com/loopflow/cadenza/internal/apps/library"
	"github.com/loopflow/cadenza/internal/models"
	"github.com/loopflow/cadenza/internal/policy"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRoutineNotFound  = apperr.NotFound("Routine not found")
	ErrExerciseNotFound = apperr.NotFound("Exercise not found in this routine")
)

type RoutineService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRoutineService(deps apps.Deps) *RoutineService {
	return &RoutineService{db: deps.DB, now: deps.Clock()}
}

func (s *RoutineService) List(owner *models.User) ([]models.Routine, error) {
	routines := []models.Routine{}
	err := s.db.Where("owner_id = ?", owner.ID).Order("created_at ASC").Find(&routines).Error
	return routines, err
}

func (s *RoutineService) Create(owner *models.User, req RoutineRequest) (*models.Routine, error) {
	now := s.now()
	routine := models.Routine{
		OwnerID:     owner.ID,
		Title:       req.Title,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.Create(&routine).Error; err != nil {
		return nil, err
	}
	return &routine, nil
}

func loadRoutine(tx *gorm.DB, id uuid.UUID) (*models.Routine, error) {
	var routine models.Routine
	err := tx.First(&routine, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoutineNotFound
	}
	if err != nil {
		return nil, err
	}
	return &routine, nil
}

func (s *RoutineService) owned(user *models.User, id uuid.UUID, denied string) (*models.Routine, error) {
	routine, err := loadRoutine(s.db, id)
	if err != nil {
		return nil, err
	}
	if !policy.OwnsRoutine(user, routine) {
		return nil, apperr.Forbidden(denied)
	}
	return routine, nil
}

// orderedExercises returns a routine's exercises by ascending order_index.
func orderedExercises(tx *gorm.DB, routineID uuid.UUID) ([]models.Exercise, error) {
	exercises := []models.Exercise{}
	err := tx.Where("routine_id = ?", routineID).Order("order_index ASC").Order("id ASC").Find(&exercises).Error
	return exercises, err
}

func (s *RoutineService) Get(user *models.User, id uuid.UUID) (*RoutineDetail, error) {
	routine, err := s.owned(user, id, "Not authorized to view this routine")
	if err != nil {
		return nil, err
	}
	exercises, err := orderedExercises(s.db, routine.ID)
	if err != nil {
		return nil, err
	}
	return &RoutineDetail{Routine: routine, Exercises: exercises}, nil
}

func (s *RoutineService) Update(user *models.User, id uuid.UUID, req RoutineRequest) (*models.Routine, error) {
	routine, err := s.owned(user, id, "Not authorized to update this routine")
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.db.Model(routine).Updates(map[string]interface{}{
		"title":       req.Title,
		"description": req.Description,
		"updated_at":  now,
	}).Error
	if err != nil {
		return nil, err
	}
	routine.Title = req.Title
	routine.Description = req.Description
	routine.UpdatedAt = now
	return routine, nil
}

// Delete removes a routine with its exercises and any assignment slot that
// points at it.
func (s *RoutineService) Delete(user *models.User, id uuid.UUID) error {
	routine, err := s.owned(user, id, "Not authorized to delete this routine")
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("routine_id = ?", routine.ID).Delete(&models.Exercise{}).Error; err != nil {
			return err
		}
		if err := tx.Where("routine_id = ?", routine.ID).Delete(&models.RoutineAssignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(routine).Error
	})
}

func (s *RoutineService) touch(tx *gorm.DB, routine *models.Routine) error {
	now := s.now()
	if err := tx.Model(routine).Update("updated_at", now).Error; err != nil {
		return err
	}
	routine.UpdatedAt = now
	return nil
}

func (s *RoutineService) AddExercise(user *models.User, routineID uuid.UUID, req CreateExerciseRequest) (*models.Exercise, error) {
	routine, err := s.owned(user, routineID, "Not authorized to modify this routine")
	if err != nil {
		return nil, err
	}

	var piece models.Piece
	err = s.db.First(&piece, "id = ?", req.PieceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, library.ErrPieceNotFound
	}
	if err != nil {
		return nil, err
	}
	if !policy.OwnsPiece(user, &piece) {
		return nil, apperr.Forbidden("Not authorized to use this piece")
	}

	exercise := models.Exercise{
		RoutineID:              routine.ID,
		PieceID:                piece.ID,
		RecommendedTimeSeconds: req.RecommendedTimeSeconds,
		Intentions:             req.Intentions,
		StartPage:              req.StartPage,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if req.OrderIndex != nil {
			exercise.OrderIndex = *req.OrderIndex
		} else {
			var count int64
			if err := tx.Model(&models.Exercise{}).Where("routine_id = ?", routine.ID).Count(&count).Error; err != nil {
				return err
			}
			exercise.OrderIndex = int(count)
		}
		if err := tx.Create(&exercise).Error; err != nil {
			return err
		}
		return s.touch(tx, routine)
	})
	if err != nil {
		return nil, err
	}
	return &exercise, nil
}

func (s *RoutineService) exerciseIn(routine *models.Routine, exerciseID uuid.UUID) (*models.Exercise, error) {
	var exercise models.Exercise
	err := s.db.First(&exercise, "id = ?", exerciseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !policy.ExerciseInRoutine(&exercise, routine.ID)) {
		return nil, ErrExerciseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &exercise, nil
}

func (s *RoutineService) UpdateExercise(user *models.User, routineID, exerciseID uuid.UUID, req UpdateExerciseRequest) (*models.Exercise, error) {
	routine, err := s.owned(user, routineID, "Not authorized to modify this routine")
	if err != nil {
		return nil, err
	}
	exercise, err := s.exerciseIn(routine, exerciseID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.OrderIndex != nil {
		updates["order_index"] = *req.OrderIndex
		exercise.OrderIndex = *req.OrderIndex
	}
	if req.RecommendedTimeSeconds != nil {
		updates["recommended_time_seconds"] = *req.RecommendedTimeSeconds
		exercise.RecommendedTimeSeconds = req.RecommendedTimeSeconds
	}
	if req.Intentions != nil {
		updates["intentions"] = *req.Intentions
		exercise.Intentions = req.Intentions
	}
	if req.StartPage != nil {
		updates["start_page"] = *req.StartPage
		exercise.StartPage = req.StartPage
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.Exercise{}).Where("id = ?", exercise.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return s.touch(tx, routine)
	})
	if err != nil {
		return nil, err
	}
	return exercise, nil
}

func (s *RoutineService) DeleteExercise(user *models.User, routineID, exerciseID uuid.UUID) error {
	routine, err := s.owned(user, routineID, "Not authorized to modify this routine")
	if err != nil {
		return err
	}
	exercise, err := s.exerciseIn(routine, exerciseID)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(exercise).Error; err != nil {
			return err
		}
		return s.touch(tx, routine)
	})
}

// Reorder sets each listed exercise's order_index to its position. Every id is
// checked before anything is written.
func (s *RoutineService) Reorder(user *models.User, routineID uuid.UUID, ids []uuid.UUID) error {
	routine, err := s.owned(user, routineID, "Not authorized to modify this routine")
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		exercises, err := orderedExercises(tx, routine.ID)
		if err != nil {
			return err
		}
		members := make(map[uuid.UUID]bool, len(exercises))
		for _, e := range exercises {
			members[e.ID] = true
		}

		seen := make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				return apperr.Validation(fmt.Sprintf("Exercise %s listed more than once", id))
			}
			seen[id] = true
			if !members[id] {
				return apperr.Conflict(fmt.Sprintf("Exercise %s not found in routine", id))
			}
		}

		for i, id := range ids {
			if err := tx.Model(&models.Exercise{}).Where("id = ?", id).Update("order_index", i).Error; err != nil {
				return err
			}
		}
		return s.touch(tx, routine)
	})
}

// Assign deep-copies one of the teacher's routines into a student's account,
// reusing the student's existing copies of the referenced pieces, and makes it
// the student's single assigned routine. Concurrent assignments to the same
// student serialise on the student row; the last one wins.
func (s *RoutineService) Assign(teacher *models.User, studentID, routineID uuid.UUID) (*AssignResponse, error) {
	if _, err := accounts.StudentOf(s.db, teacher, studentID, "Not authorized to assign routines to this student"); err != nil {
		return nil, err
	}
	source, err := s.owned(teacher, routineID, "Not authorized to assign this routine")
	if err != nil {
		return nil, err
	}

	var copied models.Routine
	piecesShared := 0
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var student models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&student, "id = ?", studentID).Error; err != nil {
			return err
		}
		if !policy.IsTeacherOf(teacher, &student) {
			return apperr.Forbidden("Not authorized to assign routines to this student")
		}

		exercises, err := orderedExercises(tx, source.ID)
		if err != nil {
			return err
		}

		now := s.now()
		sourceID := source.ID
		teacherID := teacher.ID
		copied = models.Routine{
			OwnerID:             student.ID,
			Title:               source.Title,
			Description:         source.Description,
			AssignedByID:        &teacherID,
			AssignedAt:          &now,
			SharedFromRoutineID: &sourceID,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := tx.Create(&copied).Error; err != nil {
			return err
		}

		resolved := map[uuid.UUID]uuid.UUID{}
		for _, src := range exercises {
			pieceID, ok := resolved[src.PieceID]
			if !ok {
				existing, err := library.FindCopy(tx, student.ID, src.PieceID)
				if err != nil {
					return err
				}
				if existing == nil {
					var piece models.Piece
					if err := tx.First(&piece, "id = ?", src.PieceID).Error; err != nil {
						return err
					}
					if existing, err = library.CopyPiece(tx, &piece, student.ID, now); err != nil {
						return err
					}
					piecesShared++
				}
				pieceID = existing.ID
				resolved[src.PieceID] = pieceID
			}

			exercise := models.Exercise{
				RoutineID:              copied.ID,
				PieceID:                pieceID,
				OrderIndex:             src.OrderIndex,
				RecommendedTimeSeconds: src.RecommendedTimeSeconds,
				Intentions:             src.Intentions,
				StartPage:              src.StartPage,
			}
			if err := tx.Create(&exercise).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("student_id = ?", student.ID).Delete(&models.RoutineAssignment{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.RoutineAssignment{
			StudentID:    student.ID,
			RoutineID:    copied.ID,
			AssignedByID: teacher.ID,
			AssignedAt:   now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	slog.Info("routine assigned",
		"routine_id", copied.ID,
		"source_routine_id", source.ID,
		"student_id", studentID,
		"pieces_shared", piecesShared,
	)
	return &AssignResponse{
		Message:      "Routine assigned successfully",
		Routine:      &copied,
		PiecesShared: piecesShared,
	}, nil
}

// CurrentRoutine returns the student's assigned routine, or nil.
func (s *RoutineService) CurrentRoutine(studentID uuid.UUID) (*CurrentRoutineResponse, error) {
	var assignment models.RoutineAssignment
	err := s.db.Where("student_id = ?", studentID).First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	routine, err := loadRoutine(s.db, assignment.RoutineID)
	if err != nil {
		return nil, err
	}
	exercises, err := orderedExercises(s.db, routine.ID)
	if err != nil {
		return nil, err
	}
	return &CurrentRoutineResponse{Assignment: &assignment, Routine: routine, Exercises: exercises}, nil
}

func (s *RoutineService) StudentCurrentRoutine(teacher *models.User, studentID uuid.UUID) (*CurrentRoutineResponse, error) {
	if _, err := accounts.StudentOf(s.db, teacher, studentID, "Not authorized to view this student's routine"); err != nil {
		return nil, err
	}
	return s.CurrentRoutine(studentID)
}
