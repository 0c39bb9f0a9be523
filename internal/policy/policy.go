// Package policy holds the authorization predicates shared by every feature.
// They operate on rows that are already loaded and never touch the database.
package policy

import (
	"github.com/google/uuid"

	"github.com/loopflow/cadenza/internal/models"
)

func OwnsPiece(user *models.User, piece *models.Piece) bool {
	return user != nil && piece != nil && piece.OwnerID == user.ID
}

func OwnsRoutine(user *models.User, routine *models.Routine) bool {
	return user != nil && routine != nil && routine.OwnerID == user.ID
}

func OwnsSession(user *models.User, session *models.PracticeSession) bool {
	return user != nil && session != nil && session.UserID == user.ID
}

func OwnsSubmission(user *models.User, submission *models.VideoSubmission) bool {
	return user != nil && submission != nil && submission.UserID == user.ID
}

// IsTeacherOf reports whether teacher is student's teacher.
func IsTeacherOf(teacher, student *models.User) bool {
	return teacher != nil && student != nil && student.TeacherID != nil && *student.TeacherID == teacher.ID
}

// IsSubmissionParticipant reports whether user is the submitter or the
// submitter's teacher. owner is the submitting user.
func IsSubmissionParticipant(user, owner *models.User, submission *models.VideoSubmission) bool {
	if OwnsSubmission(user, submission) {
		return true
	}
	return owner != nil && submission != nil && owner.ID == submission.UserID && IsTeacherOf(user, owner)
}

// ExerciseInRoutine reports whether exercise belongs to routineID.
func ExerciseInRoutine(exercise *models.Exercise, routineID uuid.UUID) bool {
	return exercise != nil && exercise.RoutineID == routineID
}
