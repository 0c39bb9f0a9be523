package accounts

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/loopflow/cadenza/internal/apperr"
	"github.com/loopflow/cadenza/internal/models"
	"github.com/loopflow/cadenza/internal/policy"
	"gorm.io/gorm"
)

var (
	ErrInvalidEmail    = apperr.BadRequest("Invalid email address")
	ErrSelfTeacher     = apperr.BadRequest("Cannot set yourself as teacher")
	ErrStudentNotFound = apperr.NotFound("Student not found")
)

type AccountService struct {
	db *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{db: db}
}

// SetTeacher links student to the user with teacherEmail, creating a stub
// user when nobody has signed in with that email yet.
func (s *AccountService) SetTeacher(student *models.User, teacherEmail string) (*models.User, error) {
	teacherEmail = strings.TrimSpace(teacherEmail)
	if teacherEmail == "" || !strings.Contains(teacherEmail, "@") {
		return nil, ErrInvalidEmail
	}
	if strings.EqualFold(teacherEmail, student.Email) {
		return nil, ErrSelfTeacher
	}

	var teacher models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", teacherEmail).First(&teacher).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			teacher = models.User{Email: teacherEmail}
			err = tx.Create(&teacher).Error
		}
		if err != nil {
			return err
		}
		if teacher.ID == student.ID {
			return ErrSelfTeacher
		}
		return tx.Model(student).Update("teacher_id", teacher.ID).Error
	})
	if err != nil {
		return nil, err
	}

	student.TeacherID = &teacher.ID
	return &teacher, nil
}

func (s *AccountService) RemoveTeacher(student *models.User) error {
	if err := s.db.Model(student).Update("teacher_id", nil).Error; err != nil {
		return err
	}
	student.TeacherID = nil
	return nil
}

// MyTeacher returns the user's teacher, or nil when none is set.
func (s *AccountService) MyTeacher(user *models.User) (*models.User, error) {
	if user.TeacherID == nil {
		return nil, nil
	}
	var teacher models.User
	err := s.db.First(&teacher, "id = ?", *user.TeacherID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &teacher, nil
}

func (s *AccountService) MyStudents(teacher *models.User) ([]models.User, error) {
	students := []models.User{}
	err := s.db.Where("teacher_id = ?", teacher.ID).Order("created_at ASC").Find(&students).Error
	return students, err
}

// StudentOf loads studentID and checks that teacher is their teacher. denied
// is the message reported when they are not.
func StudentOf(db *gorm.DB, teacher *models.User, studentID uuid.UUID, denied string) (*models.User, error) {
	var student models.User
	err := db.First(&student, "id = ?", studentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, err
	}
	if !policy.IsTeacherOf(teacher, &student) {
		return nil, apperr.Forbidden(denied)
	}
	return &student, nil
}
