package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DevAppleIDPrefix marks users created through the development login.
const DevAppleIDPrefix = "dev_"

// User is a teacher or student. A user has at most one teacher; students are
// the users whose TeacherID points back at a teacher.
type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AppleUserID *string    `gorm:"size:255;uniqueIndex" json:"-"`
	Email       string     `gorm:"not null;size:255;index" json:"email"`
	FullName    *string    `gorm:"size:255" json:"full_name"`
	UserType    *string    `gorm:"size:20" json:"user_type"`
	TeacherID   *uuid.UUID `gorm:"type:uuid;index" json:"teacher_id"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsStub reports whether the user was created by reference and has never signed in.
func (u *User) IsStub() bool {
	return u.AppleUserID == nil
}

// IsDevUser reports whether the user came from the development login.
func (u *User) IsDevUser() bool {
	return u.AppleUserID != nil && strings.HasPrefix(*u.AppleUserID, DevAppleIDPrefix)
}
