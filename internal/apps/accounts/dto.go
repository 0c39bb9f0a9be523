package accounts

import "github.com/loopflow/cadenza/internal/models"

type SetTeacherRequest struct {
	TeacherEmail string `query:"teacher_email" json:"teacher_email" validate:"required,email"`
}

type SetTeacherResponse struct {
	Message string       `json:"message"`
	Teacher *models.User `json:"teacher"`
}
