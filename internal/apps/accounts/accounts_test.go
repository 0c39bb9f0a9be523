package accounts_test

import (
	"net/http"
	"testing"

	"github.com/loopflow/cadenza/internal/apptest"
	"github.com/loopflow/cadenza/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetTeacherCreatesStub(t *testing.T) {
	env := apptest.New(t)
	student := env.User("student@example.com", nil)

	resp := env.Do(http.MethodPost, "/users/set-teacher?teacher_email=teacher@example.com", student, nil)
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))

	var teacher models.User
	require.NoError(t, env.DB.Where("email = ?", "teacher@example.com").First(&teacher).Error)
	assert.True(t, teacher.IsStub())

	var reloaded models.User
	require.NoError(t, env.DB.First(&reloaded, "id = ?", student.ID).Error)
	require.NotNil(t, reloaded.TeacherID)
	assert.Equal(t, teacher.ID, *reloaded.TeacherID)
}

func TestSetTeacherLinksExistingUser(t *testing.T) {
	env := apptest.New(t)
	teacher := env.User("teacher@example.com", nil)
	student := env.User("student@example.com", nil)

	resp := env.Do(http.MethodPost, "/users/set-teacher", student, map[string]string{"teacher_email": teacher.Email})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))

	var count int64
	env.DB.Model(&models.User{}).Where("email = ?", teacher.Email).Count(&count)
	assert.Equal(t, int64(1), count)

	resp = env.Do(http.MethodGet, "/users/my-teacher", student, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	var got models.User
	resp.Decode(t, &got)
	assert.Equal(t, teacher.ID, got.ID)
}

func TestSetTeacherRejectsInvalidAndSelf(t *testing.T) {
	env := apptest.New(t)
	student := env.User("student@example.com", nil)

	resp := env.Do(http.MethodPost, "/users/set-teacher?teacher_email=not-an-email", student, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = env.Do(http.MethodPost, "/users/set-teacher?teacher_email=student@example.com", student, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Cannot set yourself as teacher", resp.Error(t).Message)
}

func TestRemoveTeacher(t *testing.T) {
	env := apptest.New(t)
	teacher := env.User("teacher@example.com", nil)
	student := env.User("student@example.com", teacher)

	resp := env.Do(http.MethodDelete, "/users/remove-teacher", student, nil)
	require.Equal(t, http.StatusOK, resp.Status)

	resp = env.Do(http.MethodGet, "/users/my-teacher", student, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "null", string(resp.Body))
}

func TestMyStudents(t *testing.T) {
	env := apptest.New(t)
	teacher := env.User("teacher@example.com", nil)
	first := env.User("a@example.com", teacher)
	second := env.User("b@example.com", teacher)
	env.User("other@example.com", nil)

	resp := env.Do(http.MethodGet, "/users/my-students", teacher, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	var students []models.User
	resp.Decode(t, &students)
	require.Len(t, students, 2)
	ids := []interface{}{students[0].ID, students[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}

func TestAccountsRequireAuthentication(t *testing.T) {
	env := apptest.New(t)
	resp := env.Do(http.MethodGet, "/users/my-students", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, "Authentication failed", resp.Error(t).Message)
}
