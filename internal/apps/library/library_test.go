package library_test

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/loopflow/cadenza/internal/apps/library"
	"github.com/loopflow/cadenza/internal/apptest"
	"github.com/loopflow/cadenza/internal/models"
	"github.com/loopflow/cadenza/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdf = []byte("%PDF-1.4 test")

func uploadPiece(t *testing.T, env *apptest.Env, owner *models.User, title string) models.Piece {
	t.Helper()
	resp := env.Upload(http.MethodPost, "/pieces", owner, map[string]string{"title": title}, "pdf_file", "score.pdf", pdf)
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	var piece models.Piece
	resp.Decode(t, &piece)
	return piece
}

func TestCreatePieceUploadsObject(t *testing.T) {
	env := apptest.New(t)
	teacher := env.User("teacher@example.com", nil)

	piece := uploadPiece(t, env, teacher, "Etude")
	assert.Equal(t, teacher.ID, piece.OwnerID)
	assert.Equal(t, "score.pdf", piece.PDFFilename)
	require.NotNil(t, piece.S3Key)
	assert.Equal(t, fmt.Sprintf("dev/cadenza/pieces/%s.pdf", piece.ID), *piece.S3Key)

	obj, ok := env.Store.Get(*piece.S3Key)
	require.True(t, ok)
	assert.Equal(t, pdf, obj.Body)
	assert.Equal(t, storage.ContentTypePDF, obj.ContentType)
	assert.True(t, strings.HasPrefix(obj.Tagging, "expiry-date="))
}

func TestCreatePieceValidation(t *testing.T) {
	env := apptest.New(t)
	teacher := env.User("teacher@example.com", nil)

	resp := env.Upload(http.MethodPost, "/pieces", teacher, map[string]string{"title": "No file"}, "", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)

	resp = env.Upload(http.MethodPost, "/pieces", teacher, nil, "pdf_file", "score.pdf", pdf)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	assert.Equal(t, 0, env.Store.Len())
}

func TestCreatePieceStorageFailure(t *testing.T) {
	env := apptest.New(t)
	teacher := env.User("teacher@example.com", nil)
	env.Store.FailWith(errors.New("bucket offline"))

	resp := env.Upload(http.MethodPost, "/pieces", teacher, map[string]string{"title": "Etude"}, "pdf_file", "score.pdf", pdf)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)

	var count int64
	env.DB.Model(&models.Piece{}).Count(&count)
	assert.Zero(t, count)
}

func TestPieceOwnership(t *testing.T) {
	env := apptest.New(t)
	owner := env.User("owner@example.com", nil)
	other := env.User("other@example.com", nil)
	piece := uploadPiece(t, env, owner, "Etude")
	path := "/pieces/" + piece.ID.String()

	resp := env.Do(http.MethodPut, path+"?title=Stolen", other, nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "Not authorized to update this piece", resp.Error(t).Message)

	resp = env.Do(http.MethodDelete, path, other, nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)

	resp = env.Do(http.MethodGet, path+"/download-url", other, nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)

	resp = env.Do(http.MethodGet, "/pieces", other, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, "[]", string(resp.Body))
}

func TestUpdateAndDeletePiece(t *testing.T) {
	env := apptest.New(t)
	owner := env.User("owner@example.com", nil)
	piece := uploadPiece(t, env, owner, "Etude")
	path := "/pieces/" + piece.ID.String()

	resp := env.Do(http.MethodPut, path, owner, map[string]string{"title": "Nocturne"})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	var updated models.Piece
	resp.Decode(t, &updated)
	assert.Equal(t, "Nocturne", updated.Title)

	resp = env.Do(http.MethodDelete, path, owner, nil)
	require.Equal(t, http.StatusOK, resp.Status)

	resp = env.Do(http.MethodGet, path+"/download-url", owner, nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "Piece not found", resp.Error(t).Message)
}

func TestDeletePieceInUse(t *testing.T) {
	env := apptest.New(t)
	owner := env.User("owner@example.com", nil)
	piece := uploadPiece(t, env, owner, "Etude")

	routine := models.Routine{OwnerID: owner.ID, Title: "Warmup"}
	require.NoError(t, env.DB.Create(&routine).Error)
	require.NoError(t, env.DB.Create(&models.Exercise{RoutineID: routine.ID, PieceID: piece.ID}).Error)

	resp := env.Do(http.MethodDelete, "/pieces/"+piece.ID.String(), owner, nil)
	assert.Equal(t, http.StatusConflict, resp.Status)
}

func TestDownloadURL(t *testing.T) {
	env := apptest.New(t)
	owner := env.User("owner@example.com", nil)
	piece := uploadPiece(t, env, owner, "Etude")

	resp := env.Do(http.MethodGet, "/pieces/"+piece.ID.String()+"/download-url", owner, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	var body library.DownloadURLResponse
	resp.Decode(t, &body)
	assert.Contains(t, body.DownloadURL, *piece.S3Key)
	assert.Contains(t, body.DownloadURL, "method=GET")
	assert.Equal(t, 3600, body.ExpiresIn)

	bare := models.Piece{OwnerID: owner.ID, Title: "Missing", PDFFilename: "x.pdf"}
	require.NoError(t, env.DB.Create(&bare).Error)
	resp = env.Do(http.MethodGet, "/pieces/"+bare.ID.String()+"/download-url", owner, nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestSharePieceWithStudent(t *testing.T) {
	env := apptest.New(t)
	teacher := env.User("teacher@example.com", nil)
	student := env.User("student@example.com", teacher)
	stranger := env.User("stranger@example.com", nil)
	piece := uploadPiece(t, env, teacher, "Etude")

	resp := env.Do(http.MethodPost, fmt.Sprintf("/pieces/%s/share/%s", piece.ID, stranger.ID), teacher, nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "Not authorized to share with this student", resp.Error(t).Message)

	resp = env.Do(http.MethodPost, fmt.Sprintf("/pieces/%s/share/%s", piece.ID, student.ID), teacher, nil)
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	var copied models.Piece
	resp.Decode(t, &copied)
	assert.NotEqual(t, piece.ID, copied.ID)
	assert.Equal(t, student.ID, copied.OwnerID)
	require.NotNil(t, copied.SharedFromPieceID)
	assert.Equal(t, piece.ID, *copied.SharedFromPieceID)
	assert.Equal(t, *piece.S3Key, *copied.S3Key)
	assert.Equal(t, 1, env.Store.Len())

	// The copy is independent of its source.
	resp = env.Do(http.MethodPut, "/pieces/"+copied.ID.String()+"?title=Mine", student, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	var source models.Piece
	require.NoError(t, env.DB.First(&source, "id = ?", piece.ID).Error)
	assert.Equal(t, "Etude", source.Title)

	resp = env.Do(http.MethodGet, "/students/"+student.ID.String()+"/pieces", teacher, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	var pieces []models.Piece
	resp.Decode(t, &pieces)
	require.Len(t, pieces, 1)
	assert.Equal(t, "Mine", pieces[0].Title)
}

func TestStudentPiecesRequiresTeacher(t *testing.T) {
	env := apptest.New(t)
	student := env.User("student@example.com", nil)
	other := env.User("other@example.com", nil)

	resp := env.Do(http.MethodGet, "/students/"+student.ID.String()+"/pieces", other, nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)
}

func TestMalformedPieceID(t *testing.T) {
	env := apptest.New(t)
	owner := env.User("owner@example.com", nil)

	resp := env.Do(http.MethodDelete, "/pieces/not-a-uuid", owner, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}
