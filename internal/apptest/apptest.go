// Package apptest builds a fully wired API over an in-memory SQLite database
// and an in-memory object store for HTTP-level tests.
package apptest

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/loopflow/cadenza/internal/apps"
	"github.com/loopflow/cadenza/internal/config"
	"github.com/loopflow/cadenza/internal/database"
	"github.com/loopflow/cadenza/internal/dto"
	"github.com/loopflow/cadenza/internal/middleware"
	"github.com/loopflow/cadenza/internal/models"
	"github.com/loopflow/cadenza/internal/routes"
	"github.com/loopflow/cadenza/internal/services"
	"github.com/loopflow/cadenza/internal/storage"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Epoch is the initial time of every test clock.
var Epoch = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Env is a wired API plus handles on its collaborators.
type Env struct {
	T      testing.TB
	App    *fiber.App
	DB     *gorm.DB
	Store  *storage.Memory
	Config *config.Config
	Auth   *services.AuthService
	Clock  *Clock
	Deps   apps.Deps
}

// Config returns the configuration used by test environments.
func Config() *config.Config {
	return &config.Config{
		Environment:      "dev",
		DatabaseURL:      "sqlite://file::memory:",
		JWTSecret:        "test-secret",
		JWTAlgorithm:     "HS256",
		JWTExpiration:    time.Hour,
		AppleClientID:    "com.loopflow.cadenza.test",
		AppleJWKSURL:     "http://127.0.0.1:0/keys",
		AppleKeysTTL:     time.Hour,
		StorageDriver:    "memory",
		S3Bucket:         "test",
		StorageTimeout:   time.Second,
		PresignExpiry:    time.Hour,
		RateLimitEnabled: false,
		RateLimitAuth:    10,
		RateLimitWrite:   30,
		RateLimitRead:    100,
		CORSOrigins:      "*",
		LogRetentionDays: 30,
	}
}

// OpenDB returns a migrated private in-memory database.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

// New wires the full route table. mutate may adjust the configuration first.
func New(t testing.TB, mutate ...func(*config.Config)) *Env {
	t.Helper()
	cfg := Config()
	for _, m := range mutate {
		m(cfg)
	}

	db := OpenDB(t)
	store := storage.NewMemory(cfg.PresignExpiry, !cfg.IsProduction())
	clock := &Clock{now: Epoch}
	auth := services.NewAuthService(db, cfg, services.NewAppleJWKSClient(cfg))

	deps := apps.Deps{
		DB:      db,
		Config:  cfg,
		Storage: store,
		Keys:    storage.NewKeys(cfg),
		Now:     clock.Now,
	}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	routes.Setup(app, deps, auth, routes.Plugins())

	return &Env{
		T:      t,
		App:    app,
		DB:     db,
		Store:  store,
		Config: cfg,
		Auth:   auth,
		Clock:  clock,
		Deps:   deps,
	}
}

// User creates a signed-in user. teacher may be nil.
func (e *Env) User(email string, teacher *models.User) *models.User {
	e.T.Helper()
	appleID := "apple-" + email
	user := models.User{Email: email, AppleUserID: &appleID, CreatedAt: e.Clock.Now()}
	if teacher != nil {
		id := teacher.ID
		user.TeacherID = &id
	}
	require.NoError(e.T, e.DB.Create(&user).Error)
	return &user
}

// Token issues a session token for user.
func (e *Env) Token(user *models.User) string {
	e.T.Helper()
	token, err := e.Auth.IssueToken(user)
	require.NoError(e.T, err)
	return token
}

// Response is a buffered HTTP response.
type Response struct {
	Status int
	Body   []byte
}

// Decode unmarshals the body into v.
func (r *Response) Decode(t testing.TB, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, v), string(r.Body))
}

// Error decodes an error envelope.
func (r *Response) Error(t testing.TB) dto.ErrorResponse {
	t.Helper()
	var body dto.ErrorResponse
	r.Decode(t, &body)
	return body
}

// Do sends a request as user (nil for anonymous). A non-nil body is sent as JSON.
func (e *Env) Do(method, path string, user *models.User, body interface{}) *Response {
	e.T.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return e.send(req, user)
}

// Upload sends a multipart form with one file part.
func (e *Env) Upload(method, path string, user *models.User, fields map[string]string, fileField, filename string, content []byte) *Response {
	e.T.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.T, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, filename)
		require.NoError(e.T, err)
		_, err = part.Write(content)
		require.NoError(e.T, err)
	}
	require.NoError(e.T, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return e.send(req, user)
}

func (e *Env) send(req *http.Request, user *models.User) *Response {
	e.T.Helper()
	if user != nil {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+e.Token(user))
	}
	resp, err := e.App.Test(req, -1)
	require.NoError(e.T, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.T, err)
	return &Response{Status: resp.StatusCode, Body: raw}
}

// DoWithToken sends a request with a raw bearer token.
func (e *Env) DoWithToken(method, path, token string) *Response {
	e.T.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return e.send(req, nil)
}
