package logging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/loopflow/cadenza/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.SystemLog{}))
	return db
}

func TestPGHandlerPersistsErrorsOnly(t *testing.T) {
	db := openDB(t)
	h := newPGHandler(db, time.Hour)
	t.Cleanup(h.Stop)

	log := slog.New(h).With("request_id", "req-1")
	log.Info("ignored")
	log.Error("piece upload failed", "error", "timeout", "path", "/pieces", "method", "POST", "piece_id", "abc")
	h.Flush()

	var rows []models.SystemLog
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "ERROR", row.Level)
	assert.Equal(t, "piece upload failed", row.Message)
	assert.Equal(t, "req-1", row.RequestID)
	assert.Equal(t, "timeout", row.Error)
	assert.Equal(t, "/pieces", row.Path)
	assert.Equal(t, "POST", row.Method)

	var extra map[string]interface{}
	require.NoError(t, json.Unmarshal(row.Extra, &extra))
	assert.Equal(t, "abc", extra["piece_id"])
}

func TestMultiHandlerFansOut(t *testing.T) {
	db := openDB(t)
	pg := newPGHandler(db, time.Hour)
	t.Cleanup(pg.Stop)

	mh := NewMultiHandler(slog.NewJSONHandler(discard{}, nil), pg)
	assert.True(t, mh.Enabled(context.Background(), slog.LevelInfo))

	slog.New(mh).Error("boom")
	pg.Flush()

	var count int64
	require.NoError(t, db.Model(&models.SystemLog{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

type failingSink struct{ slog.Handler }

func (failingSink) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestMultiHandlerKeepsGoingAfterFailure(t *testing.T) {
	db := openDB(t)
	pg := newPGHandler(db, time.Hour)
	t.Cleanup(pg.Stop)

	mh := NewMultiHandler(failingSink{slog.NewJSONHandler(discard{}, nil)}, pg)
	var record slog.Record
	record.Level = slog.LevelError
	record.Message = "boom"
	assert.Error(t, mh.Handle(context.Background(), record))
	pg.Flush()

	var count int64
	require.NoError(t, db.Model(&models.SystemLog{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestPurgeOlderThan(t *testing.T) {
	db := openDB(t)
	now := time.Now().UTC()
	require.NoError(t, db.Create(&models.SystemLog{Timestamp: now.AddDate(0, 0, -40), Level: "ERROR"}).Error)
	require.NoError(t, db.Create(&models.SystemLog{Timestamp: now, Level: "ERROR"}).Error)

	deleted, err := PurgeOlderThan(db, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
