// Package storage is the gateway to the object store holding sheet-music PDFs
// and practice videos.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/loopflow/cadenza/internal/config"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeMP4  = "video/mp4"
	ContentTypeJPEG = "image/jpeg"

	expiryTagDays = 30
)

// Store puts, deletes and presigns objects by key.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	PresignPut(ctx context.Context, key, contentType string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// New builds the store selected by STORAGE_DRIVER.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StorageDriver {
	case "", "s3":
		return NewS3(ctx, cfg)
	case "memory":
		return NewMemory(cfg.PresignExpiry, !cfg.IsProduction()), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// ExpiryTag is the object tag that lets a lifecycle rule reap non-production
// uploads after 30 days.
func ExpiryTag(now time.Time) string {
	return "expiry-date=" + now.UTC().AddDate(0, 0, expiryTagDays).Format("2006-01-02")
}

// Keys derives object keys. Outside production every key carries the
// environment name as a prefix.
type Keys struct {
	prefix string
}

func NewKeys(cfg *config.Config) Keys {
	return Keys{prefix: cfg.ObjectKeyPrefix()}
}

func (k Keys) Piece(pieceID uuid.UUID) string {
	return fmt.Sprintf("%scadenza/pieces/%s.pdf", k.prefix, pieceID)
}

func (k Keys) Video(userID, submissionID uuid.UUID) string {
	return fmt.Sprintf("%scadenza/videos/%s/%s.mp4", k.prefix, userID, submissionID)
}

func (k Keys) VideoThumbnail(userID, submissionID uuid.UUID) string {
	return fmt.Sprintf("%scadenza/videos/%s/%s_thumb.jpg", k.prefix, userID, submissionID)
}

func (k Keys) MessageVideo(senderID, messageID uuid.UUID) string {
	return fmt.Sprintf("%scadenza/messages/%s/%s.mp4", k.prefix, senderID, messageID)
}

func (k Keys) MessageThumbnail(senderID, messageID uuid.UUID) string {
	return fmt.Sprintf("%scadenza/messages/%s/%s_thumb.jpg", k.prefix, senderID, messageID)
}
