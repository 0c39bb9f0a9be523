package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/loopflow/cadenza/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeysArePrefixedOutsideProduction(t *testing.T) {
	user := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	id := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	dev := NewKeys(&config.Config{Environment: "dev"})
	assert.Equal(t, "dev/cadenza/pieces/"+id.String()+".pdf", dev.Piece(id))
	assert.Equal(t, "dev/cadenza/videos/"+user.String()+"/"+id.String()+".mp4", dev.Video(user, id))
	assert.Equal(t, "dev/cadenza/videos/"+user.String()+"/"+id.String()+"_thumb.jpg", dev.VideoThumbnail(user, id))
	assert.Equal(t, "dev/cadenza/messages/"+user.String()+"/"+id.String()+".mp4", dev.MessageVideo(user, id))
	assert.Equal(t, "dev/cadenza/messages/"+user.String()+"/"+id.String()+"_thumb.jpg", dev.MessageThumbnail(user, id))

	prod := NewKeys(&config.Config{Environment: "prod"})
	assert.Equal(t, "cadenza/pieces/"+id.String()+".pdf", prod.Piece(id))
}

func TestExpiryTag(t *testing.T) {
	now := time.Date(2026, 1, 15, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "expiry-date=2026-02-14", ExpiryTag(now))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour, true)

	require.NoError(t, m.Put(ctx, "dev/a.pdf", []byte("%PDF"), ContentTypePDF))
	obj, ok := m.Get("dev/a.pdf")
	require.True(t, ok)
	assert.Equal(t, []byte("%PDF"), obj.Body)
	assert.Equal(t, ContentTypePDF, obj.ContentType)
	assert.True(t, strings.HasPrefix(obj.Tagging, "expiry-date="))

	putURL, err := m.PresignPut(ctx, "dev/v.mp4", ContentTypeMP4)
	require.NoError(t, err)
	assert.Contains(t, putURL, "method=PUT")
	assert.Contains(t, putURL, "expires=3600")

	getURL, err := m.PresignGet(ctx, "dev/a.pdf")
	require.NoError(t, err)
	assert.Contains(t, getURL, "dev/a.pdf")

	require.NoError(t, m.Delete(ctx, "dev/a.pdf"))
	assert.Zero(t, m.Len())

	boom := errors.New("unreachable")
	m.FailWith(boom)
	_, err = m.PresignGet(ctx, "dev/a.pdf")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, m.Put(ctx, "x", nil, ContentTypePDF), boom)
}

func TestProductionUploadsAreUntagged(t *testing.T) {
	m := NewMemory(time.Hour, false)
	require.NoError(t, m.Put(context.Background(), "k", []byte("x"), ContentTypePDF))
	obj, _ := m.Get("k")
	assert.Empty(t, obj.Tagging)
}

func TestNewSelectsDriver(t *testing.T) {
	store, err := New(context.Background(), &config.Config{StorageDriver: "memory", Environment: "dev", PresignExpiry: time.Hour})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, store)

	_, err = New(context.Background(), &config.Config{StorageDriver: "ftp"})
	assert.Error(t, err)
}

func TestS3StorePresignsWithoutNetwork(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	cfg := &config.Config{
		Environment:    "dev",
		S3Bucket:       "loopflow",
		AWSRegion:      "us-west-2",
		S3Endpoint:     "http://localhost:9000",
		StorageTimeout: 5 * time.Second,
		PresignExpiry:  time.Hour,
	}
	store, err := NewS3(context.Background(), cfg)
	require.NoError(t, err)

	u, err := store.PresignPut(context.Background(), "dev/cadenza/pieces/x.pdf", ContentTypePDF)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "http://localhost:9000/loopflow/dev/cadenza/pieces/x.pdf?"))
	assert.Contains(t, u, "X-Amz-Expires=3600")
}
