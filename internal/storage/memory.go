package storage

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// Object is a stored blob in a Memory store.
type Object struct {
	Body        []byte
	ContentType string
	Tagging     string
}

// Memory is an in-process Store for tests and local development. Presigned
// URLs use the memory:// scheme and are not fetchable.
type Memory struct {
	mu         sync.RWMutex
	objects    map[string]Object
	expiry     time.Duration
	tagUploads bool
	err        error
}

func NewMemory(expiry time.Duration, tagUploads bool) *Memory {
	return &Memory{
		objects:    make(map[string]Object),
		expiry:     expiry,
		tagUploads: tagUploads,
	}
}

// FailWith makes every subsequent call return err; nil restores normal operation.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *Memory) Put(_ context.Context, key string, body []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	obj := Object{Body: append([]byte(nil), body...), ContentType: contentType}
	if m.tagUploads {
		obj.Tagging = ExpiryTag(time.Now())
	}
	m.objects[key] = obj
	return nil
}

func (m *Memory) PresignPut(_ context.Context, key, contentType string) (string, error) {
	return m.presign(key, "PUT", contentType)
}

func (m *Memory) PresignGet(_ context.Context, key string) (string, error) {
	return m.presign(key, "GET", "")
}

func (m *Memory) presign(key, method, contentType string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return "", m.err
	}
	q := url.Values{}
	q.Set("method", method)
	q.Set("expires", fmt.Sprint(int(m.expiry.Seconds())))
	if contentType != "" {
		q.Set("content-type", contentType)
	}
	return "memory://objects/" + key + "?" + q.Encode(), nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.objects, key)
	return nil
}

// Get returns the object stored under key.
func (m *Memory) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
