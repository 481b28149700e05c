package testing

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// MockObjectStorage is an in-memory implementation of the archiver's
// ObjectStorage interface.
type MockObjectStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
	mtimes  map[string]time.Time
	err     error
}

// NewMockObjectStorage creates an empty in-memory object store.
func NewMockObjectStorage() *MockObjectStorage {
	return &MockObjectStorage{
		objects: make(map[string][]byte),
		mtimes:  make(map[string]time.Time),
	}
}

// SetError makes every subsequent call fail with err.
func (m *MockObjectStorage) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetModTime overrides the recorded modification time of a stored object,
// used to age objects in rotation tests.
func (m *MockObjectStorage) SetModTime(key string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mtimes[key] = t
}

// Upload stores the object body under key.
func (m *MockObjectStorage) Upload(ctx context.Context, key string, body io.Reader) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	m.objects[key] = buf.Bytes()
	m.mtimes[key] = time.Now()
	return nil
}

// List returns stored objects under prefix, sorted by key.
func (m *MockObjectStorage) List(ctx context.Context, prefix string) ([]types.Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}

	var out []types.Object
	for key, body := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		mtime := m.mtimes[key]
		out = append(out, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(body))),
			LastModified: aws.Time(mtime),
		})
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].Key < *out[j].Key })
	return out, nil
}

// Delete removes an object. Deleting a missing key is not an error,
// matching S3 semantics.
func (m *MockObjectStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.objects, key)
	delete(m.mtimes, key)
	return nil
}

// Object returns a stored object body and whether it exists.
func (m *MockObjectStorage) Object(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.objects[key]
	return body, ok
}

// Keys returns all stored object keys, sorted.
func (m *MockObjectStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// StaticFixings is a fixed-map implementation of the forecast FixingSource
// interface. Keys are unix midnight UTC days, values annual percent rates.
type StaticFixings struct {
	Rates map[int64]float64
	Err   error
}

// RateFixings returns the configured fixings map.
func (s *StaticFixings) RateFixings() (map[int64]float64, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Rates, nil
}
