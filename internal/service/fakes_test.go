package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tazhate/classsync/internal/auth"
	"github.com/tazhate/classsync/internal/clients/extractor"
	"github.com/tazhate/classsync/internal/domain"
	"github.com/tazhate/classsync/internal/storage"
)

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.New(filepath.Join(t.TempDir(), "classsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *storage.Storage, id string) {
	t.Helper()
	require.NoError(t, s.UpsertUser(context.Background(), &domain.User{ID: id, Email: id + "@example.edu"}))
}

func seedClass(t *testing.T, s *storage.Storage, c *domain.ClassRecord) {
	t.Helper()
	c.ApplyDefaults()
	require.NoError(t, s.CreateClasses(context.Background(), []*domain.ClassRecord{c}))
}

// ── extractor ──

type fakeExtractor struct {
	raw []extractor.RawClass
	err error
}

func (f *fakeExtractor) Extract(ctx context.Context, image []byte, mimeType string) ([]extractor.RawClass, error) {
	return f.raw, f.err
}

// ── calendar sink ──

type fakeSink struct {
	mu       sync.Mutex
	created  []domain.RecurringEventDescriptor
	failures map[string]error // by event title
	inFlight int
	maxSeen  int
	calls    int
	delay    time.Duration
	block    func(ctx context.Context) error // runs before the event is created
}

func newFakeSink() *fakeSink {
	return &fakeSink{failures: map[string]error{}}
}

func (f *fakeSink) CreateEvent(ctx context.Context, id auth.Identity, d domain.RecurringEventDescriptor) (string, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	var blockErr error
	if f.block != nil {
		blockErr = f.block(ctx)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--

	if blockErr != nil {
		return "", blockErr
	}

	if err, ok := f.failures[d.Title]; ok {
		return "", err
	}
	f.created = append(f.created, d)
	return fmt.Sprintf("evt-%d", len(f.created)), nil
}

// ── submission guard ──

type fakeGuard struct {
	mu       sync.Mutex
	keys     map[string]bool
	released []string
	err      error
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{keys: map[string]bool{}}
}

func (g *fakeGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if g.keys[key] {
		return false, nil
	}
	g.keys[key] = true
	return true, nil
}

func (g *fakeGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	g.released = append(g.released, key)
	return nil
}
