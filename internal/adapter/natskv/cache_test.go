package natskv

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/Tasklane/internal/port/cache"
)

var _ cache.Cache = (*Cache)(nil)

// mockKV is an in-memory jetstream.KeyValue.
type mockKV struct {
	mu         sync.Mutex
	data       map[string][]byte
	failDelete error
}

func newMockKV() *mockKV {
	return &mockKV{data: make(map[string][]byte)}
}

func (m *mockKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return &mockEntry{key: key, value: v}, nil
}

func (m *mockKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return 1, nil
}

func (m *mockKV) Bucket() string { return "test" }
func (m *mockKV) Create(_ context.Context, _ string, _ []byte, _ ...jetstream.KVCreateOpt) (uint64, error) {
	return 0, nil
}
func (m *mockKV) Update(_ context.Context, _ string, _ []byte, _ uint64) (uint64, error) {
	return 0, nil
}
func (m *mockKV) PutString(_ context.Context, _, _ string) (uint64, error)             { return 0, nil }
func (m *mockKV) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete != nil {
		return m.failDelete
	}
	if _, ok := m.data[key]; !ok {
		return jetstream.ErrKeyNotFound
	}
	delete(m.data, key)
	return nil
}
func (m *mockKV) Purge(_ context.Context, _ string, _ ...jetstream.KVDeleteOpt) error  { return nil }
func (m *mockKV) GetRevision(_ context.Context, _ string, _ uint64) (jetstream.KeyValueEntry, error) {
	return nil, nil
}
func (m *mockKV) Keys(_ context.Context, _ ...jetstream.WatchOpt) ([]string, error) { return nil, nil }
func (m *mockKV) ListKeys(_ context.Context, _ ...jetstream.WatchOpt) (jetstream.KeyLister, error) {
	return nil, nil
}
func (m *mockKV) ListKeysFiltered(_ context.Context, _ ...string) (jetstream.KeyLister, error) {
	return nil, nil
}
func (m *mockKV) History(_ context.Context, _ string, _ ...jetstream.WatchOpt) ([]jetstream.KeyValueEntry, error) {
	return nil, nil
}
func (m *mockKV) Watch(_ context.Context, _ string, _ ...jetstream.WatchOpt) (jetstream.KeyWatcher, error) {
	return nil, nil
}
func (m *mockKV) WatchAll(_ context.Context, _ ...jetstream.WatchOpt) (jetstream.KeyWatcher, error) {
	return nil, nil
}
func (m *mockKV) WatchFiltered(_ context.Context, _ []string, _ ...jetstream.WatchOpt) (jetstream.KeyWatcher, error) {
	return nil, nil
}
func (m *mockKV) Status(_ context.Context) (jetstream.KeyValueStatus, error)      { return nil, nil }
func (m *mockKV) PurgeDeletes(_ context.Context, _ ...jetstream.KVPurgeOpt) error { return nil }

// mockEntry implements jetstream.KeyValueEntry.
type mockEntry struct {
	key   string
	value []byte
}

func (e *mockEntry) Bucket() string                  { return "test" }
func (e *mockEntry) Key() string                     { return e.key }
func (e *mockEntry) Value() []byte                   { return e.value }
func (e *mockEntry) Revision() uint64                { return 1 }
func (e *mockEntry) Created() time.Time              { return time.Time{} }
func (e *mockEntry) Delta() uint64                   { return 0 }
func (e *mockEntry) Operation() jetstream.KeyValueOp { return jetstream.KeyValuePut }

func TestCache_SetGetDelete(t *testing.T) {
	kv := newMockKV()
	c := New(kv)
	ctx := context.Background()

	if _, found, err := c.Get(ctx, "idem.abc"); err != nil || found {
		t.Fatalf("Get before Set: found=%v err=%v", found, err)
	}
	if err := c.Set(ctx, "idem.abc", []byte(`{"status_code":201}`), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, found, err := c.Get(ctx, "idem.abc")
	if err != nil || !found || string(got) != `{"status_code":201}` {
		t.Fatalf("Get = %q %v %v", got, found, err)
	}
	if err := c.Delete(ctx, "idem.abc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Delete(ctx, "idem.abc"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestCache_DeleteError(t *testing.T) {
	kv := newMockKV()
	kv.failDelete = errors.New("timeout")
	if err := New(kv).Delete(context.Background(), "k"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCache_InvalidKeys(t *testing.T) {
	c := New(newMockKV())
	ctx := context.Background()

	for _, key := range []string{"", "tenant:demo", "has space", "star*"} {
		if err := c.Set(ctx, key, []byte("v"), 0); err == nil {
			t.Errorf("Set(%q): expected error", key)
		}
		if _, _, err := c.Get(ctx, key); err == nil {
			t.Errorf("Get(%q): expected error", key)
		}
	}
}
