package secrets_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Strob0t/Tasklane/internal/secrets"
)

func TestNewVault_InitialLoad(t *testing.T) {
	v, err := secrets.NewVault(func() (map[string]string, error) {
		return map[string]string{"TASKLANE_JWT_SECRET": "s3cret"}, nil
	})
	if err != nil {
		t.Fatalf("NewVault failed: %v", err)
	}
	if got := v.Get("TASKLANE_JWT_SECRET"); got != "s3cret" {
		t.Fatalf("expected 's3cret', got %q", got)
	}
	if v.Version() != 1 {
		t.Fatalf("expected version 1, got %d", v.Version())
	}
}

func TestNewVault_LoaderError(t *testing.T) {
	_, err := secrets.NewVault(func() (map[string]string, error) {
		return nil, errors.New("permission denied")
	})
	if err == nil {
		t.Fatal("expected error from failing loader")
	}
}

func TestVault_Require(t *testing.T) {
	v := secrets.Static(map[string]string{"SHORT": "abc", "LONG": "0123456789abcdef0123456789abcdef"})

	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"long enough", "LONG", false},
		{"too short", "SHORT", true},
		{"absent", "NONE", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := v.Require(tt.key, 32)
			if tt.wantErr {
				if !errors.Is(err, secrets.ErrMissing) {
					t.Fatalf("expected ErrMissing, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(b) != 32 {
				t.Fatalf("expected 32 bytes, got %d", len(b))
			}
		})
	}
}

func TestVault_Reload(t *testing.T) {
	calls := 0
	v, _ := secrets.NewVault(func() (map[string]string, error) {
		calls++
		if calls == 1 {
			return map[string]string{"KEY": "old"}, nil
		}
		return map[string]string{"KEY": "rotated"}, nil
	})

	if err := v.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if got := v.Get("KEY"); got != "rotated" {
		t.Fatalf("expected 'rotated' after reload, got %q", got)
	}
	if v.Version() != 2 {
		t.Fatalf("expected version 2, got %d", v.Version())
	}
}

func TestVault_ReloadErrorPreservesValues(t *testing.T) {
	calls := 0
	v, _ := secrets.NewVault(func() (map[string]string, error) {
		calls++
		if calls == 1 {
			return map[string]string{"KEY": "original"}, nil
		}
		return nil, errors.New("file vanished")
	})

	if err := v.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if got := v.Get("KEY"); got != "original" {
		t.Fatalf("expected 'original' preserved, got %q", got)
	}
	if v.Version() != 1 {
		t.Fatalf("version must not change on failed reload, got %d", v.Version())
	}
}

func TestVault_ConcurrentAccess(t *testing.T) {
	v := secrets.Static(map[string]string{"KEY": "value"})

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = v.Get("KEY")
		}()
		go func() {
			defer wg.Done()
			_ = v.Reload()
		}()
	}
	wg.Wait()
}

func TestEnvLoader(t *testing.T) {
	t.Setenv("TL_TEST_SECRET", "mysecret")
	loader := secrets.EnvLoader("TL_TEST_SECRET", "TL_MISSING_SECRET")

	vals, err := loader()
	if err != nil {
		t.Fatalf("EnvLoader failed: %v", err)
	}
	if vals["TL_TEST_SECRET"] != "mysecret" {
		t.Fatalf("expected 'mysecret', got %q", vals["TL_TEST_SECRET"])
	}
	if _, ok := vals["TL_MISSING_SECRET"]; ok {
		t.Fatal("expected missing env var to be omitted")
	}
}

func TestEnvLoader_FilePrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jwt")
	if err := os.WriteFile(path, []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TL_FILE_SECRET", "from-env")
	t.Setenv("TL_FILE_SECRET_FILE", path)

	vals, err := secrets.EnvLoader("TL_FILE_SECRET")()
	if err != nil {
		t.Fatalf("EnvLoader failed: %v", err)
	}
	if vals["TL_FILE_SECRET"] != "from-file" {
		t.Fatalf("expected 'from-file', got %q", vals["TL_FILE_SECRET"])
	}
}

func TestEnvLoader_UnreadableFile(t *testing.T) {
	t.Setenv("TL_BAD_SECRET_FILE", filepath.Join(t.TempDir(), "missing"))
	if _, err := secrets.EnvLoader("TL_BAD_SECRET")(); err == nil {
		t.Fatal("expected error for unreadable secret file")
	}
}
