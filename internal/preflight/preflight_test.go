package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"recwatch/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	for _, writable := range []bool{false, true} {
		result := CheckDirectoryAccess("test", dir, writable)
		if !result.Passed {
			t.Fatalf("expected pass for temp dir (writable=%v), got: %s", writable, result.Detail)
		}
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"), false)
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f, false)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoryAccess_Unreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission bits")
	}
	dir := filepath.Join(t.TempDir(), "locked")
	if err := os.Mkdir(dir, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	result := CheckDirectoryAccess("test", dir, false)
	if result.Passed {
		t.Fatal("expected failure for unreadable dir")
	}
}

func TestCheckDirectoryAccess_Empty(t *testing.T) {
	if result := CheckDirectoryAccess("test", "  ", false); result.Passed {
		t.Fatal("expected failure for empty path")
	}
}

func TestCheckParser_MethodNotAllowedIsReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckParser(context.Background(), srv.URL+"/api/parse_replay")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckParser_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if result := CheckParser(context.Background(), srv.URL); result.Passed {
		t.Fatal("expected failure for 502")
	}
}

func TestCheckParser_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	if result := CheckParser(context.Background(), url); result.Passed {
		t.Fatal("expected failure for closed server")
	}
}

func TestCheckParser_MissingURL(t *testing.T) {
	if result := CheckParser(context.Background(), ""); result.Passed {
		t.Fatal("expected failure for missing URL")
	}
	if result := CheckParser(context.Background(), "not a url"); result.Passed {
		t.Fatal("expected failure for invalid URL")
	}
}

func TestRunAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Watch.ReplayDirectories = []string{t.TempDir(), filepath.Join(t.TempDir(), "missing")}
	cfg.Parser.URL = srv.URL
	cfg.Notifications.NtfyTopic = ""

	results := RunAll(context.Background(), &cfg)
	if len(results) != 4 {
		t.Fatalf("results = %d, want 4", len(results))
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Replay directory 2" {
		t.Fatalf("failed = %+v, want only the missing replay directory", failed)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected nil, got %v", results)
	}
}
