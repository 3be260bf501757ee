package doctor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zhubert/relay-core/config"
	"github.com/zhubert/relay-core/paths"
)

func setupTestHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_STATE_HOME", "")
	paths.Reset()
	t.Cleanup(paths.Reset)
}

func TestRunAll_HealthyEnvironment(t *testing.T) {
	setupTestHome(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"commands":[{"name":"compact","enabled":true}]}`)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Server = server.URL

	results := RunAll(context.Background(), cfg)

	if len(results) != 3 {
		t.Fatalf("expected 3 checks, got %d", len(results))
	}
	for _, r := range results {
		if !r.OK {
			t.Errorf("check %s failed: %v", r.Name, r.Error)
		}
	}
	if err := ValidateRequired(results); err != nil {
		t.Errorf("healthy environment should validate: %v", err)
	}
}

func TestRunAll_UnreachableBackend(t *testing.T) {
	setupTestHome(t)

	cfg := config.Default()
	cfg.Server = "http://127.0.0.1:1" // nothing listens here

	results := RunAll(context.Background(), cfg)

	var backend *CheckResult
	for i := range results {
		if results[i].Name == "backend" {
			backend = &results[i]
		}
	}
	if backend == nil {
		t.Fatal("backend check missing")
	}
	if backend.OK {
		t.Error("backend check should fail when nothing is listening")
	}

	if err := ValidateRequired(results); err == nil {
		t.Error("expected validation to fail")
	}
}

func TestRunAll_InvalidConfig(t *testing.T) {
	setupTestHome(t)

	cfg := config.Default()
	cfg.Server = "not a url"

	results := RunAll(context.Background(), cfg)

	if results[0].Name != "config" || results[0].OK {
		t.Errorf("config check should fail for a bad server URL: %+v", results[0])
	}
}

func TestFormatResults(t *testing.T) {
	results := []CheckResult{
		{Name: "config", Required: true, OK: true, Detail: "/tmp/relay.yaml"},
		{Name: "backend", Required: true, OK: false, Error: context.DeadlineExceeded},
	}

	out := FormatResults(results)

	if !strings.Contains(out, "✓ config (/tmp/relay.yaml)") {
		t.Errorf("passing check rendered wrong:\n%s", out)
	}
	if !strings.Contains(out, "✗ backend") {
		t.Errorf("failing check rendered wrong:\n%s", out)
	}
}
