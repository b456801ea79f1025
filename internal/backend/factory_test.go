package backend

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/source/memory"
	"fintrack/internal/source/rest"
)

func testLogger() *log.Logger {
	return log.Discard()
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataSource: "sqlite"}); err == nil {
		t.Fatalf("expected error for unknown source")
	}
	cfg, err := FromAppConfig(&config.Config{DataSource: "rest", BackendURL: "http://x"})
	if err != nil || cfg.Type != RESTBackend || cfg.BaseURL != "http://x" {
		t.Fatalf("unexpected conversion %+v %v", cfg, err)
	}
}

func TestCreateBackend(t *testing.T) {
	f := NewFactory(testLogger())
	ctx := context.Background()

	res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := res.Source.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", res.Source)
	}

	res, err = f.CreateBackend(ctx, Config{Type: RESTBackend, BaseURL: "http://localhost:5000"})
	if err != nil {
		t.Fatalf("rest: %v", err)
	}
	if _, ok := res.Source.(*rest.Client); !ok {
		t.Fatalf("expected rest client, got %T", res.Source)
	}

	if _, err := f.CreateBackend(ctx, Config{Type: RESTBackend}); err == nil {
		t.Fatalf("expected error without base url")
	}
	if _, err := f.CreateBackend(ctx, Config{Type: SheetsBackend}); err == nil {
		t.Fatalf("expected error without spreadsheet id")
	}
	if _, err := f.CreateBackend(ctx, Config{Type: "nope"}); err == nil {
		t.Fatalf("expected error for invalid type")
	}
}

func TestFactoryLogsUnderBackendComponent(t *testing.T) {
	var buf bytes.Buffer
	f := NewFactory(log.New(log.Config{Component: log.ComponentApp, Format: "json", Output: &buf}))
	if _, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: t.TempDir()}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"component":"backend"`) {
		t.Fatalf("factory log missing backend component: %s", buf.String())
	}
}

func TestBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 3 || got[0] != "rest" {
		t.Fatalf("unexpected types %v", got)
	}
}
