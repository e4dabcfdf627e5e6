package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"florence-server-go/internal/utils"
)

func writeTestConfig(t *testing.T) {
	t.Helper()

	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	content := fmt.Sprintf(`
server:
  ip: 127.0.0.1
  port: 18080
log:
  log_level: info
  log_dir: %q
  log_file: test.log
runtime:
  url: http://127.0.0.1:19100
`, filepath.Join(tmp, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	t.Setenv("FLORENCE_CONFIG", path)
}

func TestInitGraphOrder(t *testing.T) {
	steps := InitGraph()
	want := []string{
		"config:load",
		"logging:init",
		"observability:setup",
		"image:init-pipeline",
		"runtime:init-client",
		"auth:init-token",
	}
	if len(steps) != len(want) {
		t.Fatalf("unexpected step count: got %d want %d", len(steps), len(want))
	}
	for i, step := range steps {
		if step.ID != want[i] {
			t.Fatalf("step %d mismatch: got %s want %s", i, step.ID, want[i])
		}
	}
}

func TestExecuteInitGraph(t *testing.T) {
	writeTestConfig(t)

	state := &appState{}
	if err := executeInitSteps(context.Background(), InitGraph(), state); err != nil {
		t.Fatalf("executeInitSteps failed: %v", err)
	}
	if state.config == nil {
		t.Fatal("config is nil after init")
	}
	if state.logger == nil {
		t.Fatal("logger is nil after init")
	}
	if state.imagePipeline == nil {
		t.Fatal("image pipeline is nil after init")
	}
	if state.runtimeClient == nil {
		t.Fatal("runtime client is nil after init")
	}
	if state.observabilityShutdown == nil {
		t.Fatal("observability shutdown hook not set")
	}
	if state.authToken != nil {
		t.Fatal("auth token should be nil when auth is disabled")
	}
	defer state.logger.Close()
	defer state.observabilityShutdown(context.Background())
}

func TestExecuteInitGraph_MissingDependency(t *testing.T) {
	steps := []initStep{
		{
			ID:        "late",
			Title:     "step with unmet dependency",
			DependsOn: []string{"early"},
			Execute:   func(context.Context, *appState) error { return nil },
		},
	}
	if err := executeInitSteps(context.Background(), steps, &appState{}); err == nil {
		t.Fatal("expected dependency error")
	}
}

func TestLogBootstrapGraphOutput(t *testing.T) {
	tmp := t.TempDir()
	logCfg := &utils.LogCfg{
		LogLevel: "info",
		LogDir:   tmp,
		LogFile:  "graph.log",
	}
	logger, err := utils.NewLogger(logCfg)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logBootstrapGraph(InitGraph(), logger)
	logger.Close()

	data, err := os.ReadFile(filepath.Join(tmp, logCfg.LogFile))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "initialisation order") {
		t.Fatalf("graph header missing in log output: %s", content)
	}
	for _, title := range []string{
		"Load configuration",
		"Initialise logging",
		"Initialise inference runtime client",
	} {
		if !strings.Contains(content, title) {
			t.Fatalf("expected graph output to contain %q, got: %s", title, content)
		}
	}
}
