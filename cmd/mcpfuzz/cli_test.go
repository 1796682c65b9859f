package main

import (
	"encoding/json"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/config"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/explore"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/mcp"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/mcptest"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/runlog"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/stats"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/testutil"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/tui/theme"
)

// buildBinary builds the mcpfuzz binary for testing.
// Returns the path to the binary.
func buildBinary(t *testing.T) string {
	t.Helper()

	binary := filepath.Join(t.TempDir(), "mcpfuzz")
	cmd := exec.Command("go", "build", "-o", binary, ".")
	cmd.Dir = filepath.Join(getModuleRoot(t), "cmd", "mcpfuzz")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build binary: %v\n%s", err, out)
	}
	return binary
}

// getModuleRoot returns the root of the Go module.
func getModuleRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find module root")
		}
		dir = parent
	}
}

// cliEnv returns an environment with an isolated HOME and no MCP_*
// overrides leaking in from the caller.
func cliEnv(home string) []string {
	var env []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "MCP_") || strings.HasPrefix(kv, "HOME=") {
			continue
		}
		env = append(env, kv)
	}
	return append(env, "HOME="+home)
}

// runCLI runs the binary with HOME set to home.
// Returns stdout, stderr, and any error.
func runCLI(binary, home string, args ...string) (string, string, error) {
	cmd := exec.Command(binary, args...)
	cmd.Env = cliEnv(home)
	cmd.Dir = home

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// hostPort splits a fake server URL into --host and --port values.
func hostPort(t *testing.T, rawURL string) (string, string) {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse %s: %v", rawURL, err)
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split %s: %v", u.Host, err)
	}
	return host, port
}

func TestCLI_Version(t *testing.T) {
	binary := buildBinary(t)

	stdout, stderr, err := runCLI(binary, t.TempDir(), "version")
	if err != nil {
		t.Fatalf("version failed: %v\nstderr: %s", err, stderr)
	}
	if !strings.HasPrefix(stdout, "mcpfuzz dev") {
		t.Errorf("unexpected version output: %q", stdout)
	}
	if !strings.Contains(stdout, "protocol 2024-11-05") {
		t.Errorf("version should report the protocol version: %q", stdout)
	}
}

func TestCLI_RunAgainstFakeService(t *testing.T) {
	binary := buildBinary(t)
	srv, baseURL := mcptest.StartFakeServer(t, mcptest.DefaultConfig())
	host, port := hostPort(t, baseURL)

	home := t.TempDir()
	logFile := filepath.Join(home, "testMCP.md")
	summaryFile := filepath.Join(home, "out", "summary.json")
	metricsFile := filepath.Join(home, "out", "mcpfuzz.prom")

	stdout, stderr, err := runCLI(binary, home, "run",
		"--host", host, "--port", port,
		"--rounds", "6", "--workers", "2", "--seed", "11",
		"--log-file", logFile,
		"--summary-file", summaryFile,
		"--metrics-file", metricsFile)
	if err != nil {
		t.Fatalf("run failed: %v\nstdout: %s\nstderr: %s", err, stdout, stderr)
	}

	if !strings.Contains(stdout, "METHOD") || !strings.Contains(stdout, explore.ToolListMetadataObjects) {
		t.Errorf("summary table missing from stdout:\n%s", stdout)
	}
	if !strings.Contains(stdout, "Completed 6 rounds.") {
		t.Errorf("expected completion line, got:\n%s", stdout)
	}
	if !strings.Contains(stderr, "session established") {
		t.Errorf("handshake diagnostics missing from stderr:\n%s", stderr)
	}

	if n := len(srv.ToolCalls(explore.ToolListMetadataObjects)); n != 6 {
		t.Errorf("expected 6 listing calls, got %d", n)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	log := string(data)
	if !strings.HasPrefix(log, "Тест #1\nAPI: ") {
		t.Errorf("run log should start with the first call block:\n%.200s", log)
	}
	if !strings.Contains(log, stats.MarkdownTitle) || !strings.HasSuffix(log, runlog.FinishedLine+"\n") {
		t.Errorf("run log should end with the summary and the finished line:\n%s", log)
	}

	data, err = os.ReadFile(summaryFile)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var sum stats.Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if len(sum.Rows) != len(explore.Methods) {
		t.Errorf("summary has %d rows, want %d", len(sum.Rows), len(explore.Methods))
	}
	if sum.Rows[0].Total != 6 {
		t.Errorf("listing total = %d, want 6", sum.Rows[0].Total)
	}

	data, err = os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(data), `mcpfuzz_rounds_total{status=`) {
		t.Errorf("metrics textfile missing round counters:\n%s", data)
	}
}

// A run that reaches the service always exits 0, even when every call fails.
func TestCLI_RunZeroSuccessStillExitsZero(t *testing.T) {
	binary := buildBinary(t)
	cfg := mcptest.DefaultConfig()
	cfg.Status = map[string]int{explore.ToolListMetadataObjects: 500}
	_, baseURL := mcptest.StartFakeServer(t, cfg)
	host, port := hostPort(t, baseURL)

	home := t.TempDir()
	stdout, stderr, err := runCLI(binary, home, "run", "--host", host, "--port", port, "--rounds", "3", "--seed", "1")
	if err != nil {
		t.Fatalf("run should succeed at 0%% success: %v\nstderr: %s", err, stderr)
	}
	if !strings.Contains(stdout, "0.0%") {
		t.Errorf("expected a 0.0%% success rate in:\n%s", stdout)
	}
	if _, err := os.Stat(filepath.Join(home, runlog.DefaultPath)); err != nil {
		t.Errorf("default run log not written: %v", err)
	}
}

func TestCLI_RunHandshakeFailure(t *testing.T) {
	binary := buildBinary(t)
	_, baseURL := mcptest.StartFakeServer(t, mcptest.MalformedInitConfig())
	host, port := hostPort(t, baseURL)

	home := t.TempDir()
	logPath := filepath.Join(home, runlog.DefaultPath)
	if err := os.WriteFile(logPath, []byte("Тест #1\nstale run\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, stderr, err := runCLI(binary, home, "run", "--host", host, "--port", port, "--rounds", "1")
	if err == nil {
		t.Fatal("expected a non-zero exit on handshake failure")
	}
	if !strings.Contains(stderr, "handshake") {
		t.Errorf("stderr should name the handshake: %s", stderr)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("run log missing after failed handshake: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("run log should be truncated at start, got:\n%s", data)
	}
}

func TestCLI_RunBearerToken(t *testing.T) {
	binary := buildBinary(t)
	cfg := mcptest.DefaultConfig()
	cfg.BearerToken = "s3cret"
	srv, baseURL := mcptest.StartFakeServer(t, cfg)
	host, port := hostPort(t, baseURL)

	_, stderr, err := runCLI(binary, t.TempDir(), "run",
		"--host", host, "--port", port, "--rounds", "1",
		"--auth-mode", "oauth2", "--token", "s3cret")
	if err != nil {
		t.Fatalf("run failed: %v\nstderr: %s", err, stderr)
	}
	for _, r := range srv.Requests() {
		if r.Authorization != "Bearer s3cret" {
			t.Errorf("%s sent Authorization %q", r.Method, r.Authorization)
		}
	}
}

func TestCLI_ConfigErrors(t *testing.T) {
	binary := buildBinary(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"zero workers", []string{"run", "--workers", "0"}, "explore.workers"},
		{"unknown auth mode", []string{"run", "--auth-mode", "kerberos"}, "unknown auth mode"},
		{"bearer without token", []string{"run", "--auth-mode", "bearer", "--port", "1"}, "requires an access token"},
		{"missing config file", []string{"run", "--config", "/nonexistent/mcpfuzz.yaml"}, "read config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := runCLI(binary, t.TempDir(), tt.args...)
			if err == nil {
				t.Fatal("expected failure")
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("stderr %q should contain %q", stderr, tt.want)
			}
		})
	}
}

func TestCLI_Tools(t *testing.T) {
	binary := buildBinary(t)
	_, baseURL := mcptest.StartFakeServer(t, mcptest.DefaultConfig())
	host, port := hostPort(t, baseURL)
	home := t.TempDir()

	stdout, stderr, err := runCLI(binary, home, "tools", "--host", host, "--port", port)
	if err != nil {
		t.Fatalf("tools failed: %v\nstderr: %s", err, stderr)
	}
	for _, name := range explore.Methods {
		if !strings.Contains(stdout, name) {
			t.Errorf("tools table missing %s:\n%s", name, stdout)
		}
	}

	stdout, stderr, err = runCLI(binary, home, "tools", "--host", host, "--port", port, "--json")
	if err != nil {
		t.Fatalf("tools --json failed: %v\nstderr: %s", err, stderr)
	}
	var tools []map[string]any
	if err := json.Unmarshal([]byte(stdout), &tools); err != nil {
		t.Fatalf("decode tools: %v\n%s", err, stdout)
	}
	if len(tools) != len(mcptest.MetadataTools()) {
		t.Errorf("got %d tools, want %d", len(tools), len(mcptest.MetadataTools()))
	}
}

func TestCLI_InitDefaults(t *testing.T) {
	binary := buildBinary(t)
	home := t.TempDir()
	path := filepath.Join(home, "mcpfuzz.yaml")

	stdout, stderr, err := runCLI(binary, home, "init", "--defaults", "--config", path)
	if err != nil {
		t.Fatalf("init failed: %v\nstderr: %s", err, stderr)
	}
	if !strings.Contains(stdout, "Wrote "+path) {
		t.Errorf("unexpected output: %s", stdout)
	}

	cfg, err := config.Load(path, nil)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.Server.Port != 8000 || cfg.Explore.Rounds != 200 {
		t.Errorf("unexpected config: %+v", cfg)
	}

	if _, _, err := runCLI(binary, home, "init", "--defaults", "--config", path); err == nil {
		t.Error("init should refuse to overwrite without --force")
	}
	if _, stderr, err := runCLI(binary, home, "init", "--defaults", "--force", "--config", path); err != nil {
		t.Errorf("init --force failed: %v\nstderr: %s", err, stderr)
	}
}

func TestCLI_TokenLifecycle(t *testing.T) {
	binary := buildBinary(t)
	home := t.TempDir()
	server := "http://10.0.0.5:8000"
	common := []string{"--store", "file", "--server", server}

	if _, stderr, err := runCLI(binary, home, append([]string{"token", "set", "abcd1234wxyz"}, common...)...); err != nil {
		t.Fatalf("token set failed: %v\nstderr: %s", err, stderr)
	}

	info, err := os.Stat(filepath.Join(home, ".config", "mcpfuzz", ".tokens.json"))
	if err != nil {
		t.Fatalf("token file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("token file perm = %o, want 600", perm)
	}

	stdout, _, err := runCLI(binary, home, append([]string{"token", "get"}, common...)...)
	if err != nil {
		t.Fatalf("token get failed: %v", err)
	}
	if strings.TrimSpace(stdout) != "********wxyz" {
		t.Errorf("masked token = %q", stdout)
	}

	stdout, _, err = runCLI(binary, home, append([]string{"token", "get", "--show"}, common...)...)
	if err != nil {
		t.Fatalf("token get --show failed: %v", err)
	}
	if strings.TrimSpace(stdout) != "abcd1234wxyz" {
		t.Errorf("token = %q", stdout)
	}

	if _, _, err := runCLI(binary, home, append([]string{"token", "delete"}, common...)...); err != nil {
		t.Fatalf("token delete failed: %v", err)
	}
	if _, stderr, err := runCLI(binary, home, append([]string{"token", "get"}, common...)...); err == nil {
		t.Error("get after delete should fail")
	} else if !strings.Contains(stderr, "no token stored") {
		t.Errorf("unexpected stderr: %s", stderr)
	}
}

// A stored token is picked up by run in file mode.
func TestCLI_RunWithStoredToken(t *testing.T) {
	binary := buildBinary(t)
	cfg := mcptest.DefaultConfig()
	cfg.BearerToken = "from-store"
	srv, baseURL := mcptest.StartFakeServer(t, cfg)
	host, port := hostPort(t, baseURL)
	home := t.TempDir()

	if _, stderr, err := runCLI(binary, home, "token", "set", "from-store", "--store", "file", "--host", host, "--port", port); err != nil {
		t.Fatalf("token set failed: %v\nstderr: %s", err, stderr)
	}
	if _, stderr, err := runCLI(binary, home, "run", "--host", host, "--port", port, "--rounds", "1", "--auth-mode", "file"); err != nil {
		t.Fatalf("run failed: %v\nstderr: %s", err, stderr)
	}
	if len(srv.ToolCalls("")) == 0 {
		t.Fatal("no tool calls reached the server")
	}
}

func TestMaskToken(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"abc":          "***",
		"abcd":         "****",
		"abcdefghijkl": "********ijkl",
	}
	for in, want := range tests {
		if got := maskToken(in); got != want {
			t.Errorf("maskToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRequiredArgs(t *testing.T) {
	schema := json.RawMessage(`{"type":"object","required":["metaType","name"]}`)
	if got := requiredArgs(schema); got != "metaType, name" {
		t.Errorf("requiredArgs = %q", got)
	}
	if got := requiredArgs(nil); got != "" {
		t.Errorf("requiredArgs(nil) = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Справочники", 5); got != "Спра…" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
}

func TestIntInRange(t *testing.T) {
	v := intInRange(1, 10)
	for in, ok := range map[string]bool{"1": true, " 10 ": true, "0": false, "11": false, "x": false} {
		if err := v(in); (err == nil) != ok {
			t.Errorf("intInRange(1,10)(%q) err = %v", in, err)
		}
	}
}

func TestToolsTable(t *testing.T) {
	data, err := json.Marshal(mcptest.MetadataTools())
	if err != nil {
		t.Fatal(err)
	}
	var tools []mcp.Tool
	if err := json.Unmarshal(data, &tools); err != nil {
		t.Fatal(err)
	}

	out := testutil.StripANSI(toolsTable(tools, theme.New()))
	for _, want := range []string{"NAME", "TOKENS", "total", explore.ToolGetPredefinedData, "metaType"} {
		if !strings.Contains(out, want) {
			t.Errorf("tools table missing %q:\n%s", want, out)
		}
	}
}
