package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dmi-s/rongame/game/animator"
	"github.com/dmi-s/rongame/game/session"
	"github.com/dmi-s/rongame/logger"
	"github.com/dmi-s/rongame/transport/mcp"
	"github.com/dmi-s/rongame/transport/telegram"
)

const testLevel = `{
	"name": "tiny",
	"width": 3,
	"height": 3,
	"layout": ["S.L", "...", "C.F"],
	"robots": [{"id": 1, "start": {"x": 0, "y": 0}, "finish": {"x": 2, "y": 2}}]
}`

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "RonGame Server" {
		t.Errorf("Expected app name RonGame Server, got %s", AppName)
	}
}

func TestNewCommand_Subcommands(t *testing.T) {
	cmd := newCommand()
	if cmd.Action == nil {
		t.Fatal("Root command should run the server")
	}

	want := map[string][]string{
		"server":   {"http"},
		"mcp":      {"stdio-mcp", "mcp-stdio"},
		"bot":      nil,
		"validate": nil,
	}
	if len(cmd.Commands) != len(want) {
		t.Fatalf("Expected %d subcommands, got %d", len(want), len(cmd.Commands))
	}
	for _, sub := range cmd.Commands {
		aliases, ok := want[sub.Name]
		if !ok {
			t.Errorf("Unexpected subcommand %s", sub.Name)
			continue
		}
		if strings.Join(sub.Aliases, ",") != strings.Join(aliases, ",") {
			t.Errorf("Subcommand %s: expected aliases %v, got %v", sub.Name, aliases, sub.Aliases)
		}
		if sub.Action == nil {
			t.Errorf("Subcommand %s has no action", sub.Name)
		}
	}
}

func TestServerFlags_Defaults(t *testing.T) {
	flags := make(map[string]cli.Flag)
	for _, f := range serverFlags() {
		flags[f.Names()[0]] = f
	}

	if f, ok := flags["port"].(*cli.IntFlag); !ok || f.Value != 8080 {
		t.Errorf("Expected port 8080, got %#v", flags["port"])
	}
	if f, ok := flags["host"].(*cli.StringFlag); !ok || f.Value != "localhost" {
		t.Errorf("Expected host localhost, got %#v", flags["host"])
	}
	if f, ok := flags["config-dir"].(*cli.StringFlag); !ok || f.Value != "configs" {
		t.Errorf("Expected config dir configs, got %#v", flags["config-dir"])
	}
	if f, ok := flags["static-dir"].(*cli.StringFlag); !ok || f.Value != "./static/" {
		t.Errorf("Expected static dir ./static/, got %#v", flags["static-dir"])
	}
	if f, ok := flags["step-delay"].(*cli.DurationFlag); !ok || f.Value != animator.DefaultStepDelay {
		t.Errorf("Expected default step delay, got %#v", flags["step-delay"])
	}
	if f, ok := flags["session-ttl"].(*cli.DurationFlag); !ok || f.Value != 24*time.Hour {
		t.Errorf("Expected 24h session TTL, got %#v", flags["session-ttl"])
	}
	for _, name := range []string{"debug", "telegram-token", "webapp-url", "ngrok", "ngrok-auth", "ngrok-domain"} {
		if _, ok := flags[name]; !ok {
			t.Errorf("Missing flag %s", name)
		}
	}
}

func TestServerFlags_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("CONFIG_DIR", "elsewhere")

	cmd := newCommand()
	var port int64
	var dir string
	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		port = int64(c.Int("port"))
		dir = c.String("config-dir")
		return nil
	}

	if err := cmd.Run(context.Background(), []string{"rongame"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if port != 9191 || dir != "elsewhere" {
		t.Errorf("Expected env values, got port %d dir %q", port, dir)
	}
}

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tiny.json"), []byte(testLevel), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out
	if err := cmd.Run(context.Background(), []string{"rongame", "validate", dir}); err != nil {
		t.Fatalf("Expected valid levels, got %v", err)
	}
	if !strings.Contains(out.String(), "tiny.json") || !strings.Contains(out.String(), "All levels are valid") {
		t.Errorf("Unexpected report:\n%s", out.String())
	}
}

func TestRunValidate_Invalid(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"name":`), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out
	err := cmd.Run(context.Background(), []string{"rongame", "validate", dir})
	if err == nil || !strings.Contains(err.Error(), "some levels have errors") {
		t.Errorf("Expected validation failure, got %v", err)
	}
	if !strings.Contains(out.String(), "INVALID") {
		t.Errorf("Expected INVALID in report:\n%s", out.String())
	}
}

func TestRunBot_RequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("BOT_TOKEN", "")

	err := newCommand().Run(context.Background(), []string{"rongame", "bot"})
	if !errors.Is(err, telegram.ErrNoToken) {
		t.Errorf("Expected ErrNoToken, got %v", err)
	}
}

func TestNewApp(t *testing.T) {
	logger.Discard()

	a, err := newApp(appConfig{ConfigDir: t.TempDir(), StepDelay: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	if a.service == nil || a.hub == nil || a.animator == nil {
		t.Fatal("Expected wired service, hub and animator")
	}
	if a.bot != nil {
		t.Error("Expected no bot without a token")
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.start(ctx, time.Hour)
	cancel()
	a.animator.Stop()
}

func TestApp_Handler(t *testing.T) {
	logger.Discard()

	a, err := newApp(appConfig{ConfigDir: t.TempDir()})
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.hub.Run(ctx)

	mcpClient := mcp.NewClient("http://127.0.0.1:1")
	srv := httptest.NewServer(a.handler(ctx, t.TempDir(), mcpClient.GetMCPServer()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from health, got %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/sessions", "application/json", strings.NewReader(`{"game":"15-puzzle"}`))
	if err != nil {
		t.Fatalf("Create request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		t.Errorf("Expected session to be created, got %d", resp.StatusCode)
	}
	if n := a.sessions.Count(); n != 1 {
		t.Errorf("Expected 1 session, got %d", n)
	}

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	resp, err = http.Post(srv.URL+"/mcp", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("MCP request failed: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || !strings.Contains(buf.String(), "create_session") {
		t.Errorf("Expected tool list from /mcp, got %d %s", resp.StatusCode, buf.String())
	}
}

func TestAPIAvailable(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"healthy", healthy.URL, true},
		{"server error", broken.URL, false},
		{"nothing listening", closedURL, false},
		{"bad url", "://nope", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apiAvailable(context.Background(), tt.url); got != tt.want {
				t.Errorf("apiAvailable(%s) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestLocalURL(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"localhost", "http://localhost:8080"},
		{"", "http://127.0.0.1:8080"},
		{"0.0.0.0", "http://127.0.0.1:8080"},
		{"::", "http://127.0.0.1:8080"},
		{"::1", "http://[::1]:8080"},
	}

	for _, tt := range tests {
		if got := localURL(tt.host, 8080); got != tt.want {
			t.Errorf("localURL(%q) = %s, want %s", tt.host, got, tt.want)
		}
	}
}

func TestOpenTunnel_RequiresToken(t *testing.T) {
	if _, err := openTunnel(context.Background(), "", ""); err == nil {
		t.Error("Expected error without an auth token")
	}
}

func TestSessionCleanupRoutine_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sessionCleanupRoutine(ctx, session.NewManager(), time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup routine did not stop")
	}
}
