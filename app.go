package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/dmi-s/rongame/api"
	"github.com/dmi-s/rongame/game/animator"
	"github.com/dmi-s/rongame/game/config"
	"github.com/dmi-s/rongame/game/service"
	"github.com/dmi-s/rongame/game/session"
	"github.com/dmi-s/rongame/logger"
	"github.com/dmi-s/rongame/transport/mcp"
	"github.com/dmi-s/rongame/transport/telegram"
	"github.com/dmi-s/rongame/transport/websocket"
	"github.com/dmi-s/rongame/validate"
)

// appConfig holds what newApp needs from the command line
type appConfig struct {
	ConfigDir     string
	StepDelay     time.Duration
	TelegramToken string
	WebAppURL     string
}

// app is the wired game: managers, service, hub, animator and optional bot
type app struct {
	configs  *config.Manager
	sessions *session.Manager
	hub      *websocket.Hub
	bot      *telegram.Bot
	service  service.GameService
	animator *animator.Animator
}

// newApp wires session/config managers, the game service and its reporters
func newApp(cfg appConfig) (*app, error) {
	configs, err := config.NewManager(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	a := &app{
		configs:  configs,
		sessions: session.NewManager(),
		hub:      websocket.NewHub(),
	}

	reporters := service.MultiReporter{service.LogReporter{}, a.hub}
	if cfg.TelegramToken != "" {
		b, err := telegram.New(telegram.Config{Token: cfg.TelegramToken, WebAppURL: cfg.WebAppURL})
		if err != nil {
			return nil, err
		}
		a.bot = b
		reporters = append(reporters, b)
	}

	a.service = service.NewGameService(a.sessions, configs, service.WithReporter(reporters))
	a.animator = animator.New(a.service, a.hub, animator.Options{StepDelay: cfg.StepDelay})
	return a, nil
}

// start launches the background routines. They stop when ctx is done.
func (a *app) start(ctx context.Context, sessionTTL time.Duration) {
	go a.hub.Run(ctx)
	go sessionCleanupRoutine(ctx, a.sessions, sessionTTL)
	a.watchLevels(ctx)
	if a.bot != nil {
		go a.bot.Start(ctx)
	}
}

// watchLevels logs level files that change on disk while the server runs
func (a *app) watchLevels(ctx context.Context) {
	changes, err := a.configs.Watch(ctx)
	if err != nil {
		logger.Log.WithError(err).Debug("level hot reload disabled")
		return
	}
	go func() {
		for id := range changes {
			logger.Log.WithField("level", id).Info("level changed on disk")
		}
	}()
}

// handler builds the HTTP handler. mcpHandler may be nil.
func (a *app) handler(ctx context.Context, staticDir string, mcpHandler api.MessageHandler) http.Handler {
	opts := []api.Option{
		api.WithAnimator(a.animator),
		api.WithContext(ctx),
	}
	if staticDir != "" {
		opts = append(opts, api.WithStaticDir(staticDir))
	}
	if mcpHandler != nil {
		opts = append(opts, api.WithMCP(mcpHandler))
	}
	return api.NewServer(a.service, a.hub, opts...)
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within maxAge.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, maxAge time.Duration) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				logger.Log.Infof("cleaned up %d expired sessions", removed)
			}
		}
	}
}

// localURL is the address the in-process MCP client dials
func localURL(host string, port int) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// runServer starts the HTTP server with REST API, WebSocket hub, the /mcp
// endpoint and the web view. With --ngrok it also serves through a public
// tunnel, whose URL the bot opens unless --webapp-url is set.
func runServer(ctx context.Context, cmd *cli.Command) error {
	logger.Init(cmd.Bool("debug"))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	host := cmd.String("host")
	port := int(cmd.Int("port"))
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	logger.Log.Infof("starting %s v%s", AppName, Version)

	var tun ngrok.Tunnel
	if cmd.Bool("ngrok") {
		t, err := openTunnel(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"))
		if err != nil {
			logger.Log.WithError(err).Warn("ngrok tunnel not started")
		} else {
			tun = t
			defer func() {
				if err := tun.Close(); err != nil {
					logger.Log.WithError(err).Warn("failed to close ngrok tunnel")
				}
			}()
		}
	}

	webAppURL := cmd.String("webapp-url")
	if webAppURL == "" && tun != nil {
		webAppURL = tun.URL() + "/"
	}

	a, err := newApp(appConfig{
		ConfigDir:     cmd.String("config-dir"),
		StepDelay:     cmd.Duration("step-delay"),
		TelegramToken: cmd.String("telegram-token"),
		WebAppURL:     webAppURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer a.animator.Stop()
	a.start(ctx, cmd.Duration("session-ttl"))

	mcpClient := mcp.NewClient(localURL(host, port))
	handler := a.handler(ctx, cmd.String("static-dir"), mcpClient.GetMCPServer())

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Log.Infof("HTTP server listening on %s", addr)
		logger.Log.Infof("REST API: http://%s/api", addr)
		logger.Log.Infof("WebSocket: ws://%s/ws?session=<session_id>", addr)
		logger.Log.Infof("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if tun != nil {
		go func() {
			if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.WithError(err).Debug("ngrok server stopped")
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Log.Info("shutting down")
	case err := <-serveErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Warn("HTTP server shutdown error")
	}
	logger.Log.Info("server stopped")
	return nil
}

// openTunnel provisions a public HTTPS endpoint for the web view
func openTunnel(ctx context.Context, authToken, domain string) (ngrok.Tunnel, error) {
	if authToken == "" {
		return nil, errors.New("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Log.Infof("using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		return nil, fmt.Errorf("failed to start ngrok tunnel: %w", err)
	}

	url := tun.URL()
	logger.Log.Infof("ngrok tunnel established: %s", url)
	logger.Log.Infof("  REST API (ngrok): %s/api", url)
	logger.Log.Infof("  MCP endpoint (ngrok): %s/mcp", url)
	logger.Log.Infof("  Web view (ngrok): %s/", url)
	return tun, nil
}

// apiAvailable reports whether a RonGame API answers at baseURL
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCP runs an MCP stdio server. It reuses the API at --api-url when
// one answers there; otherwise it starts an internal HTTP API bound to a
// random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	logger.Init(cmd.Bool("debug"))

	baseURL := cmd.String("api-url")
	if apiAvailable(ctx, baseURL) {
		logger.Log.Infof("external API server found at %s, using it for MCP", baseURL)
	} else {
		logger.Log.Info("no external API server found, starting internal HTTP server")

		a, err := newApp(appConfig{
			ConfigDir: cmd.String("config-dir"),
			StepDelay: cmd.Duration("step-delay"),
		})
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer a.animator.Stop()
		a.start(ctx, cmd.Duration("session-ttl"))

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		httpServer := &http.Server{Handler: a.handler(ctx, "", nil)}
		defer httpServer.Close()
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.WithError(err).Error("internal HTTP server error")
			}
		}()

		baseURL = "http://" + listener.Addr().String()
		logger.Log.Infof("internal HTTP server on %s for MCP stdio", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Log.Info("MCP stdio server ready")
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// runBot runs the Telegram bot alone until interrupted
func runBot(ctx context.Context, cmd *cli.Command) error {
	logger.Init(cmd.Bool("debug"))

	b, err := telegram.New(telegram.Config{
		Token:     cmd.String("telegram-token"),
		WebAppURL: cmd.String("webapp-url"),
	})
	if err != nil {
		return err
	}
	b.Start(ctx)
	return nil
}

// runValidate checks the level files in the given directory, or
// --config-dir, and fails if any of them is broken
func runValidate(ctx context.Context, cmd *cli.Command) error {
	logger.Init(cmd.Bool("debug"))

	dir := cmd.Args().First()
	if dir == "" {
		dir = cmd.String("config-dir")
	}

	results, err := validate.Dir(dir)
	if err != nil {
		return err
	}
	if !validate.Print(cmd.Root().Writer, results) {
		return errors.New("some levels have errors")
	}
	return nil
}
