// Command rongame starts the RonGame server.
//
// It supports four modes:
//  1. "server" (default) – runs the HTTP server with the REST API, WebSocket, the
//     /mcp endpoint, the web view and, with a token, the Telegram bot
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "bot" – runs only the Telegram bot that launches the web view
//  4. "validate" – checks level files and exits non-zero if any is broken
//
// Every flag can also be set from the environment or a .env file.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/dmi-s/rongame/game/animator"
	"github.com/dmi-s/rongame/logger"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "RonGame Server"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			logger.Log.Warnf("error loading .env file: %v", err)
		}
	} else {
		logger.Log.Info("loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		logger.Log.Fatal(err)
	}
}

// newCommand builds the command tree. The root command runs the server.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "rongame",
		Usage:   AppName,
		Version: Version,
		Flags:   serverFlags(),
		Action:  runServer,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, MCP endpoint and web view",
				Flags:   serverFlags(),
				Action:  runServer,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server, using an internal HTTP server if no external one answers",
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://localhost:8080",
						Usage:   "RonGame API to play against",
						Sources: cli.EnvVars("API_URL"),
					},
				),
				Action: runStdioMCP,
			},
			{
				Name:  "bot",
				Usage: "Run only the Telegram bot",
				Flags: []cli.Flag{
					debugFlag(),
					tokenFlag(),
					webAppFlag(),
				},
				Action: runBot,
			},
			{
				Name:      "validate",
				Usage:     "Validate level files",
				ArgsUsage: "[dir]",
				Flags:     []cli.Flag{debugFlag(), configDirFlag()},
				Action:    runValidate,
			},
		},
	}
}

func debugFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "debug",
		Usage:   "Enable debug logging",
		Sources: cli.EnvVars("DEBUG"),
	}
}

func configDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config-dir",
		Value:   "configs",
		Usage:   "Directory containing level files",
		Sources: cli.EnvVars("CONFIG_DIR"),
	}
}

func tokenFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "telegram-token",
		Usage:   "Telegram bot token; the bot is off without one",
		Sources: cli.EnvVars("TELEGRAM_TOKEN", "BOT_TOKEN"),
	}
}

func webAppFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "webapp-url",
		Usage:   "URL the bot's launch button opens (defaults to the ngrok URL, then the published page)",
		Sources: cli.EnvVars("WEBAPP_URL"),
	}
}

// commonFlags are shared by every mode that runs the game
func commonFlags() []cli.Flag {
	return []cli.Flag{
		debugFlag(),
		configDirFlag(),
		&cli.DurationFlag{
			Name:    "step-delay",
			Value:   animator.DefaultStepDelay,
			Usage:   "Delay between two robot steps",
			Sources: cli.EnvVars("STEP_DELAY"),
		},
		&cli.DurationFlag{
			Name:    "session-ttl",
			Value:   24 * time.Hour,
			Usage:   "Idle time after which a session is removed",
			Sources: cli.EnvVars("SESSION_TTL"),
		},
	}
}

func serverFlags() []cli.Flag {
	return append(commonFlags(),
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "HTTP server port",
			Sources: cli.EnvVars("PORT"),
		},
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "HTTP server host",
			Sources: cli.EnvVars("HOST"),
		},
		&cli.StringFlag{
			Name:    "static-dir",
			Value:   "./static/",
			Usage:   "Directory with the web view",
			Sources: cli.EnvVars("STATIC_DIR"),
		},
		tokenFlag(),
		webAppFlag(),
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "Enable ngrok tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "Ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "Custom ngrok domain (optional)",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	)
}
