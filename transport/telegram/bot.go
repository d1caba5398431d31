package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dmi-s/rongame/game/puzzle"
	"github.com/dmi-s/rongame/game/service"
	"github.com/dmi-s/rongame/logger"
)

// DefaultWebAppURL is the published web view
const DefaultWebAppURL = "https://dmi-s.github.io/RonGame/webapp/index.html"

const (
	welcomeText = "🎮 Добро пожаловать в игру 'Логистические роботы'!\n" +
		"Нажмите кнопку ниже, чтобы начать игру."
	launchButton = "Запустить игру"

	helpText = `
🤖 *Логистические роботы* - игра-головоломка

*Правила игры:*
• Переместите всех роботов на свои места выгрузки
• Роботы должны заряжаться при низком заряде (<25%)
• Перед выгрузкой роботы должны загрузиться на станции погрузки
• Избегайте столкновений с препятствиями и другими роботами

*Управление:*
1. Нажмите на робота для выбора
2. Кликайте по клеткам для построения маршрута
3. Робот автоматически поедет по построенному пути

Удачи! 🚀
`
)

var ErrNoToken = errors.New("telegram token is not set")

// Sender is the part of the Bot API the handlers call
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Config holds bot settings
type Config struct {
	Token     string
	WebAppURL string
}

// Bot launches the web view from chat and posts results back to it
type Bot struct {
	client    *bot.Bot
	sender    Sender
	webAppURL string
	now       func() time.Time
}

// New creates a bot for cfg.Token. Call Start to begin polling.
func New(cfg Config) (*Bot, error) {
	if cfg.Token == "" {
		return nil, ErrNoToken
	}
	b := newBot(nil, cfg.WebAppURL)

	client, err := bot.New(cfg.Token,
		bot.WithSkipGetMe(),
		bot.WithDefaultHandler(b.handleDefault),
		bot.WithErrorsHandler(func(err error) {
			logger.Log.WithError(err).Warn("telegram error")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	client.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)
	client.RegisterHandler(bot.HandlerTypeMessageText, "/game", bot.MatchTypePrefix, b.handleStart)
	client.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, b.handleHelp)

	b.client = client
	b.sender = client
	return b, nil
}

func newBot(sender Sender, webAppURL string) *Bot {
	if webAppURL == "" {
		webAppURL = DefaultWebAppURL
	}
	return &Bot{
		sender:    sender,
		webAppURL: webAppURL,
		now:       time.Now,
	}
}

// Start registers the command menu and polls for updates until ctx is done
func (b *Bot) Start(ctx context.Context) {
	_, err := b.client.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: []models.BotCommand{
			{Command: "start", Description: "Запустить игру"},
			{Command: "game", Description: "Запустить игру"},
			{Command: "help", Description: "Правила игры"},
		},
	})
	if err != nil {
		logger.Log.WithError(err).Warn("failed to set bot commands")
	}

	logger.Log.Info("telegram bot started")
	b.client.Start(ctx)
	logger.Log.Info("telegram bot stopped")
}

// LaunchURL builds the web view link. The timestamp defeats the chat
// client's page cache.
func (b *Bot) LaunchURL(game service.GameKind) string {
	u, err := url.Parse(b.webAppURL)
	if err != nil {
		return b.webAppURL
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(b.now().Unix(), 10))
	if game != "" {
		q.Set("game", string(game))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// gameArg reads the optional game after a command, "/game puzzle"
func gameArg(text string) service.GameKind {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return service.GameLogistics
	}
	switch strings.ToLower(fields[1]) {
	case "15", "puzzle", string(service.GamePuzzle):
		return service.GamePuzzle
	}
	return service.GameLogistics
}

func (b *Bot) handleStart(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	_, err := b.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   welcomeText,
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{
				{Text: launchButton, WebApp: &models.WebAppInfo{URL: b.LaunchURL(gameArg(update.Message.Text))}},
			}},
		},
	})
	if err != nil {
		logger.Log.WithError(err).WithField("chat", update.Message.Chat.ID).Warn("failed to send welcome")
	}
}

func (b *Bot) handleHelp(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	_, err := b.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      helpText,
		ParseMode: models.ParseModeMarkdownV1,
	})
	if err != nil {
		logger.Log.WithError(err).WithField("chat", update.Message.Chat.ID).Warn("failed to send help")
	}
}

// handleDefault acknowledges data the web view sends back with sendData
func (b *Bot) handleDefault(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.WebAppData == nil {
		return
	}

	text := webAppReply(update.Message.WebAppData.Data)
	if text == "" {
		return
	}
	_, err := b.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
	if err != nil {
		logger.Log.WithError(err).WithField("chat", update.Message.Chat.ID).Warn("failed to acknowledge web app data")
	}
}

// webAppReply turns a result payload or share text into the bot's answer
func webAppReply(data string) string {
	data = strings.TrimSpace(data)
	if data == "" {
		return ""
	}

	var result puzzle.Result
	if err := json.Unmarshal([]byte(data), &result); err == nil && result.Game != "" {
		return fmt.Sprintf("✅ Результат получен: %d ходов за %s (%s)",
			result.Moves, puzzle.FormatElapsed(time.Duration(result.Time)*time.Second), result.Game)
	}
	return data
}
