package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"

	"github.com/dmi-s/rongame/game/service"
)

// Report posts a won game to the chat that opened the session. Sessions
// without a chat are skipped.
func (b *Bot) Report(ctx context.Context, result service.GameResult) error {
	if result.ChatID == 0 {
		return nil
	}

	_, err := b.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: result.ChatID,
		Text:   result.ShareText,
	})
	if err != nil {
		return fmt.Errorf("failed to send result to chat %d: %w", result.ChatID, err)
	}
	return nil
}
