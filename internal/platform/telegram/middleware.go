package telegram

import (
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-games-bot/internal/config"
)

// WhitelistMiddleware drops updates from non-whitelisted group chats.
// Private chats are always allowed; they only reach the mail stream.
func WhitelistMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil {
				return nil
			}
			if chat.Type == tele.ChatPrivate {
				return next(c)
			}
			if !cfg.IsChatAllowed(chat.ID) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Msg("Ignoring message from non-whitelisted chat")
				return nil
			}
			return next(c)
		}
	}
}

// LoggingMiddleware logs each handled update with its latency.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)

			event := log.Debug()
			if err != nil {
				event = log.Error().Err(err)
			}
			if sender := c.Sender(); sender != nil {
				event = event.Int64("user_id", sender.ID)
			}
			if chat := c.Chat(); chat != nil {
				event = event.Int64("chat_id", chat.ID)
			}
			event.Dur("latency", time.Since(start)).Msg("Update handled")
			return err
		}
	}
}
