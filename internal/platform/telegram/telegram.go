// Package telegram adapts the game core to Telegram. Group text in
// the games channel is treated as the public chat stream, private text
// as in-game mail, and prize delivery becomes a private message since
// Telegram has no native currency attachment.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-games-bot/internal/config"
	"chat-games-bot/internal/model"
	"chat-games-bot/internal/platform/memshop"
)

// Router receives the two inbound event streams.
type Router interface {
	HandleChat(sender, message string)
	HandleMail(sender, content string, meat int64)
}

// Bot wraps the telebot instance and implements platform.Messenger
// and platform.Mailer.
type Bot struct {
	bot    *tele.Bot
	cfg    *config.Config
	router Router
	shop   *memshop.Shop

	mu    sync.Mutex
	users map[string]int64 // lowercase display name -> telegram user ID
}

// New creates a Bot and registers its handlers. Set the router with
// SetRouter before calling Start.
func New(cfg *config.Config, shop *memshop.Shop) (*Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:   teleBot,
		cfg:   cfg,
		shop:  shop,
		users: make(map[string]int64),
	}

	b.bot.Use(WhitelistMiddleware(cfg))
	b.bot.Use(LoggingMiddleware())
	b.bot.Handle(tele.OnText, b.handleText)

	return b, nil
}

// SetRouter wires the inbound event consumer.
func (b *Bot) SetRouter(r Router) { b.router = r }

// Start begins long polling. Blocks until Stop.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop halts polling.
func (b *Bot) Stop() {
	b.bot.Stop()
	log.Info().Msg("Bot stopped")
}

func (b *Bot) handleText(c tele.Context) error {
	chat := c.Chat()
	sender := c.Sender()
	if chat == nil || sender == nil || b.router == nil {
		return nil
	}

	name := senderName(sender)
	b.remember(name, sender.ID)
	text := strings.TrimSpace(c.Text())

	if chat.Type == tele.ChatPrivate {
		b.handlePrivate(name, text)
		return nil
	}
	if chat.ID != b.cfg.Bot.GamesChannel {
		return nil
	}

	// Ticket purchases bypass the command layer and hit the shop
	// directly, mirroring an item-shop platform.
	if qty, ok := parseBuy(text); ok {
		if err := b.shop.Buy(name, qty); err != nil {
			b.SendPrivate(name, "no tickets available right now")
		}
		return nil
	}

	b.router.HandleChat(name, text)
	return nil
}

// handlePrivate maps private text onto the mail stream. "donate <amt>"
// carries currency; everything else is plain mail (fake answers).
func (b *Bot) handlePrivate(name, text string) {
	fields := strings.Fields(text)
	if len(fields) == 2 && strings.EqualFold(fields[0], "donate") {
		if amount, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64); err == nil && amount > 0 {
			b.router.HandleMail(name, "", amount)
			return
		}
	}
	b.router.HandleMail(name, text, 0)
}

// SendChannel posts to the games channel.
func (b *Bot) SendChannel(text string) {
	if _, err := b.bot.Send(tele.ChatID(b.cfg.Bot.GamesChannel), text); err != nil {
		log.Warn().Err(err).Msg("Failed to send channel message")
	}
}

// SendPrivate sends a private message. Unknown recipients are dropped
// with a log entry; chat delivery is always best effort.
func (b *Bot) SendPrivate(recipient, text string) {
	id, ok := b.lookup(recipient)
	if !ok {
		log.Warn().Str("recipient", recipient).Msg("No known user ID for private message")
		return
	}
	if _, err := b.bot.Send(tele.ChatID(id), text); err != nil {
		log.Warn().Err(err).Str("recipient", recipient).Msg("Failed to send private message")
	}
}

// SendPrize delivers a prize notification. The failure is returned so
// the game can fall back to an admin report.
func (b *Bot) SendPrize(_ context.Context, recipient, text string, amount int64) error {
	id, ok := b.lookup(recipient)
	if !ok {
		return fmt.Errorf("telegram: no known user ID for %q", recipient)
	}
	body := fmt.Sprintf("%s (%s meat)", text, model.FormatMeat(amount))
	if _, err := b.bot.Send(tele.ChatID(id), body); err != nil {
		return fmt.Errorf("telegram: prize delivery to %q failed: %w", recipient, err)
	}
	return nil
}

func (b *Bot) remember(name string, id int64) {
	b.mu.Lock()
	b.users[strings.ToLower(name)] = id
	b.mu.Unlock()
}

func (b *Bot) lookup(name string) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.users[strings.ToLower(name)]
	return id, ok
}

func senderName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// parseBuy recognizes "buy" and "buy <n>".
func parseBuy(text string) (int, bool) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 || fields[0] != "buy" {
		return 0, false
	}
	if len(fields) == 1 {
		return 1, true
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
