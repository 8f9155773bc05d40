// Package main is the entry point for the chat games bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chat-games-bot/internal/config"
	"chat-games-bot/internal/ledger"
	"chat-games-bot/internal/orchestrator"
	"chat-games-bot/internal/pkg/db"
	"chat-games-bot/internal/platform/hostexec"
	"chat-games-bot/internal/platform/memshop"
	"chat-games-bot/internal/platform/telegram"
	"chat-games-bot/internal/platform/trivia"
	"chat-games-bot/internal/store"
)

const startingTicketStock = 1000

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshotStore, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open snapshot store")
	}
	defer snapshotStore.Close()

	book := ledger.New(
		ledger.WithDailyCap(cfg.Ledger.DailyCap),
		ledger.WithDonorShare(cfg.Ledger.DonorShare),
		ledger.WithAdminCheck(cfg.IsAdmin),
	)

	shop := memshop.New(startingTicketStock)

	bot, err := telegram.New(cfg, shop)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	orch := orchestrator.New(&orchestrator.Deps{
		Config:    cfg,
		Ledger:    book,
		Store:     snapshotStore,
		Messenger: bot,
		Mailer:    bot,
		Shop:      shop,
		Trivia:    trivia.New(),
		Exec:      hostexec.New(30 * time.Second),
	})
	bot.SetRouter(orch)

	if err := orch.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start game orchestrator")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		bot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	bot.Stop()
	orch.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// newStore picks the snapshot backend from configuration.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "postgres":
		pool, err := db.NewPool(ctx, &cfg.Store.Database)
		if err != nil {
			return nil, err
		}
		return store.NewPostgresStore(ctx, pool)
	default:
		return store.NewFileStore(cfg.Store.FilePath)
	}
}
