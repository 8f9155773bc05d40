// Package orchestrator coordinates the chat games: it parses inbound
// chat into commands, enforces the single-active-game rule, owns the
// ledger and its persistence, and gives sessions their narrow window
// onto the chat platform.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"chat-games-bot/internal/config"
	"chat-games-bot/internal/game"
	"chat-games-bot/internal/ledger"
	"chat-games-bot/internal/model"
	"chat-games-bot/internal/platform"
	"chat-games-bot/internal/store"
)

// Orchestrator is the process-wide game coordinator. Construct one at
// startup, call Start, and feed it chat and mail events.
type Orchestrator struct {
	cfg    *config.Config
	ledger *ledger.Ledger
	store  store.Store
	msg    platform.Messenger
	mail   platform.Mailer
	shop   platform.Shop
	trivia platform.Trivia
	exec   platform.Exec

	mu      sync.Mutex
	active  game.Session
	running bool

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// Deps holds everything the orchestrator needs.
type Deps struct {
	Config    *config.Config
	Ledger    *ledger.Ledger
	Store     store.Store
	Messenger platform.Messenger
	Mailer    platform.Mailer
	Shop      platform.Shop
	Trivia    platform.Trivia
	Exec      platform.Exec
}

// New creates an Orchestrator. It does not load state or start timers;
// call Start for that.
func New(deps *Deps) *Orchestrator {
	return &Orchestrator{
		cfg:    deps.Config,
		ledger: deps.Ledger,
		store:  deps.Store,
		msg:    deps.Messenger,
		mail:   deps.Mailer,
		shop:   deps.Shop,
		trivia: deps.Trivia,
		exec:   deps.Exec,
	}
}

// Start loads the persisted ledger and begins the periodic save job.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return nil
	}

	o.ctx, o.cancel = context.WithCancel(ctx)

	data, err := o.store.Load(o.ctx)
	if err != nil {
		// Best-effort load: a missing or unreadable record starts fresh.
		log.Warn().Err(err).Msg("Ledger load failed, starting with defaults")
	} else {
		o.ledger.Restore(ledger.DecodeSnapshot(data))
	}

	o.cron = cron.New()
	interval := o.cfg.Persist.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	if _, err := o.cron.AddFunc(fmt.Sprintf("@every %s", interval), o.persist); err != nil {
		return fmt.Errorf("scheduling ledger persistence: %w", err)
	}
	o.cron.Start()

	o.running = true
	log.Info().
		Int64("public_pool", o.ledger.PublicPool()).
		Int64("jackpot", o.ledger.Jackpot()).
		Int64("games", o.ledger.GamesCount()).
		Msg("Game orchestrator started")
	return nil
}

// Stop cancels the active session, stops the save job and persists.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	active := o.active
	c := o.cron
	o.mu.Unlock()

	if active != nil {
		active.Stop()
	}
	if c != nil {
		c.Stop()
	}
	o.persist()
	if o.cancel != nil {
		o.cancel()
	}
	log.Info().Msg("Game orchestrator stopped")
}

// HandleChat processes one line of channel chat. It never panics out:
// any unexpected failure triggers an emergency reset so the system is
// never left with a dead state machine holding the active slot.
func (o *Orchestrator) HandleChat(sender, message string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("sender", sender).Msg("Panic handling chat")
			o.EmergencyReset()
		}
	}()

	if !o.isRunning() {
		return
	}

	text := stripChatPrefix(message)
	if text == "" {
		return
	}

	// Active session sees every line first: guesses, etc.
	if s := o.activeSession(); s != nil {
		s.HandleChat(sender, text)
	}

	o.dispatch(sender, text)
}

// HandleMail processes inbound mail. Mail with attached meat is a
// donation; other mail goes to the active session (fake answers).
func (o *Orchestrator) HandleMail(sender, content string, meat int64) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("sender", sender).Msg("Panic handling mail")
			o.EmergencyReset()
		}
	}()

	if !o.isRunning() {
		return
	}

	if meat > 0 {
		o.handleDonation(sender, meat)
		return
	}

	if s := o.activeSession(); s != nil {
		s.HandleMail(sender, content)
	}
}

// handleDonation splits a mailed meat donation between the donor's
// personal balance and the public pool, and thanks the donor.
func (o *Orchestrator) handleDonation(sender string, meat int64) {
	allocated, public := o.ledger.Donate(sender, meat)
	log.Info().
		Str("donor", sender).
		Int64("meat", meat).
		Int64("allocated", allocated).
		Int64("public", public).
		Msg("Processed donation")

	if err := o.mail.SendPrize(o.ctx, sender, "yo thanks for helping out!", 0); err != nil {
		log.Warn().Err(err).Str("donor", sender).Msg("Thank-you mail failed")
	}
	o.persist()
}

// EmergencyReset cancels and discards the active session, announces the
// reset and persists the ledger.
func (o *Orchestrator) EmergencyReset() {
	o.msg.SendChannel("Game system error - all games cancelled. Sorry for the inconvenience!")

	if s := o.activeSession(); s != nil {
		s.Stop()
	}
	o.clearActive()
	o.persist()
}

func (o *Orchestrator) isRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) activeSession() game.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

func (o *Orchestrator) clearActive() {
	o.mu.Lock()
	o.active = nil
	o.mu.Unlock()
}

// setActive installs a session into the single active-game slot.
// Returns false without installing if a session is already active, so
// a concurrent start cannot race past the check.
func (o *Orchestrator) setActive(s game.Session) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil {
		return false
	}
	o.active = s
	return true
}

// persist writes the ledger snapshot through the configured store.
func (o *Orchestrator) persist() {
	ctx := o.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := ledger.EncodeSnapshot(o.ledger.Snapshot())
	if err != nil {
		log.Error().Err(err).Msg("Ledger snapshot encode failed")
		return
	}
	if err := o.store.Save(ctx, data); err != nil {
		log.Error().Err(err).Msg("Ledger persist failed")
	}
}

// The methods below are the game.Manager surface handed to sessions.

// SendChannel posts to the games channel.
func (o *Orchestrator) SendChannel(text string) { o.msg.SendChannel(text) }

// SendPrivate sends a private message to one player.
func (o *Orchestrator) SendPrivate(recipient, text string) { o.msg.SendPrivate(recipient, text) }

// SendPrize delivers mail with attached currency.
func (o *Orchestrator) SendPrize(recipient, text string, amount int64) error {
	ctx := o.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return o.mail.SendPrize(ctx, recipient, text, amount)
}

// ReportAdminError surfaces a collaborator failure to the admins.
func (o *Orchestrator) ReportAdminError(scope string, err error) {
	log.Error().Err(err).Str("scope", scope).Msg("Game collaborator error")
	for _, admin := range o.cfg.Admin.Names {
		o.msg.SendPrivate(admin, fmt.Sprintf("ERROR in %s: %v", scope, err))
		break
	}
}

// AddJackpot adds to the jackpot.
func (o *Orchestrator) AddJackpot(amount int64) { o.ledger.AddJackpot(amount) }

// JackpotOdds returns the current jackpot roll denominator.
func (o *Orchestrator) JackpotOdds() int64 { return o.ledger.JackpotOdds() }

// Jackpot returns the jackpot balance.
func (o *Orchestrator) Jackpot() int64 { return o.ledger.Jackpot() }

// WinJackpot pays out and resets the jackpot.
func (o *Orchestrator) WinJackpot() int64 { return o.ledger.WinJackpot() }

// BumpStreak records a game without a jackpot win.
func (o *Orchestrator) BumpStreak() { o.ledger.BumpStreak() }

// GamesCount returns the completed-games counter.
func (o *Orchestrator) GamesCount() int64 { return o.ledger.GamesCount() }

// SessionDone clears the active slot, counts the game and persists.
func (o *Orchestrator) SessionDone(kind model.GameKind) {
	o.clearActive()
	count := o.ledger.IncrementGames()
	log.Info().Str("kind", string(kind)).Int64("games", count).Msg("Game session finished")
	o.persist()
}
