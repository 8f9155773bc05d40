// Package raffle implements the ticket raffle game ("AR").
//
// Lifecycle: Setup -> Active -> Drawing -> Finished. Setup reserves the
// ticket slots from the shop and fails closed if that does not work.
// Active runs for the configured window with two warning announcements;
// Drawing pulls the remaining tickets, picks a winner by uniform ordinal
// over the tickets actually sold, splits the prize roll 90/10 between
// the winner and the jackpot, and rolls for the jackpot itself.
package raffle

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"chat-games-bot/internal/game"
	"chat-games-bot/internal/model"
	"chat-games-bot/internal/pkg/sched"
	"chat-games-bot/internal/platform"
)

const (
	// DefaultDuration is the ticket sale window.
	DefaultDuration = 5 * time.Minute
	// DefaultDrawBuffer trails the window so the draw never races the
	// last ticket sale.
	DefaultDrawBuffer = 5 * time.Second
	// DefaultTicketSlots is how many tickets are listed.
	DefaultTicketSlots = 10
	// DefaultTicketPrice is the listing price per ticket.
	DefaultTicketPrice int64 = 100

	// resultPause separates the result announcements for suspense.
	resultPause = 5 * time.Second
)

// ErrGameOver is returned by Start on a session that already ran.
var ErrGameOver = errors.New("raffle session already finished")

// Config holds raffle timing and ticket parameters.
type Config struct {
	Duration    time.Duration
	DrawBuffer  time.Duration
	TicketSlots int
	TicketPrice int64
}

func (c *Config) fill() {
	if c.Duration <= 0 {
		c.Duration = DefaultDuration
	}
	if c.DrawBuffer <= 0 {
		c.DrawBuffer = DefaultDrawBuffer
	}
	if c.TicketSlots <= 0 {
		c.TicketSlots = DefaultTicketSlots
	}
	if c.TicketPrice <= 0 {
		c.TicketPrice = DefaultTicketPrice
	}
}

// Session is one raffle game.
type Session struct {
	host  string
	prize int64
	mgr   game.Manager
	shop  platform.Shop
	cfg   Config

	mu        sync.Mutex
	phase     game.Phase
	slot      platform.SlotHandle
	startTime time.Time
	gameSize  int
	done      bool

	sched *sched.Scheduler
	rng   *rand.Rand
	ctx   context.Context
}

// Option configures a Session.
type Option func(*Session)

// WithRand overrides the random source, for tests.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.rng = r }
}

// New creates a raffle session in the setup phase.
func New(host string, prize int64, mgr game.Manager, shop platform.Shop, cfg Config, opts ...Option) *Session {
	cfg.fill()
	s := &Session{
		host:  host,
		prize: prize,
		mgr:   mgr,
		shop:  shop,
		cfg:   cfg,
		phase: game.PhaseSetup,
		sched: sched.New(),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind returns the game kind.
func (s *Session) Kind() model.GameKind { return model.KindRaffle }

// Host returns the player who funded the game.
func (s *Session) Host() string { return s.host }

// Prize returns the prize pool.
func (s *Session) Prize() int64 { return s.prize }

// Phase returns the current phase.
func (s *Session) Phase() game.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Start reserves the ticket slots and opens the sale window. If the
// shop reservation fails, the session never becomes visible and the
// error is returned to the caller.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != game.PhaseSetup || s.done {
		return ErrGameOver
	}

	slot, err := s.shop.ReserveSlot(ctx, s.cfg.TicketSlots, s.cfg.TicketPrice)
	if err != nil {
		return fmt.Errorf("ticket setup failed: %w", err)
	}

	s.ctx = ctx
	s.slot = slot
	s.phase = game.PhaseActive
	s.startTime = time.Now()

	s.mgr.SendChannel(fmt.Sprintf("AR requested by %s with prize 1d%s meat !!",
		s.host, model.FormatMeat(s.prize)))

	s.sched.After(s.cfg.Duration-time.Minute, func() {
		s.announceIfActive("pulling in 1 minute.")
	})
	s.sched.After(s.cfg.Duration-30*time.Second, func() {
		s.announceIfActive("pulling in 30 seconds.")
	})
	s.sched.After(s.cfg.Duration+s.cfg.DrawBuffer, s.draw)

	log.Info().Str("host", s.host).Int64("prize", s.prize).Msg("Raffle started")
	return nil
}

func (s *Session) announceIfActive(text string) {
	s.mu.Lock()
	active := s.phase == game.PhaseActive && !s.done
	s.mu.Unlock()
	if active {
		s.mgr.SendChannel(text)
	}
}

// draw closes the sale, counts sold tickets and picks the winner.
func (s *Session) draw() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != game.PhaseActive || s.done {
		return
	}
	s.phase = game.PhaseDrawing

	s.mgr.SendChannel("pulling tickets.")

	remaining, err := s.shop.Remaining(s.ctx, s.slot)
	if err != nil {
		s.emergencyLocked("reading remaining tickets", err)
		return
	}
	purchases, err := s.shop.SalesLog(s.ctx, s.slot)
	if err != nil {
		s.emergencyLocked("reading sales log", err)
		return
	}
	if err := s.shop.ReleaseSlot(s.ctx, s.slot); err != nil {
		log.Warn().Err(err).Msg("Failed to release ticket slot after draw")
	}

	s.gameSize = s.cfg.TicketSlots - remaining

	if s.gameSize == 0 {
		s.mgr.SendChannel("No tickets sold! Game cancelled.")
		s.finishLocked()
		return
	}

	ordinal := int(s.rng.Int63n(int64(s.gameSize))) + 1
	if ordinal > len(purchases) {
		s.mgr.SendChannel("Error selecting winner! Game cancelled.")
		s.finishLocked()
		return
	}
	winner := purchases[ordinal-1]

	s.mgr.SendChannel(fmt.Sprintf("game ended !! rolling 1d%d gives %d...", s.gameSize, ordinal))

	amount := s.rng.Int63n(s.prize) + 1
	playerAmount := amount * 9 / 10
	jackpotAmount := amount - playerAmount

	s.sched.After(resultPause, func() {
		s.announceWin(winner, playerAmount, jackpotAmount)
	})
}

// announceWin credits the jackpot share and sets up the jackpot roll.
func (s *Session) announceWin(winner model.Purchase, playerAmount, jackpotAmount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != game.PhaseDrawing || s.done {
		return
	}

	s.mgr.AddJackpot(jackpotAmount)
	odds := s.mgr.JackpotOdds()

	s.mgr.SendChannel(fmt.Sprintf(
		"%s bought %d %s and won %s meat. %s meat has been added to the jackpot, rolling 1d%s for the jackpot...",
		winner.Buyer, winner.Quantity, winner.Item,
		model.FormatMeat(playerAmount), model.FormatMeat(jackpotAmount), model.FormatMeat(odds)))

	s.sched.After(resultPause, func() {
		s.jackpotRoll(winner.Buyer, playerAmount, odds)
	})
}

// jackpotRoll rolls 1d(odds); a 1 pays the whole jackpot to the winner.
func (s *Session) jackpotRoll(winner string, playerAmount, odds int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != game.PhaseDrawing || s.done {
		return
	}

	roll := s.rng.Int63n(odds) + 1
	var msg string
	if roll == 1 {
		won := s.mgr.WinJackpot()
		msg = fmt.Sprintf("rolled a 1!! JACKPOT!! %s meat has been won by %s!!",
			model.FormatMeat(won), winner)
		playerAmount += won
	} else {
		s.mgr.BumpStreak()
		msg = fmt.Sprintf(
			"rolled a %d on a 1d%s (payout on 1). pot is now at %s meat. better luck next time...",
			roll, model.FormatMeat(odds), model.FormatMeat(s.mgr.Jackpot()))
	}

	gameNo := s.mgr.GamesCount() + 1
	msg += fmt.Sprintf(" congrats on ggame #%s!!", model.FormatMeat(gameNo))
	s.mgr.SendChannel(msg)

	note := fmt.Sprintf("you won ggame #%s!!", model.FormatMeat(gameNo))
	if err := s.mgr.SendPrize(winner, note, playerAmount); err != nil {
		s.mgr.ReportAdminError("raffle prize delivery to "+winner, err)
	}

	s.finishLocked()
}

// finishLocked moves to the terminal phase and reports completion.
// Caller holds s.mu.
func (s *Session) finishLocked() {
	if s.done {
		return
	}
	s.done = true
	s.phase = game.PhaseFinished
	s.sched.CancelAll()
	s.mgr.SessionDone(model.KindRaffle)
}

// emergencyLocked cancels the game after an unrecoverable error.
// Caller holds s.mu.
func (s *Session) emergencyLocked(scope string, err error) {
	log.Error().Err(err).Str("scope", scope).Msg("Raffle emergency cancel")
	s.mgr.ReportAdminError("raffle "+scope, err)
	if s.slot != "" {
		if relErr := s.shop.ReleaseSlot(s.ctx, s.slot); relErr != nil {
			log.Warn().Err(relErr).Msg("Failed to release ticket slot on emergency")
		}
	}
	s.mgr.SendChannel("Game cancelled! Emergency stop.")
	s.finishLocked()
}

// HandleChat is a no-op: raffle entries come from ticket purchases,
// not chat.
func (s *Session) HandleChat(sender, text string) {}

// HandleMail is a no-op for raffles.
func (s *Session) HandleMail(sender, content string) {}

// Status describes the session for the games status command.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != game.PhaseActive {
		return string(s.phase) + " phase"
	}
	remaining := s.cfg.Duration - time.Since(s.startTime)
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("AR: %s meat prize! %d seconds remaining.",
		model.FormatMeat(s.prize), int(remaining.Seconds()))
}

// Stop is the emergency cancel path used by the orchestrator.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	if s.slot != "" && s.ctx != nil {
		if err := s.shop.ReleaseSlot(s.ctx, s.slot); err != nil {
			log.Warn().Err(err).Msg("Failed to release ticket slot on stop")
		}
	}
	s.mgr.SendChannel("Game cancelled! Emergency stop.")
	s.finishLocked()
}
