// Package decoy implements the Decoy's Dilemma game.
//
// Lifecycle: Setup -> Entry -> Answering -> Voting -> Finished.
// Participants are whoever bought a ticket during the entry window.
// Each privately submits one fake answer to a trivia question; the
// real answer is hidden among the fakes and everyone votes for which
// one they think is real. Correct guesses and convincing fakes score
// points; the prize is split 60/20/10 across the top rank-slots.
package decoy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"chat-games-bot/internal/game"
	"chat-games-bot/internal/game/prize"
	"chat-games-bot/internal/model"
	"chat-games-bot/internal/pkg/sched"
	"chat-games-bot/internal/platform"
)

const (
	DefaultEntryWindow  = 5 * time.Minute
	DefaultAnswerWindow = 2 * time.Minute
	DefaultVoteWindow   = 2 * time.Minute
	// DefaultPhaseBuffer trails each window so a phase never races the
	// last submission.
	DefaultPhaseBuffer = 5 * time.Second

	DefaultMinPlayers   = 3
	DefaultMaxAnswerLen = 200
	DefaultTicketSlots  = 30
	DefaultTicketPrice  int64 = 100
)

// ErrGameOver is returned by Start on a session that already ran.
var ErrGameOver = errors.New("decoy session already finished")

// Config holds Decoy's Dilemma timing and entry parameters.
type Config struct {
	EntryWindow  time.Duration
	AnswerWindow time.Duration
	VoteWindow   time.Duration
	PhaseBuffer  time.Duration
	MinPlayers   int
	MaxAnswerLen int
	TicketSlots  int
	TicketPrice  int64
}

func (c *Config) fill() {
	if c.EntryWindow <= 0 {
		c.EntryWindow = DefaultEntryWindow
	}
	if c.AnswerWindow <= 0 {
		c.AnswerWindow = DefaultAnswerWindow
	}
	if c.VoteWindow <= 0 {
		c.VoteWindow = DefaultVoteWindow
	}
	if c.PhaseBuffer <= 0 {
		c.PhaseBuffer = DefaultPhaseBuffer
	}
	if c.MinPlayers <= 0 {
		c.MinPlayers = DefaultMinPlayers
	}
	if c.MaxAnswerLen <= 0 {
		c.MaxAnswerLen = DefaultMaxAnswerLen
	}
	if c.TicketSlots <= 0 {
		c.TicketSlots = DefaultTicketSlots
	}
	if c.TicketPrice <= 0 {
		c.TicketPrice = DefaultTicketPrice
	}
}

// Session is one Decoy's Dilemma game.
type Session struct {
	host   string
	prize  int64
	mgr    game.Manager
	shop   platform.Shop
	trivia platform.Trivia
	cfg    Config

	mu           sync.Mutex
	phase        game.Phase
	slot         platform.SlotHandle
	participants []string
	fakes        map[string]string
	guesses      map[string]int
	question     string
	realAnswer   string
	answers      []string
	done         bool

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

// New creates a decoy session in the setup phase.
func New(host string, prizeAmount int64, mgr game.Manager, shop platform.Shop, trivia platform.Trivia, cfg Config, opts ...Option) *Session {
	cfg.fill()
	s := &Session{
		host:    host,
		prize:   prizeAmount,
		mgr:     mgr,
		shop:    shop,
		trivia:  trivia,
		cfg:     cfg,
		phase:   game.PhaseSetup,
		fakes:   make(map[string]string),
		guesses: make(map[string]int),
		sched:   sched.New(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind returns the game kind.
func (s *Session) Kind() model.GameKind { return model.KindDecoy }

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

// Start reserves ticket slots and opens the entry window. A shop
// failure fails closed: no announcement, no session.
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
	s.phase = game.PhaseEntry

	s.mgr.SendChannel(fmt.Sprintf("Decoy's Dilemma by %s: buy tickets for next 5m. Prize: %s meat!",
		s.host, model.FormatMeat(s.prize)))

	s.sched.After(s.cfg.EntryWindow+s.cfg.PhaseBuffer, s.collectPlayers)

	log.Info().Str("host", s.host).Int64("prize", s.prize).Msg("Decoy's Dilemma started")
	return nil
}

// collectPlayers closes the entry window and fixes the participant set.
func (s *Session) collectPlayers() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != game.PhaseEntry || s.done {
		return
	}

	purchases, err := s.shop.SalesLog(s.ctx, s.slot)
	if err != nil {
		s.emergencyLocked("reading sales log", err)
		return
	}
	if err := s.shop.ReleaseSlot(s.ctx, s.slot); err != nil {
		log.Warn().Err(err).Msg("Failed to release ticket slot after entry")
	}
	s.slot = ""

	buyers := uniqueBuyers(purchases)
	if len(buyers) < s.cfg.MinPlayers {
		s.mgr.SendChannel(fmt.Sprintf(
			"Decoy's Dilemma cancelled - need at least %d players. Only %d bought tickets.",
			s.cfg.MinPlayers, len(buyers)))
		s.finishLocked()
		return
	}

	q, err := s.trivia.FetchQuestion(s.ctx)
	if err != nil {
		s.emergencyLocked("fetching trivia question", err)
		return
	}

	s.participants = buyers
	s.question = q.Text
	s.realAnswer = normalize(q.Answer)
	s.phase = game.PhaseAnswering

	s.mgr.SendChannel(fmt.Sprintf("QUESTION (%d players): %s", len(buyers), s.question))
	for _, p := range buyers {
		s.mgr.SendPrivate(p, "Please PM me your FAKE answer within 2 minutes for: "+s.question)
	}

	s.sched.After(s.cfg.AnswerWindow+s.cfg.PhaseBuffer, s.beginVoting)
}

// HandleMail receives a participant's fake answer during the answering
// phase. The first submission wins; later ones are rejected.
func (s *Session) HandleMail(sender, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != game.PhaseAnswering || s.done {
		return
	}

	p := normalize(sender)
	if !s.isParticipant(p) {
		return
	}

	if _, ok := s.fakes[p]; ok {
		s.mgr.SendPrivate(sender, "You already submitted your answer.")
		return
	}

	answer := strings.TrimSpace(content)
	if answer == "" {
		s.mgr.SendPrivate(sender, "Empty answer not allowed. Please send a fake answer.")
		return
	}
	if len(answer) > s.cfg.MaxAnswerLen {
		s.mgr.SendPrivate(sender, fmt.Sprintf("Answer too long. Please keep it under %d characters.", s.cfg.MaxAnswerLen))
		return
	}

	s.fakes[p] = answer
	s.mgr.SendPrivate(sender, "Got your fake answer: "+answer)
}

// beginVoting closes the answering window, builds the answer sequence
// and opens voting.
func (s *Session) beginVoting() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != game.PhaseAnswering || s.done {
		return
	}

	for _, p := range s.participants {
		if _, ok := s.fakes[p]; !ok {
			s.fakes[p] = Placeholder
		}
	}

	s.answers = buildAnswers(s.realAnswer, s.participants, s.fakes, s.rng)
	s.phase = game.PhaseVoting

	var b strings.Builder
	b.WriteString("VOTE! Type 'guess <#>' for the real answer: ")
	for i, a := range s.answers {
		fmt.Fprintf(&b, "[%d] %s  ", i+1, a)
	}
	s.mgr.SendChannel(b.String())

	s.sched.After(s.cfg.VoteWindow+s.cfg.PhaseBuffer, s.finalize)
}

// HandleChat receives "guess <n>" votes during the voting phase. Only
// the most recent guess per participant is retained; non-participants
// are silently ignored.
func (s *Session) HandleChat(sender, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != game.PhaseVoting || s.done {
		return
	}

	t := strings.ToLower(strings.TrimSpace(text))
	if !strings.HasPrefix(t, "guess ") {
		return
	}
	fields := strings.Fields(t)
	if len(fields) < 2 {
		return
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return
	}

	p := normalize(sender)
	if !s.isParticipant(p) {
		return
	}

	if n < 1 || n > len(s.answers) {
		s.mgr.SendPrivate(sender, fmt.Sprintf("Invalid guess number. Choose 1-%d", len(s.answers)))
		return
	}

	s.guesses[p] = n - 1
	s.mgr.SendPrivate(sender, fmt.Sprintf("Registered guess #%d: %s", n, s.answers[n-1]))
}

// finalize scores the game, distributes the prize and finishes.
func (s *Session) finalize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != game.PhaseVoting || s.done {
		return
	}
	s.phase = game.PhaseFinished

	points := score(s.participants, s.fakes, s.guesses, s.answers, s.realAnswer)
	slots := prize.Rank(points)
	payouts, remainder := prize.Distribute(slots, s.prize)

	s.mgr.SendChannel("REAL ANSWER: " + s.realAnswer)

	var messages []string
	for _, p := range payouts {
		note := fmt.Sprintf("You placed in the game! You receive %s meat.", model.FormatMeat(p.Amount))
		if err := s.mgr.SendPrize(p.Recipient, note, p.Amount); err != nil {
			messages = append(messages, p.Recipient+" prize failed - admin notified")
			s.mgr.ReportAdminError("decoy prize delivery to "+p.Recipient, err)
			continue
		}
		messages = append(messages, fmt.Sprintf("%s gets %s", p.Recipient, model.FormatMeat(p.Amount)))
	}

	if remainder > 0 {
		s.mgr.AddJackpot(remainder)
		s.mgr.BumpStreak()
		messages = append(messages, model.FormatMeat(remainder)+" meat added to jackpot")
	}

	if len(messages) > 0 {
		s.mgr.SendChannel(strings.Join(messages, "; "))
	}

	s.finishLocked()
}

func (s *Session) isParticipant(name string) bool {
	for _, p := range s.participants {
		if p == name {
			return true
		}
	}
	return false
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
	s.mgr.SessionDone(model.KindDecoy)
}

// emergencyLocked cancels the game after an unrecoverable error.
// Caller holds s.mu.
func (s *Session) emergencyLocked(scope string, err error) {
	log.Error().Err(err).Str("scope", scope).Msg("Decoy emergency cancel")
	s.mgr.ReportAdminError("decoy "+scope, err)
	s.releaseSlotLocked()
	s.mgr.SendChannel("Decoy's Dilemma encountered an error and has been cancelled. Sorry!")
	s.finishLocked()
}

func (s *Session) releaseSlotLocked() {
	if s.slot == "" || s.ctx == nil {
		return
	}
	if err := s.shop.ReleaseSlot(s.ctx, s.slot); err != nil {
		log.Warn().Err(err).Msg("Failed to release ticket slot")
	}
	s.slot = ""
}

// Status describes the session for the games status command.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.phase) + " phase"
}

// Stop is the emergency cancel path used by the orchestrator.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.releaseSlotLocked()
	s.finishLocked()
}

// uniqueBuyers returns buyers in first-purchase order, lowercased.
func uniqueBuyers(purchases []model.Purchase) []string {
	seen := make(map[string]bool, len(purchases))
	var buyers []string
	for _, p := range purchases {
		b := normalize(p.Buyer)
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		buyers = append(buyers, b)
	}
	return buyers
}
