package decoy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-games-bot/internal/game"
	"chat-games-bot/internal/model"
	"chat-games-bot/internal/platform"
)

// fakeManager records every Manager call a session makes.
type fakeManager struct {
	mu          sync.Mutex
	channel     []string
	private     map[string][]string
	prizes      map[string]int64
	prizeErrs   map[string]error
	adminErrs   []string
	jackpotAdds int64
	streakBumps int
	doneKinds   []model.GameKind
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		private:   make(map[string][]string),
		prizes:    make(map[string]int64),
		prizeErrs: make(map[string]error),
	}
}

func (m *fakeManager) SendChannel(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channel = append(m.channel, text)
}

func (m *fakeManager) SendPrivate(recipient, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.private[strings.ToLower(recipient)] = append(m.private[strings.ToLower(recipient)], text)
}

func (m *fakeManager) SendPrize(recipient, text string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.prizeErrs[recipient]; err != nil {
		return err
	}
	m.prizes[recipient] += amount
	return nil
}

func (m *fakeManager) ReportAdminError(scope string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adminErrs = append(m.adminErrs, scope)
}

func (m *fakeManager) AddJackpot(amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jackpotAdds += amount
}

func (m *fakeManager) JackpotOdds() int64 { return 50 }
func (m *fakeManager) Jackpot() int64     { return 0 }
func (m *fakeManager) WinJackpot() int64  { return 0 }

func (m *fakeManager) BumpStreak() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streakBumps++
}

func (m *fakeManager) GamesCount() int64 { return 0 }

func (m *fakeManager) SessionDone(kind model.GameKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doneKinds = append(m.doneKinds, kind)
}

func (m *fakeManager) channelText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.channel, "\n")
}

// fakeShop serves a scripted sales log.
type fakeShop struct {
	buyers     []string
	reserveErr error
	released   bool
}

func (s *fakeShop) ReserveSlot(_ context.Context, quantity int, price int64) (platform.SlotHandle, error) {
	if s.reserveErr != nil {
		return "", s.reserveErr
	}
	return "slot-1", nil
}

func (s *fakeShop) ReleaseSlot(_ context.Context, h platform.SlotHandle) error {
	s.released = true
	return nil
}

func (s *fakeShop) Remaining(_ context.Context, h platform.SlotHandle) (int, error) {
	return 0, nil
}

func (s *fakeShop) SalesLog(_ context.Context, h platform.SlotHandle) ([]model.Purchase, error) {
	purchases := make([]model.Purchase, 0, len(s.buyers))
	for _, b := range s.buyers {
		purchases = append(purchases, model.Purchase{Buyer: b, Quantity: 1, Item: "game ticket", Time: time.Now()})
	}
	return purchases, nil
}

func (s *fakeShop) Restock(_ context.Context, quantity int) error { return nil }

// fakeTrivia returns one fixed question.
type fakeTrivia struct {
	q   model.Question
	err error
}

func (t *fakeTrivia) FetchQuestion(_ context.Context) (model.Question, error) {
	return t.q, t.err
}

func newTestSession(mgr *fakeManager, shop *fakeShop, trivia *fakeTrivia) *Session {
	// Long windows so scheduled transitions never fire during a test;
	// phases are driven by calling the transition methods directly.
	return New("hostess", 100000, mgr, shop, trivia, Config{
		EntryWindow:  time.Hour,
		AnswerWindow: time.Hour,
		VoteWindow:   time.Hour,
		PhaseBuffer:  time.Second,
	}, WithRand(rand.New(rand.NewSource(1))))
}

func guessFor(t *testing.T, s *Session, answer string) string {
	t.Helper()
	for i, a := range s.answers {
		if a == answer {
			return fmt.Sprintf("guess %d", i+1)
		}
	}
	t.Fatalf("answer %q not in %v", answer, s.answers)
	return ""
}

func TestDecoyFullGame(t *testing.T) {
	mgr := newFakeManager()
	shop := &fakeShop{buyers: []string{"Alice", "bob", "carol", "alice"}}
	trivia := &fakeTrivia{q: model.Question{Text: "Largest planet?", Answer: "Jupiter"}}
	s := newTestSession(mgr, shop, trivia)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, game.PhaseEntry, s.Phase())
	assert.Contains(t, mgr.channelText(), "Decoy's Dilemma by hostess")

	s.collectPlayers()
	assert.Equal(t, game.PhaseAnswering, s.Phase())
	// Duplicate purchase collapses: three participants, lowercased.
	assert.Equal(t, []string{"alice", "bob", "carol"}, s.participants)
	assert.True(t, shop.released)
	assert.Contains(t, mgr.channelText(), "QUESTION (3 players): Largest planet?")

	s.HandleMail("alice", "Saturn")
	s.HandleMail("bob", "Neptune")
	// carol never answers; she gets the placeholder.

	s.beginVoting()
	assert.Equal(t, game.PhaseVoting, s.Phase())
	assert.Len(t, s.answers, 4) // real + 2 fakes + placeholder
	assert.Contains(t, mgr.channelText(), "VOTE! Type 'guess <#>'")

	// alice finds the real answer; bob and carol fall for alice's fake.
	s.HandleChat("alice", guessFor(t, s, "jupiter"))
	s.HandleChat("bob", guessFor(t, s, "Saturn"))
	s.HandleChat("carol", guessFor(t, s, "Saturn"))

	s.finalize()
	assert.Equal(t, game.PhaseFinished, s.Phase())
	assert.Contains(t, mgr.channelText(), "REAL ANSWER: jupiter")

	// alice: +2 correct, +2 fooling bob and carol = 4 points, sole
	// first slot worth 60% of 100,000.
	assert.Equal(t, int64(60000), mgr.prizes["alice"])
	// bob and carol tie at 0 in the second slot: 20,000 split evenly.
	assert.Equal(t, int64(10000), mgr.prizes["bob"])
	assert.Equal(t, int64(10000), mgr.prizes["carol"])
	// 100,000 - 80,000 awarded flows to the jackpot.
	assert.Equal(t, int64(20000), mgr.jackpotAdds)
	assert.Equal(t, 1, mgr.streakBumps)
	assert.Equal(t, []model.GameKind{model.KindDecoy}, mgr.doneKinds)
}

func TestDecoyCancelsBelowMinPlayers(t *testing.T) {
	mgr := newFakeManager()
	shop := &fakeShop{buyers: []string{"alice", "bob"}}
	s := newTestSession(mgr, shop, &fakeTrivia{})

	require.NoError(t, s.Start(context.Background()))
	s.collectPlayers()

	assert.Equal(t, game.PhaseFinished, s.Phase())
	assert.Contains(t, mgr.channelText(), "need at least 3 players. Only 2 bought tickets.")
	assert.True(t, shop.released)
	// A cancelled game still reports completion.
	assert.Equal(t, []model.GameKind{model.KindDecoy}, mgr.doneKinds)
	assert.Empty(t, mgr.prizes)
}

func TestDecoyStartFailsClosedOnShopError(t *testing.T) {
	mgr := newFakeManager()
	shop := &fakeShop{reserveErr: errors.New("slot already reserved")}
	s := newTestSession(mgr, shop, &fakeTrivia{})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, game.PhaseSetup, s.Phase())
	assert.Empty(t, mgr.channel)
}

func TestDecoyTriviaFailureCancels(t *testing.T) {
	mgr := newFakeManager()
	shop := &fakeShop{buyers: []string{"alice", "bob", "carol"}}
	trivia := &fakeTrivia{err: errors.New("api down")}
	s := newTestSession(mgr, shop, trivia)

	require.NoError(t, s.Start(context.Background()))
	s.collectPlayers()

	assert.Equal(t, game.PhaseFinished, s.Phase())
	assert.NotEmpty(t, mgr.adminErrs)
	assert.Contains(t, mgr.channelText(), "cancelled")
}

func TestDecoyHandleMailRules(t *testing.T) {
	mgr := newFakeManager()
	shop := &fakeShop{buyers: []string{"alice", "bob", "carol"}}
	trivia := &fakeTrivia{q: model.Question{Text: "Q?", Answer: "A"}}
	s := newTestSession(mgr, shop, trivia)
	require.NoError(t, s.Start(context.Background()))
	s.collectPlayers()

	t.Run("non-participant is silently ignored", func(t *testing.T) {
		s.HandleMail("mallory", "fake")
		assert.Empty(t, mgr.private["mallory"])
		assert.NotContains(t, s.fakes, "mallory")
	})

	t.Run("empty answer is rejected", func(t *testing.T) {
		s.HandleMail("alice", "   ")
		assert.Contains(t, mgr.private["alice"][len(mgr.private["alice"])-1], "Empty answer")
	})

	t.Run("over-long answer is rejected", func(t *testing.T) {
		s.HandleMail("alice", strings.Repeat("x", 201))
		assert.Contains(t, mgr.private["alice"][len(mgr.private["alice"])-1], "Answer too long")
	})

	t.Run("first submission wins", func(t *testing.T) {
		s.HandleMail("alice", "first")
		s.HandleMail("alice", "second")
		assert.Equal(t, "first", s.fakes["alice"])
		assert.Contains(t, mgr.private["alice"][len(mgr.private["alice"])-1], "already submitted")
	})

	t.Run("sender name is normalized", func(t *testing.T) {
		s.HandleMail("  BOB ", "sneaky")
		assert.Equal(t, "sneaky", s.fakes["bob"])
	})
}

func TestDecoyHandleChatRules(t *testing.T) {
	mgr := newFakeManager()
	shop := &fakeShop{buyers: []string{"alice", "bob", "carol"}}
	trivia := &fakeTrivia{q: model.Question{Text: "Q?", Answer: "A"}}
	s := newTestSession(mgr, shop, trivia)
	require.NoError(t, s.Start(context.Background()))
	s.collectPlayers()
	s.HandleMail("alice", "fa")
	s.HandleMail("bob", "fb")
	s.HandleMail("carol", "fc")
	s.beginVoting()

	t.Run("out-of-range guess gets an error reply", func(t *testing.T) {
		s.HandleChat("alice", "guess 9")
		assert.Contains(t, mgr.private["alice"][len(mgr.private["alice"])-1], "Invalid guess number. Choose 1-4")
		assert.NotContains(t, s.guesses, "alice")
	})

	t.Run("non-participant guess is silent", func(t *testing.T) {
		s.HandleChat("mallory", "guess 1")
		assert.Empty(t, mgr.private["mallory"])
	})

	t.Run("non-guess chat is ignored", func(t *testing.T) {
		before := len(mgr.private["bob"])
		s.HandleChat("bob", "hello everyone")
		assert.Len(t, mgr.private["bob"], before)
	})

	t.Run("latest guess wins", func(t *testing.T) {
		s.HandleChat("alice", "guess 1")
		s.HandleChat("alice", "guess 3")
		assert.Equal(t, 2, s.guesses["alice"])
	})
}

func TestDecoyPrizeDeliveryFailureNotifiesAdmin(t *testing.T) {
	mgr := newFakeManager()
	shop := &fakeShop{buyers: []string{"alice", "bob", "carol"}}
	trivia := &fakeTrivia{q: model.Question{Text: "Q?", Answer: "A"}}
	s := newTestSession(mgr, shop, trivia)
	require.NoError(t, s.Start(context.Background()))
	s.collectPlayers()
	s.beginVoting()
	s.HandleChat("alice", guessFor(t, s, "a"))

	mgr.prizeErrs["alice"] = errors.New("mailbox full")
	s.finalize()

	assert.Contains(t, mgr.channelText(), "alice prize failed - admin notified")
	assert.NotEmpty(t, mgr.adminErrs)
	// The failed delivery does not abort the rest of the distribution.
	assert.Equal(t, game.PhaseFinished, s.Phase())
}

func TestDecoyStopReleasesSlot(t *testing.T) {
	mgr := newFakeManager()
	shop := &fakeShop{buyers: []string{"alice", "bob", "carol"}}
	s := newTestSession(mgr, shop, &fakeTrivia{q: model.Question{Text: "Q?", Answer: "A"}})
	require.NoError(t, s.Start(context.Background()))

	s.Stop()

	assert.Equal(t, game.PhaseFinished, s.Phase())
	assert.True(t, shop.released)
	assert.Equal(t, []model.GameKind{model.KindDecoy}, mgr.doneKinds)

	// A finished session rejects restarts.
	assert.ErrorIs(t, s.Start(context.Background()), ErrGameOver)
}
