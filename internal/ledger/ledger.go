// Package ledger holds the shared funding state for the chat games:
// the public pool, the jackpot and its win streak, per-donor balances
// and per-user daily public-pool usage. All mutation goes through one
// mutex so funding decisions are linearizable.
package ledger

import (
	"errors"
	"math"
	"strings"
	"sync"
	"time"
)

// Funding errors.
var (
	ErrInsufficientFunds = errors.New("insufficient hosting funds")
)

const (
	// DefaultDailyCap is the public-pool draw limit per user per day.
	DefaultDailyCap int64 = 300000

	// DefaultDonorShare is the fraction of a donation allocated to the
	// donor's personal balance; the rest goes to the public pool.
	DefaultDonorShare = 0.75

	// jackpotBaseOdds and jackpotStreakCap bound the jackpot roll:
	// denominator = base - min(streak, cap), so odds never drop below 1 in 5.
	jackpotBaseOdds  int64 = 50
	jackpotStreakCap int64 = 45
)

// dayFormat is the key used for daily usage bookkeeping.
const dayFormat = "2006-01-02"

type usageEntry struct {
	date string
	used int64
}

// Ledger is the process-wide funding state. A single instance is owned
// by the orchestrator; games and command handlers reach it through that.
type Ledger struct {
	mu sync.Mutex

	publicPool    int64
	jackpot       int64
	jackpotStreak int64
	gamesCount    int64
	donors        map[string]int64
	usage         map[string]usageEntry

	dailyCap   int64
	donorShare float64
	isAdmin    func(string) bool
	now        func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithDailyCap overrides the per-user daily public-pool cap.
func WithDailyCap(cap int64) Option {
	return func(l *Ledger) { l.dailyCap = cap }
}

// WithDonorShare overrides the donation split fraction.
func WithDonorShare(share float64) Option {
	return func(l *Ledger) { l.donorShare = share }
}

// WithAdminCheck sets the predicate used for the admin funding bypass.
func WithAdminCheck(fn func(string) bool) Option {
	return func(l *Ledger) { l.isAdmin = fn }
}

// WithClock overrides the clock, for tests.
func WithClock(fn func() time.Time) Option {
	return func(l *Ledger) { l.now = fn }
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		donors:     make(map[string]int64),
		usage:      make(map[string]usageEntry),
		dailyCap:   DefaultDailyCap,
		donorShare: DefaultDonorShare,
		isAdmin:    func(string) bool { return false },
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func key(user string) string {
	return strings.ToLower(strings.TrimSpace(user))
}

// debitSource records which balance funded an authorization.
type debitSource int

const (
	sourceAdmin debitSource = iota
	sourcePool
	sourceDonor
)

// Debit is the receipt for a successful authorization. It lets a
// caller return the funds if session setup fails after the debit.
type Debit struct {
	user   string
	amount int64
	source debitSource
}

// usedToday returns the user's public-pool usage for the current day.
// A stored entry with a stale date counts as zero: usage resets at
// midnight rather than carrying over.
func (l *Ledger) usedToday(user, today string) int64 {
	e, ok := l.usage[user]
	if !ok || e.date != today {
		return 0
	}
	return e.used
}

// Authorize decides whether user may fund a prize of amount and applies
// the debit. Policy, in order: admin identities always pass with no
// deduction; then the public pool subject to the daily cap; then the
// user's personal donor balance. The returned receipt allows the debit
// to be reversed if session setup fails afterwards.
func (l *Ledger) Authorize(user string, amount int64) (*Debit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.isAdmin(user) {
		return &Debit{user: user, amount: amount, source: sourceAdmin}, nil
	}

	k := key(user)
	today := l.now().Format(dayFormat)

	used := l.usedToday(k, today)
	if used+amount <= l.dailyCap && l.publicPool >= amount {
		l.publicPool -= amount
		l.usage[k] = usageEntry{date: today, used: used + amount}
		return &Debit{user: k, amount: amount, source: sourcePool}, nil
	}

	if l.donors[k] >= amount {
		l.donors[k] -= amount
		return &Debit{user: k, amount: amount, source: sourceDonor}, nil
	}

	return nil, ErrInsufficientFunds
}

// Refund reverses a debit after a failed session setup.
func (l *Ledger) Refund(d *Debit) {
	if d == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	switch d.source {
	case sourcePool:
		l.publicPool += d.amount
		today := l.now().Format(dayFormat)
		used := l.usedToday(d.user, today) - d.amount
		if used < 0 {
			used = 0
		}
		l.usage[d.user] = usageEntry{date: today, used: used}
	case sourceDonor:
		l.donors[d.user] += d.amount
	}
}

// Donate credits a donation: donorShare of it to the donor's personal
// balance, the remainder to the public pool. Returns both portions.
func (l *Ledger) Donate(user string, amount int64) (allocated, public int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	allocated = int64(math.Floor(float64(amount) * l.donorShare))
	public = amount - allocated
	l.donors[key(user)] += allocated
	l.publicPool += public
	return allocated, public
}

// AddJackpot adds a truncation remainder or prize share to the jackpot.
func (l *Ledger) AddJackpot(amount int64) {
	if amount <= 0 {
		return
	}
	l.mu.Lock()
	l.jackpot += amount
	l.mu.Unlock()
}

// JackpotOdds returns the current jackpot roll denominator:
// 50 minus the streak, never below 5.
func (l *Ledger) JackpotOdds() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	streak := l.jackpotStreak
	if streak > jackpotStreakCap {
		streak = jackpotStreakCap
	}
	return jackpotBaseOdds - streak
}

// WinJackpot pays out the whole jackpot: returns the amount won and
// resets both the jackpot and the streak.
func (l *Ledger) WinJackpot() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	won := l.jackpot
	l.jackpot = 0
	l.jackpotStreak = 0
	return won
}

// BumpStreak records a game that did not win the jackpot.
func (l *Ledger) BumpStreak() {
	l.mu.Lock()
	l.jackpotStreak++
	l.mu.Unlock()
}

// IncrementGames bumps the completed-games counter and returns the new value.
func (l *Ledger) IncrementGames() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gamesCount++
	return l.gamesCount
}

// SetDonorBalance sets a donor's personal balance (admin command).
func (l *Ledger) SetDonorBalance(user string, amount int64) {
	l.mu.Lock()
	l.donors[key(user)] = amount
	l.mu.Unlock()
}

// SetJackpot sets the jackpot (admin command).
func (l *Ledger) SetJackpot(amount int64) {
	l.mu.Lock()
	l.jackpot = amount
	l.mu.Unlock()
}

// PublicPool returns the public pool balance.
func (l *Ledger) PublicPool() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.publicPool
}

// Jackpot returns the jackpot balance.
func (l *Ledger) Jackpot() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.jackpot
}

// JackpotStreak returns the games-since-last-jackpot-win counter.
func (l *Ledger) JackpotStreak() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.jackpotStreak
}

// GamesCount returns the completed-games counter.
func (l *Ledger) GamesCount() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gamesCount
}

// DonorBalance returns a user's personal balance and whether they have one.
func (l *Ledger) DonorBalance(user string) (int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.donors[key(user)]
	return b, ok
}

// TotalDonorBalance returns the sum of all personal balances.
func (l *Ledger) TotalDonorBalance() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total int64
	for _, b := range l.donors {
		total += b
	}
	return total
}

// DailyUsed returns today's public-pool usage for a user.
func (l *Ledger) DailyUsed(user string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usedToday(key(user), l.now().Format(dayFormat))
}

// DailyRemaining returns how much of the daily cap a user still has.
func (l *Ledger) DailyRemaining(user string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	remaining := l.dailyCap - l.usedToday(key(user), l.now().Format(dayFormat))
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Snapshot captures the ledger for persistence.
func (l *Ledger) Snapshot() *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := &Snapshot{
		GamesCount:      l.gamesCount,
		PublicPool:      l.publicPool,
		Jackpot:         l.jackpot,
		JackpotStreak:   l.jackpotStreak,
		DonorTable:      make(map[string]DonorEntry, len(l.donors)),
		PublicPoolUsage: make(map[string]UsageEntry, len(l.usage)),
	}
	for name, allocated := range l.donors {
		s.DonorTable[name] = DonorEntry{Allocated: allocated}
	}
	for name, e := range l.usage {
		s.PublicPoolUsage[name] = UsageEntry{Date: e.date, Used: e.used}
	}
	return s
}

// Restore replaces the ledger contents with a loaded snapshot.
func (l *Ledger) Restore(s *Snapshot) {
	if s == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.gamesCount = s.GamesCount
	l.publicPool = s.PublicPool
	l.jackpot = s.Jackpot
	l.jackpotStreak = s.JackpotStreak
	l.donors = make(map[string]int64, len(s.DonorTable))
	for name, e := range s.DonorTable {
		l.donors[key(name)] = e.Allocated
	}
	l.usage = make(map[string]usageEntry, len(s.PublicPoolUsage))
	for name, e := range s.PublicPoolUsage {
		l.usage[key(name)] = usageEntry{date: e.Date, used: e.Used}
	}
}
