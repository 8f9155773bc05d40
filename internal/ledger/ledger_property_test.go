package ledger

import (
	"testing"

	"pgregory.net/rapid"
)

// TestDonateConservationProperty checks that every donation splits
// into exactly two non-negative parts that sum back to the original.
func TestDonateConservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := New()
		amount := rapid.Int64Range(1, 10_000_000).Draw(t, "amount")

		allocated, public := l.Donate("donor", amount)

		if allocated < 0 || public < 0 {
			t.Fatalf("negative split: allocated=%d public=%d", allocated, public)
		}
		if allocated+public != amount {
			t.Fatalf("split %d+%d != %d", allocated, public, amount)
		}
		if got, _ := l.DonorBalance("donor"); got != allocated {
			t.Fatalf("donor balance %d, want %d", got, allocated)
		}
		if l.PublicPool() != public {
			t.Fatalf("public pool %d, want %d", l.PublicPool(), public)
		}
	})
}

// TestAuthorizeRefundRoundtripProperty checks that a refund exactly
// reverses an authorization regardless of which balance funded it.
func TestAuthorizeRefundRoundtripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := New()
		l.publicPool = rapid.Int64Range(0, 1_000_000).Draw(t, "pool")
		donor := rapid.Int64Range(0, 1_000_000).Draw(t, "donor")
		l.SetDonorBalance("player", donor)
		amount := rapid.Int64Range(1, 1_000_000).Draw(t, "amount")

		poolBefore := l.PublicPool()
		usedBefore := l.DailyUsed("player")

		d, err := l.Authorize("player", amount)
		if err != nil {
			return // nothing debited, nothing to reverse
		}
		l.Refund(d)

		if l.PublicPool() != poolBefore {
			t.Fatalf("pool %d after refund, want %d", l.PublicPool(), poolBefore)
		}
		if got, _ := l.DonorBalance("player"); got != donor {
			t.Fatalf("donor balance %d after refund, want %d", got, donor)
		}
		if l.DailyUsed("player") != usedBefore {
			t.Fatalf("daily usage %d after refund, want %d", l.DailyUsed("player"), usedBefore)
		}
	})
}

// TestJackpotOddsBoundsProperty checks the roll denominator stays in
// [5, 50] for any streak length.
func TestJackpotOddsBoundsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := New()
		bumps := rapid.IntRange(0, 200).Draw(t, "bumps")
		for i := 0; i < bumps; i++ {
			l.BumpStreak()
		}

		odds := l.JackpotOdds()
		if odds < 5 || odds > 50 {
			t.Fatalf("odds %d out of range for streak %d", odds, bumps)
		}
		if bumps <= 45 && odds != 50-int64(bumps) {
			t.Fatalf("odds %d, want %d for streak %d", odds, 50-bumps, bumps)
		}
	})
}

// TestSnapshotRestoreProperty checks roundtripping arbitrary ledger
// state through Snapshot and Restore preserves every balance.
func TestSnapshotRestoreProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := New()
		l.publicPool = rapid.Int64Range(0, 10_000_000).Draw(t, "pool")
		l.SetJackpot(rapid.Int64Range(0, 10_000_000).Draw(t, "jackpot"))
		names := rapid.SliceOfN(rapid.StringMatching(`[a-z]{3,10}`), 0, 5).Draw(t, "names")
		for _, name := range names {
			l.SetDonorBalance(name, rapid.Int64Range(0, 1_000_000).Draw(t, "balance"))
		}

		restored := New()
		restored.Restore(l.Snapshot())

		if restored.PublicPool() != l.PublicPool() {
			t.Fatalf("pool %d, want %d", restored.PublicPool(), l.PublicPool())
		}
		if restored.Jackpot() != l.Jackpot() {
			t.Fatalf("jackpot %d, want %d", restored.Jackpot(), l.Jackpot())
		}
		if restored.TotalDonorBalance() != l.TotalDonorBalance() {
			t.Fatalf("donor total %d, want %d", restored.TotalDonorBalance(), l.TotalDonorBalance())
		}
	})
}
