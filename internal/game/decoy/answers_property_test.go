package decoy

import (
	"math/rand"
	"testing"

	"pgregory.net/rapid"
)

// TestBuildAnswersProperty checks that for any fake answer set the
// voting sequence has no case/whitespace duplicates, contains the real
// answer exactly once, and contains nothing that was not submitted.
func TestBuildAnswersProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		real := rapid.StringMatching(`[a-zA-Z ]{1,20}`).Draw(t, "real")
		participants := rapid.SliceOfNDistinct(
			rapid.StringMatching(`[a-z]{2,8}`), 1, 8, rapid.ID[string],
		).Draw(t, "participants")

		fakes := make(map[string]string, len(participants))
		for _, p := range participants {
			fakes[p] = rapid.StringMatching(`[a-zA-Z ]{1,20}`).Draw(t, "fake")
		}
		seed := rapid.Int64().Draw(t, "seed")

		answers := buildAnswers(real, participants, fakes, rand.New(rand.NewSource(seed)))

		seen := make(map[string]bool, len(answers))
		realCount := 0
		for _, a := range answers {
			n := normalize(a)
			if seen[n] {
				t.Fatalf("duplicate answer %q in %v", a, answers)
			}
			seen[n] = true
			if n == normalize(real) {
				realCount++
			}
		}
		if realCount != 1 {
			t.Fatalf("real answer appears %d times in %v", realCount, answers)
		}

		submitted := map[string]bool{normalize(real): true}
		for _, f := range fakes {
			submitted[normalize(f)] = true
		}
		for _, a := range answers {
			if !submitted[normalize(a)] {
				t.Fatalf("unexpected answer %q", a)
			}
		}
	})
}

// TestDedupIdempotentProperty checks dedup is a fixpoint: running it
// twice changes nothing.
func TestDedupIdempotentProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		answers := rapid.SliceOfN(
			rapid.StringMatching(`[a-zA-Z ]{0,10}`), 0, 20,
		).Draw(t, "answers")

		once := dedupAnswers(answers)
		twice := dedupAnswers(once)

		if len(once) != len(twice) {
			t.Fatalf("dedup not idempotent: %v vs %v", once, twice)
		}
		for i := range once {
			if once[i] != twice[i] {
				t.Fatalf("dedup not idempotent at %d: %q vs %q", i, once[i], twice[i])
			}
		}
	})
}
