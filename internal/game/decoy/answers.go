package decoy

import (
	"math/rand"
	"strings"
)

// Placeholder is assigned to participants who never submitted a fake
// answer before the answering window closed. It plays through dedup,
// shuffle and scoring like any other answer.
const Placeholder = "(no answer submitted)"

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// dedupAnswers removes case/whitespace-insensitive duplicates keeping
// the first occurrence. The real answer is always placed first by the
// caller, so it survives even when a fake answer coincides with it.
func dedupAnswers(answers []string) []string {
	seen := make(map[string]bool, len(answers))
	unique := make([]string, 0, len(answers))
	for _, a := range answers {
		n := normalize(a)
		if seen[n] {
			continue
		}
		seen[n] = true
		unique = append(unique, a)
	}
	return unique
}

// buildAnswers assembles the voting sequence: the real answer followed
// by each participant's fake answer in participant order, deduplicated,
// then uniformly permuted. The result is immutable once voting begins.
func buildAnswers(real string, participants []string, fakes map[string]string, rng *rand.Rand) []string {
	answers := make([]string, 0, len(participants)+1)
	answers = append(answers, real)
	for _, p := range participants {
		answers = append(answers, fakes[p])
	}
	answers = dedupAnswers(answers)
	rng.Shuffle(len(answers), func(i, j int) {
		answers[i], answers[j] = answers[j], answers[i]
	})
	return answers
}
