package decoy

// score computes final points for every participant.
//
//   - +2 to a participant whose final guess referenced the real answer.
//   - +1 to the author of a fake answer for each other participant
//     whose final guess referenced that exact fake answer text.
//
// guesses hold 0-based answer indices; out-of-range values were
// rejected at submission time but are guarded here anyway.
func score(participants []string, fakes map[string]string, guesses map[string]int, answers []string, realAnswer string) map[string]int {
	points := make(map[string]int, len(participants))
	for _, p := range participants {
		points[p] = 0
	}

	real := normalize(realAnswer)

	for voter, idx := range guesses {
		if idx < 0 || idx >= len(answers) {
			continue
		}
		if normalize(answers[idx]) == real {
			points[voter] += 2
		}
	}

	for author, fake := range fakes {
		for voter, idx := range guesses {
			if voter == author || idx < 0 || idx >= len(answers) {
				continue
			}
			if answers[idx] == fake {
				points[author]++
			}
		}
	}

	return points
}
