// Package prize turns a scored participant list into payouts.
package prize

import "sort"

// Payout is one recipient's share of a prize pool.
type Payout struct {
	Recipient string
	Amount    int64
}

// shareNum/shareDen express the top-three rank-slot shares:
// 60%, 20% and 10% of the total prize.
var shareNum = [3]int64{60, 20, 10}

const shareDen int64 = 100

// Rank groups participants into rank-slots by descending points.
// Names inside a slot are sorted so the result is deterministic for
// any input order.
func Rank(points map[string]int) [][]string {
	byScore := make(map[int][]string)
	scores := make([]int, 0, len(points))
	for name, pts := range points {
		if len(byScore[pts]) == 0 {
			scores = append(scores, pts)
		}
		byScore[pts] = append(byScore[pts], name)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(scores)))

	slots := make([][]string, 0, len(scores))
	for _, pts := range scores {
		names := byScore[pts]
		sort.Strings(names)
		slots = append(slots, names)
	}
	return slots
}

// Distribute allocates total across the top three rank-slots at
// 60/20/10, splitting each slot's share evenly among its members with
// integer division. Whatever truncation leaves over is returned as the
// remainder; payouts plus remainder always equal total exactly.
func Distribute(slots [][]string, total int64) ([]Payout, int64) {
	if total <= 0 {
		return nil, 0
	}

	var payouts []Payout
	var awarded int64
	for i, slot := range slots {
		if i >= len(shareNum) {
			break
		}
		if len(slot) == 0 {
			continue
		}
		share := total * shareNum[i] / shareDen
		perPlayer := share / int64(len(slot))
		if perPlayer <= 0 {
			continue
		}
		for _, name := range slot {
			payouts = append(payouts, Payout{Recipient: name, Amount: perPlayer})
			awarded += perPlayer
		}
	}

	return payouts, total - awarded
}
