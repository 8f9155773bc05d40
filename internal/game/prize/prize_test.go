package prize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRank(t *testing.T) {
	tests := []struct {
		name   string
		points map[string]int
		want   [][]string
	}{
		{
			name:   "distinct scores produce singleton slots",
			points: map[string]int{"alice": 3, "bob": 2, "carol": 1},
			want:   [][]string{{"alice"}, {"bob"}, {"carol"}},
		},
		{
			name:   "tied scores share a slot with sorted names",
			points: map[string]int{"zed": 2, "alice": 2, "bob": 1},
			want:   [][]string{{"alice", "zed"}, {"bob"}},
		},
		{
			name:   "all zero is one slot",
			points: map[string]int{"a": 0, "b": 0, "c": 0},
			want:   [][]string{{"a", "b", "c"}},
		},
		{
			name:   "empty input",
			points: map[string]int{},
			want:   [][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rank(tt.points))
		})
	}
}

func TestDistribute(t *testing.T) {
	tests := []struct {
		name          string
		slots         [][]string
		total         int64
		wantPayouts   []Payout
		wantRemainder int64
	}{
		{
			name:  "three singleton slots get 60/20/10",
			slots: [][]string{{"a"}, {"b"}, {"c"}},
			total: 100000,
			wantPayouts: []Payout{
				{"a", 60000}, {"b", 20000}, {"c", 10000},
			},
			wantRemainder: 10000,
		},
		{
			name:  "tied first slot splits its share evenly",
			slots: [][]string{{"a", "b"}, {"c"}},
			total: 100000,
			wantPayouts: []Payout{
				{"a", 30000}, {"b", 30000}, {"c", 20000},
			},
			wantRemainder: 20000,
		},
		{
			name:  "slots past third place get nothing",
			slots: [][]string{{"a"}, {"b"}, {"c"}, {"d"}},
			total: 100000,
			wantPayouts: []Payout{
				{"a", 60000}, {"b", 20000}, {"c", 10000},
			},
			wantRemainder: 10000,
		},
		{
			name:          "truncation keeps the leftover in the remainder",
			slots:         [][]string{{"a", "b", "c"}},
			total:         100,
			wantPayouts:   []Payout{{"a", 20}, {"b", 20}, {"c", 20}},
			wantRemainder: 40,
		},
		{
			name:          "zero total pays nothing",
			slots:         [][]string{{"a"}},
			total:         0,
			wantPayouts:   nil,
			wantRemainder: 0,
		},
		{
			name:          "tiny total can pay nobody",
			slots:         [][]string{{"a", "b", "c", "d", "e", "f", "g"}},
			total:         10,
			wantPayouts:   nil,
			wantRemainder: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payouts, remainder := Distribute(tt.slots, tt.total)
			assert.Equal(t, tt.wantPayouts, payouts)
			assert.Equal(t, tt.wantRemainder, remainder)
		})
	}
}
