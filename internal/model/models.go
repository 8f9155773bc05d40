// Package model defines the data models shared across the chat game bot.
package model

import (
	"strconv"
	"time"
)

// Purchase represents one entry in a shop sales log: somebody bought
// tickets from the slot the active game listed.
type Purchase struct {
	Buyer    string
	Quantity int
	Item     string
	Time     time.Time
}

// Question is a trivia question with its one real answer.
type Question struct {
	Text   string
	Answer string
}

// GameKind identifies a game variant.
type GameKind string

const (
	KindRaffle GameKind = "raffle"
	KindDecoy  GameKind = "decoy"
)

// FormatMeat renders an amount with comma grouping, e.g. 1234567 -> "1,234,567".
// All announced amounts use this format.
func FormatMeat(amount int64) string {
	s := strconv.FormatInt(amount, 10)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	n := len(s)
	if n <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var b []byte
	for i := 0; i < n; i++ {
		if i > 0 && (n-i)%3 == 0 {
			b = append(b, ',')
		}
		b = append(b, s[i])
	}
	if neg {
		return "-" + string(b)
	}
	return string(b)
}
