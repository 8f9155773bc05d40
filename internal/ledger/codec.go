package ledger

import "encoding/json"

// Snapshot is the persisted ledger record. The wire names match the
// format the bot has always written, so old state files load unchanged.
type Snapshot struct {
	GamesCount      int64                 `json:"gamesCount"`
	DonorTable      map[string]DonorEntry `json:"donorTable"`
	JackpotStreak   int64                 `json:"jackpotStreak"`
	Jackpot         int64                 `json:"jackpot"`
	PublicPool      int64                 `json:"publicPool"`
	PublicPoolUsage map[string]UsageEntry `json:"publicPoolUsage"`
}

// DonorEntry is one donor's record. Only Allocated is load-bearing;
// Total is kept for compatibility with the historical format.
type DonorEntry struct {
	Total     int64 `json:"total"`
	Allocated int64 `json:"allocated"`
}

// UsageEntry is one user's public-pool usage for a given day.
type UsageEntry struct {
	Date string `json:"date"`
	Used int64  `json:"used"`
}

// EncodeSnapshot serializes a snapshot to its JSON record.
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	if s.DonorTable == nil {
		s.DonorTable = map[string]DonorEntry{}
	}
	if s.PublicPoolUsage == nil {
		s.PublicPoolUsage = map[string]UsageEntry{}
	}
	return json.Marshal(s)
}

// DecodeSnapshot parses a persisted record field by field. Loading is
// best-effort by contract: a missing or malformed field leaves that
// value at its default instead of failing the whole load.
func DecodeSnapshot(data []byte) *Snapshot {
	s := &Snapshot{
		DonorTable:      map[string]DonorEntry{},
		PublicPoolUsage: map[string]UsageEntry{},
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return s
	}

	decodeInt := func(field string, dst *int64) {
		if msg, ok := raw[field]; ok {
			var v int64
			if err := json.Unmarshal(msg, &v); err == nil {
				*dst = v
			}
		}
	}
	decodeInt("gamesCount", &s.GamesCount)
	decodeInt("jackpotStreak", &s.JackpotStreak)
	decodeInt("jackpot", &s.Jackpot)
	decodeInt("publicPool", &s.PublicPool)

	if msg, ok := raw["donorTable"]; ok {
		var table map[string]DonorEntry
		if err := json.Unmarshal(msg, &table); err == nil && table != nil {
			s.DonorTable = table
		}
	}
	if msg, ok := raw["publicPoolUsage"]; ok {
		var usage map[string]UsageEntry
		if err := json.Unmarshal(msg, &usage); err == nil && usage != nil {
			s.PublicPoolUsage = usage
		}
	}

	return s
}
