package orchestrator

import (
	"regexp"
	"strconv"
	"strings"
)

// ParseAmount parses a meat amount with optional k/m shorthand:
// "250k" -> 250000, "2m" -> 2000000. The suffix is stripped, zeros are
// substituted and the whole thing reparsed; any failure yields 0, which
// callers reject.
func ParseAmount(s string) int64 {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}

	if strings.HasSuffix(s, "k") || strings.HasSuffix(s, "m") {
		prefix := s[:len(s)-1]
		suffix := strings.NewReplacer("k", "000", "m", "000000").Replace(s[len(s)-1:])
		s = prefix + suffix
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// chatPrefixRe strips a leading "<channel>" style tag from chat text.
var chatPrefixRe = regexp.MustCompile(`^<[^>]+>`)

// stripChatPrefix removes the channel tag a chat relay prepends.
func stripChatPrefix(text string) string {
	return strings.TrimSpace(chatPrefixRe.ReplaceAllString(text, ""))
}

// rollSpecRe matches the legacy NdM roll form, e.g. "3d6" or "2x10".
var rollSpecRe = regexp.MustCompile(`^(\d+)\s*[dDxX]\s*(\d+)$`)

// parseRollSpec parses the legacy NdM form. ok is false if the spec
// does not match at all.
func parseRollSpec(spec string) (count, sides int, ok bool) {
	m := rollSpecRe.FindStringSubmatch(spec)
	if m == nil {
		return 0, 0, false
	}
	count, _ = strconv.Atoi(m[1])
	sides, _ = strconv.Atoi(m[2])
	return count, sides, true
}
