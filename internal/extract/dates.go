package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Clock supplies "now" to date defaulting and relative-date resolution.
// Injected rather than read from the system so tests can pin the calendar.
type Clock func() time.Time

var todayMinusRe = regexp.MustCompile(`^<today\s*-\s*(\d+)>$`)

// resolveDaySentinel maps a relative-date sentinel from the model to a
// concrete day of month. The extraction prompt never computes dates itself;
// it emits sentinels and this resolves them strictly after parsing.
func resolveDaySentinel(token string, now time.Time) (int, bool) {
	token = strings.ToLower(strings.TrimSpace(token))

	if m := todayMinusRe.FindStringSubmatch(token); m != nil {
		days, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return now.AddDate(0, 0, -days).Day(), true
	}

	if token == "<yesterday's day>" || token == "<yesterday>" {
		return now.AddDate(0, 0, -1).Day(), true
	}

	return 0, false
}

// isPlaceholder reports whether a decoded value is an unresolved sentinel
// the model emitted instead of a number.
func isPlaceholder(v any) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(strings.TrimSpace(s), "<")
}
