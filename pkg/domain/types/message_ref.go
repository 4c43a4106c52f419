package types

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

var (
	permalinkPattern = regexp.MustCompile(`/p(\d+)(?:\?|#|$)`)
	relativePattern  = regexp.MustCompile(`^(\d+)\s+(second|minute|hour|day|week)s?\s+ago$`)
	numericPattern   = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

var relativeUnits = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
	"week":   7 * 24 * time.Hour,
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseMessageRef resolves a message reference to its token. It accepts a raw
// token ("1767795445.338939") or a message permalink whose last path segment
// is "p" followed by the token digits without the decimal point.
func ParseMessageRef(ref string) (SlackTS, error) {
	if strings.HasPrefix(ref, "http") {
		m := permalinkPattern.FindStringSubmatch(ref)
		if m == nil {
			return SlackTS{}, goerr.Wrap(ErrInvalidTimestamp, "invalid message link", goerr.V("link", ref))
		}
		raw := m[1]
		if len(raw) <= tsFractionDigits {
			return SlackTS{}, goerr.Wrap(ErrInvalidTimestamp, "invalid timestamp in link", goerr.V("link", ref))
		}
		return ParseSlackTS(raw[:len(raw)-tsFractionDigits] + "." + raw[len(raw)-tsFractionDigits:])
	}

	if !strings.Contains(ref, ".") {
		return SlackTS{}, goerr.Wrap(ErrInvalidTimestamp, "timestamp is missing its decimal point", goerr.V("ts", ref))
	}
	return ParseSlackTS(ref)
}

// ParseTimeSpec parses a human time boundary: a message reference, an integer
// or decimal token, an ISO-8601 date or datetime (naive values are UTC), or a
// relative expression such as "5 minutes ago".
func ParseTimeSpec(spec string, now time.Time) (SlackTS, error) {
	s := strings.TrimSpace(spec)
	if s == "" {
		return SlackTS{}, goerr.Wrap(ErrInvalidTimestamp, "empty time spec")
	}

	if strings.HasPrefix(s, "http") {
		return ParseMessageRef(s)
	}

	if numericPattern.MatchString(s) {
		return ParseSlackTS(s)
	}

	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return SlackTSFromTime(t), nil
		}
	}

	if m := relativePattern.FindStringSubmatch(strings.ToLower(s)); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return SlackTS{}, goerr.Wrap(ErrInvalidTimestamp, "unrecognized time spec", goerr.V("spec", spec))
		}
		return SlackTSFromTime(now.Add(-time.Duration(n) * relativeUnits[m[2]])), nil
	}

	return SlackTS{}, goerr.Wrap(ErrInvalidTimestamp, "unrecognized time spec", goerr.V("spec", spec))
}
