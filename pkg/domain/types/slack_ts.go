package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const (
	tsFractionDigits = 6
	tsMaxIntDigits   = 12
	microsPerSecond  = 1_000_000
)

// SlackTS is a message timestamp token such as "1768309560.198419".
//
// The value is held as an integer count of microseconds so that ordering and
// the boundary increment are exact. Comparing the raw strings is only correct
// while every token has the same integer width, and float64 cannot represent
// 16 significant digits.
type SlackTS struct {
	micros int64
	valid  bool
}

// Epsilon is the smallest step between two distinct tokens
const Epsilon = 1 // microsecond

// ParseSlackTS parses a decimal token with at most six fractional digits.
// An integer token without a fractional part is accepted.
func ParseSlackTS(s string) (SlackTS, error) {
	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if intPart == "" || len(intPart) > tsMaxIntDigits || !isDigits(intPart) {
		return SlackTS{}, goerr.Wrap(ErrInvalidTimestamp, "malformed timestamp token", goerr.V("ts", s))
	}
	if hasDot && (fracPart == "" || len(fracPart) > tsFractionDigits || !isDigits(fracPart)) {
		return SlackTS{}, goerr.Wrap(ErrInvalidTimestamp, "malformed timestamp fraction", goerr.V("ts", s))
	}

	sec, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return SlackTS{}, goerr.Wrap(ErrInvalidTimestamp, "timestamp out of range", goerr.V("ts", s))
	}

	var frac int64
	if fracPart != "" {
		padded := fracPart + strings.Repeat("0", tsFractionDigits-len(fracPart))
		frac, err = strconv.ParseInt(padded, 10, 64)
		if err != nil {
			return SlackTS{}, goerr.Wrap(ErrInvalidTimestamp, "malformed timestamp fraction", goerr.V("ts", s))
		}
	}

	return SlackTS{micros: sec*microsPerSecond + frac, valid: true}, nil
}

// MustParseSlackTS is ParseSlackTS for constants and tests
func MustParseSlackTS(s string) SlackTS {
	ts, err := ParseSlackTS(s)
	if err != nil {
		panic(err)
	}
	return ts
}

// SlackTSFromTime converts a wall-clock time into a token, truncated to microseconds
func SlackTSFromTime(t time.Time) SlackTS {
	return SlackTS{micros: t.UnixMicro(), valid: true}
}

// IsZero reports whether the token was never set
func (t SlackTS) IsZero() bool {
	return !t.valid
}

// String renders the canonical six-digit form
func (t SlackTS) String() string {
	if !t.valid {
		return ""
	}
	return fmt.Sprintf("%d.%06d", t.micros/microsPerSecond, t.micros%microsPerSecond)
}

// Compare returns -1, 0 or +1. An unset token orders before every set token.
func (t SlackTS) Compare(u SlackTS) int {
	switch {
	case !t.valid && !u.valid:
		return 0
	case !t.valid:
		return -1
	case !u.valid:
		return 1
	case t.micros < u.micros:
		return -1
	case t.micros > u.micros:
		return 1
	default:
		return 0
	}
}

// After reports whether t is strictly later than u
func (t SlackTS) After(u SlackTS) bool {
	return t.Compare(u) > 0
}

// Equal reports whether both tokens denote the same instant
func (t SlackTS) Equal(u SlackTS) bool {
	return t.Compare(u) == 0
}

// Next returns the exclusive lower boundary for "everything after t".
// The history API treats its oldest parameter as inclusive.
func (t SlackTS) Next() SlackTS {
	return SlackTS{micros: t.micros + Epsilon, valid: true}
}

// Time converts the token to a UTC wall-clock time
func (t SlackTS) Time() time.Time {
	return time.UnixMicro(t.micros).UTC()
}

// MarshalText implements encoding.TextMarshaler
func (t SlackTS) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
