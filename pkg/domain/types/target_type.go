package types

import (
	"regexp"

	"github.com/m-mizutani/goerr/v2"
)

// TargetType is the kind of platform object an identifier refers to
type TargetType string

const (
	TargetTypeUser    TargetType = "user"
	TargetTypeChannel TargetType = "channel"
)

var (
	userIDPattern    = regexp.MustCompile(`^[UW][A-Z0-9]{2,}$`)
	channelIDPattern = regexp.MustCompile(`^[CDG][A-Z0-9]{2,}$`)
)

// AllTargetTypes returns all valid target types
func AllTargetTypes() []TargetType {
	return []TargetType{
		TargetTypeUser,
		TargetTypeChannel,
	}
}

// IsValid checks if the target type is valid
func (t TargetType) IsValid() bool {
	switch t {
	case TargetTypeUser, TargetTypeChannel:
		return true
	default:
		return false
	}
}

// String returns the string representation of the target type
func (t TargetType) String() string {
	return string(t)
}

// IsPlatformID reports whether s is already a platform ID of this kind.
// Slack names are lower-case, so an upper-case structural prefix is unambiguous.
func (t TargetType) IsPlatformID(s string) bool {
	switch t {
	case TargetTypeUser:
		return userIDPattern.MatchString(s)
	case TargetTypeChannel:
		return channelIDPattern.MatchString(s)
	default:
		return false
	}
}

// Decoration returns the display prefix humans put in front of a name ("@" or "#")
func (t TargetType) Decoration() string {
	switch t {
	case TargetTypeUser:
		return "@"
	case TargetTypeChannel:
		return "#"
	default:
		return ""
	}
}

// ParseTargetType parses a string into a TargetType
func ParseTargetType(s string) (TargetType, error) {
	tt := TargetType(s)
	if !tt.IsValid() {
		return "", goerr.Wrap(ErrInvalidTargetType, "target type must be user or channel", goerr.V("target_type", s))
	}
	return tt, nil
}
