package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/clacks/pkg/domain/types"
)

func TestParseTargetType(t *testing.T) {
	tt, err := types.ParseTargetType("user")
	gt.NoError(t, err).Required()
	gt.Value(t, tt).Equal(types.TargetTypeUser)

	_, err = types.ParseTargetType("User")
	gt.Error(t, err).Is(types.ErrInvalidTargetType)

	_, err = types.ParseTargetType("")
	gt.Error(t, err).Is(types.ErrInvalidTargetType)
}

func TestTargetType_IsPlatformID(t *testing.T) {
	testCases := []struct {
		kind types.TargetType
		s    string
		want bool
	}{
		{types.TargetTypeUser, "U0123ABC", true},
		{types.TargetTypeUser, "W0123ABC", true},
		{types.TargetTypeUser, "username", false},
		{types.TargetTypeUser, "U1", false},
		{types.TargetTypeChannel, "C0123ABC", true},
		{types.TargetTypeChannel, "G0123ABC", true},
		{types.TargetTypeChannel, "D0123ABC", true},
		{types.TargetTypeChannel, "general", false},
		{types.TargetTypeChannel, "Cgeneral", false},
		{types.TargetTypeChannel, "U0123ABC", false},
	}

	for _, tc := range testCases {
		if got := tc.kind.IsPlatformID(tc.s); got != tc.want {
			t.Errorf("%s.IsPlatformID(%q) = %v, want %v", tc.kind, tc.s, got, tc.want)
		}
	}
}

func TestTargetType_Decoration(t *testing.T) {
	gt.Value(t, types.TargetTypeUser.Decoration()).Equal("@")
	gt.Value(t, types.TargetTypeChannel.Decoration()).Equal("#")
	gt.Value(t, types.TargetType("team").Decoration()).Equal("")
}
