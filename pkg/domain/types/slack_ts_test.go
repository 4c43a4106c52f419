package types_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/clacks/pkg/domain/types"
)

func TestParseSlackTS(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"full precision", "1768309560.198419", "1768309560.198419", false},
		{"short fraction is right padded", "1768309560.5", "1768309560.500000", false},
		{"integer token", "1770088169", "1770088169.000000", false},
		{"empty", "", "", true},
		{"trailing dot", "1768309560.", "", true},
		{"too many fraction digits", "1768309560.1234567", "", true},
		{"negative", "-1.000001", "", true},
		{"garbage", "abc.def", "", true},
		{"exponent", "1e9", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := types.ParseSlackTS(tt.input)
			if tt.wantErr {
				gt.Error(t, err).Is(types.ErrInvalidTimestamp)
				return
			}
			gt.NoError(t, err).Required()
			gt.Value(t, ts.String()).Equal(tt.want)
		})
	}
}

func TestSlackTS_NextIsDecimalExact(t *testing.T) {
	ts := types.MustParseSlackTS("1768309560.198419")
	gt.Value(t, ts.Next().String()).Equal("1768309560.198420")

	carry := types.MustParseSlackTS("1768309560.999999")
	gt.Value(t, carry.Next().String()).Equal("1768309561.000000")
}

func TestSlackTS_CompareIsNumeric(t *testing.T) {
	// Lexicographic ordering would put "999999999.000000" after "1000000000.000000"
	narrow := types.MustParseSlackTS("999999999.000000")
	wide := types.MustParseSlackTS("1000000000.000000")

	gt.Bool(t, wide.After(narrow)).True()
	gt.Bool(t, narrow.After(wide)).False()
	gt.Value(t, narrow.Compare(wide)).Equal(-1)

	gt.Bool(t, types.MustParseSlackTS("1.5").Equal(types.MustParseSlackTS("1.500000"))).True()
}

func TestSlackTS_Zero(t *testing.T) {
	var zero types.SlackTS
	gt.Bool(t, zero.IsZero()).True()
	gt.Value(t, zero.String()).Equal("")
	gt.Bool(t, types.MustParseSlackTS("0.000001").After(zero)).True()
}

func TestSlackTSFromTime(t *testing.T) {
	tm := time.Date(2024, 1, 15, 10, 0, 0, 123456789, time.UTC)
	ts := types.SlackTSFromTime(tm)
	gt.Value(t, ts.String()).Equal("1705312800.123456")
	gt.Value(t, ts.Time()).Equal(time.Date(2024, 1, 15, 10, 0, 0, 123456000, time.UTC))
}
