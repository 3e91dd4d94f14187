package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "10.005", want: "10.01"},
		{in: "10.004", want: "10.00"},
		{in: "57.5", want: "57.50"},
		{in: "-1.235", want: "-1.24"},
		{in: "0", want: "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MustParse(tt.in).Round().String())
		})
	}
}

func TestMulRate(t *testing.T) {
	// 50 * 1.15 = 57.5
	got := MustParse("50").Mul(MustParseRate("1.15")).Round()
	assert.True(t, MustParse("57.50").Equal(got), "got %s", got)

	// 9.99 * 0.95 = 9.4905 -> 9.49
	got = MustParse("9.99").Mul(MustParseRate("0.95")).Round()
	assert.Equal(t, "9.49", got.String())
}

func TestRoundPerLineThenSum(t *testing.T) {
	// Three lines of 0.333 rounded individually differ from rounding the sum.
	unit := MustParse("1").Mul(MustParseRate("0.3333"))
	perLine := Zero
	for range 3 {
		perLine = perLine.Add(unit.Round()).Round()
	}
	assert.Equal(t, "0.99", perLine.String())
	assert.Equal(t, "1.00", unit.Times(3).Round().String())
}

func TestRate(t *testing.T) {
	r := MustParseRate("0.123456")
	assert.Equal(t, "0.1235", r.String())
	assert.Equal(t, "0.8765", r.Complement().String())
	assert.True(t, One.Equal(MustParseRate("1.0000")))
	assert.True(t, MustParseRate("0.3").GreaterThan(MustParseRate("0.2")))
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("abc")
	require.Error(t, err)
	_, err = ParseRate("1,5")
	require.Error(t, err)
}

func TestTimes(t *testing.T) {
	assert.Equal(t, "575.00", MustParse("57.50").Times(10).String())
	assert.True(t, Zero.Times(7).IsZero())
}
