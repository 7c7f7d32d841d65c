package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseRow(t *testing.T) {
	row := []string{"1756380600000", "100", "102", "99.5", "101.5", "2000", "1"}
	bar, ok := parseRow("AAA", row)
	require.True(t, ok)
	require.Equal(t, "AAA", bar.Symbol)
	require.Equal(t, time.UnixMilli(1756380600000), bar.Time)
	require.Equal(t, 100.0, bar.Open)
	require.Equal(t, 102.0, bar.High)
	require.Equal(t, 99.5, bar.Low)
	require.Equal(t, 101.5, bar.Close)
	require.Equal(t, 2000.0, bar.Volume)
}

func TestParseRowRejects(t *testing.T) {
	cases := map[string][]string{
		"unconfirmed": {"1756380600000", "100", "102", "99.5", "101.5", "2000", "0"},
		"short":       {"1756380600000", "100", "102"},
		"bad ts":      {"not-a-ts", "100", "102", "99.5", "101.5", "2000", "1"},
		"bad price":   {"1756380600000", "100", "x", "99.5", "101.5", "2000", "1"},
		"zero close":  {"1756380600000", "100", "102", "99.5", "0", "2000", "1"},
	}
	for name, row := range cases {
		_, ok := parseRow("AAA", row)
		require.False(t, ok, name)
	}
}
