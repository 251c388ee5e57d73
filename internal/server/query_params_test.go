package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionalBool(t *testing.T) {
	value, err := parseOptionalBool("")
	require.NoError(t, err)
	assert.Nil(t, value)

	value, err = parseOptionalBool(" true ")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.True(t, *value)

	_, err = parseOptionalBool("maybe")
	assert.Error(t, err)
}

func TestParseBoundedInt(t *testing.T) {
	cases := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"", 10, true},
		{"5", 5, true},
		{"100", 100, true},
		{"0", 0, false},
		{"101", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseBoundedInt(tc.in, 10, 100)
		assert.Equal(t, tc.wantOK, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseOptionalDate(t *testing.T) {
	got, ok := parseOptionalDate("2026-03-02")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), got)

	got, ok = parseOptionalDate("")
	require.True(t, ok)
	assert.True(t, got.IsZero())

	_, ok = parseOptionalDate("02/03/2026")
	assert.False(t, ok)
}
