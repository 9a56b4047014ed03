package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRunID(t *testing.T) {
	assert.Equal(t, "2025-09-001", FormatRunID(2025, 9, 1))
	assert.Equal(t, "2024-12-042", FormatRunID(2024, 12, 42))
}

func TestParseRunID(t *testing.T) {
	year, month, seq, err := ParseRunID("2025-09-001")
	require.NoError(t, err)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 9, month)
	assert.Equal(t, 1, seq)
}

func TestParseRunID_RoundTrip(t *testing.T) {
	id := FormatRunID(2024, 3, 17)
	year, month, seq, err := ParseRunID(id)
	require.NoError(t, err)
	assert.Equal(t, id, FormatRunID(year, month, seq))
}

func TestParseRunID_Invalid(t *testing.T) {
	for _, bad := range []string{"", "2025", "2025-09", "xxxx-09-001", "2025-xx-001", "2025-09-xxx"} {
		_, _, _, err := ParseRunID(bad)
		assert.Error(t, err, "id %q", bad)
	}
}
