package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ripe-api/internal/models"
)

func noSelection() codeSelection {
	return codeSelection{College: models.SentinelCode, Program: models.SentinelCode, Project: models.SentinelCode}
}

func TestSequenceKeyForUsesUTCYear(t *testing.T) {
	manila := time.FixedZone("PHT", 8*60*60)
	sub := newSubmission(42)
	sub.SubmittedAt = time.Date(2025, 1, 1, 3, 0, 0, 0, manila)

	key, err := sequenceKeyFor(sub, noSelection())
	require.NoError(t, err)
	assert.Equal(t, 2024, key.Year)
}

func TestSequenceKeyForDefaultsBlankUnitCode(t *testing.T) {
	cases := map[string]*string{
		"nil":        nil,
		"empty":      strRef(""),
		"whitespace": strRef("   "),
	}
	for name, code := range cases {
		t.Run(name, func(t *testing.T) {
			sub := newSubmission(42)
			sub.UnitCode = code

			key, err := sequenceKeyFor(sub, noSelection())
			require.NoError(t, err)
			assert.Equal(t, models.DefaultUnitCode, key.UnitCode)
			assert.NoError(t, key.Validate())
		})
	}
}

func TestSequenceKeyForTrimsUnitCode(t *testing.T) {
	sub := newSubmission(42)
	sub.UnitCode = strRef(" 3 ")

	key, err := sequenceKeyFor(sub, noSelection())
	require.NoError(t, err)
	assert.Equal(t, "3", key.UnitCode)
}
