package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionType(t *testing.T) {
	for spelling, want := range map[string]OptionType{
		"call": Call, "CALL": Call, "CE": Call, "c": Call,
		"put": Put, "PE": Put, "p": Put, " put ": Put,
	} {
		got, err := ParseOptionType(spelling)
		require.NoError(t, err, spelling)
		assert.Equal(t, want, got, spelling)
	}

	_, err := ParseOptionType("straddle")
	assert.Error(t, err)
}

func TestEnrichedQuoteResolved(t *testing.T) {
	var e EnrichedQuote
	assert.False(t, e.Resolved())

	iv := 0.2
	e.ImpliedVolatility = &iv
	assert.True(t, e.Resolved())
}

func TestBatchSummaryUnavailableTotal(t *testing.T) {
	s := BatchSummary{Unavailable: map[Reason]int64{
		ReasonExpired:     5,
		ReasonNoTimeValue: 3,
		ReasonBadInput:    1,
	}}
	assert.Equal(t, int64(9), s.UnavailableTotal())
}
