package models

import (
	"fmt"
	"strings"
	"time"
)

// OptionType distinguishes calls from puts. Persisted lowercase to match
// the historical quote archives.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// ParseOptionType accepts the archive spellings ("call", "CE", "put", "PE").
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "ce", "c":
		return Call, nil
	case "put", "pe", "p":
		return Put, nil
	default:
		return "", fmt.Errorf("unknown option type %q", s)
	}
}

func (o OptionType) IsCall() bool {
	return o == Call
}

// Quote is one observed market data point for a single option contract.
// Quotes are read-only: enrichment derives a new EnrichedQuote instead of
// mutating the source row.
type Quote struct {
	Timestamp       time.Time  `csv:"timestamp" json:"timestamp"`
	Symbol          string     `csv:"symbol" json:"symbol"`
	Strike          float64    `csv:"strike" json:"strike"`
	Expiry          time.Time  `csv:"expiry" json:"expiry"`
	OptionType      OptionType `csv:"option_type" json:"option_type"`
	UnderlyingPrice float64    `csv:"underlying_price" json:"underlying_price"`
	MarketPrice     float64    `csv:"market_price" json:"market_price"`
}

// EnrichedQuote is a Quote plus derived analytics. Nil pointers mean the
// value is unavailable for this row; they round-trip as empty CSV cells
// and JSON nulls, never as sentinel floats.
type EnrichedQuote struct {
	Quote
	TimeToExpiryYears float64  `csv:"time_to_expiry_years" json:"time_to_expiry_years"`
	ImpliedVolatility *float64 `csv:"iv" json:"iv"`
	Delta             *float64 `csv:"delta" json:"delta"`
	Gamma             *float64 `csv:"gamma" json:"gamma"`
	Theta             *float64 `csv:"theta" json:"theta"`
	Vega              *float64 `csv:"vega" json:"vega"`
	Rho               *float64 `csv:"rho" json:"rho"`
	Reason            Reason   `csv:"reason" json:"reason,omitempty"`
}

// Resolved reports whether implied volatility (and therefore the greeks)
// was recovered for this row.
func (e *EnrichedQuote) Resolved() bool {
	return e.ImpliedVolatility != nil
}

// Reason classifies why a row's analytics are unavailable. Empty for
// resolved rows.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonExpired       Reason = "expired"
	ReasonNoTimeValue   Reason = "no_time_value"
	ReasonBadInput      Reason = "bad_input"
	ReasonNoConvergence Reason = "no_convergence"
	ReasonAnomaly       Reason = "anomaly"
)
