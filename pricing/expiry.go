package pricing

import (
	"time"
)

// secondsPerYear uses the 365.25-day year the enrichment pipeline has
// always used for year-fraction conversion.
const secondsPerYear = 365.25 * 24 * 3600

// ExpiryClock converts quote timestamps and contract expiry dates into
// year fractions. Contracts expire at a fixed daily cutoff on their
// expiry date (15:30 local time on NSE), not at midnight.
type ExpiryClock struct {
	CloseHour   int
	CloseMinute int
	Location    *time.Location
}

// NewExpiryClock builds a clock for the given daily cutoff. A negative
// closeHour selects the NSE close, 15:30 Asia/Kolkata; a midnight cutoff
// is spelled out as (0, 0).
func NewExpiryClock(closeHour, closeMinute int, loc *time.Location) ExpiryClock {
	if loc == nil {
		loc = marketLocation()
	}
	if closeHour < 0 {
		closeHour, closeMinute = 15, 30
	}
	return ExpiryClock{CloseHour: closeHour, CloseMinute: closeMinute, Location: loc}
}

// marketLocation falls back to a fixed IST offset on hosts without tzdata.
func marketLocation() *time.Location {
	if loc, err := time.LoadLocation("Asia/Kolkata"); err == nil {
		return loc
	}
	return time.FixedZone("IST", int(5.5*3600))
}

// ExpiryInstant is the moment the contract stops trading: the market
// close cutoff on its expiry date, in the market timezone.
func (c ExpiryClock) ExpiryInstant(expiry time.Time) time.Time {
	y, m, d := expiry.In(c.Location).Date()
	return time.Date(y, m, d, c.CloseHour, c.CloseMinute, 0, 0, c.Location)
}

// YearsToExpiry returns the year fraction between the quote timestamp
// and the contract's expiry instant. Quotes at or after expiry return
// exactly zero.
func (c ExpiryClock) YearsToExpiry(quoteTime, expiry time.Time) float64 {
	remaining := c.ExpiryInstant(expiry).Sub(quoteTime.In(c.Location))
	if remaining <= 0 {
		return 0
	}
	return remaining.Seconds() / secondsPerYear
}
