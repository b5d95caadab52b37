package models

// DefaultRiskFreeRate is used for years absent from the rate table.
const DefaultRiskFreeRate = 0.06

// RateTable maps a calendar year to the annual risk-free rate used for
// quotes in that year. It is built once at engine start and never mutated
// afterwards, so it is safe to share across workers.
type RateTable struct {
	rates       map[int]float64
	defaultRate float64
}

// NewRateTable copies rates so later changes to the source map cannot leak
// into a running batch. A non-positive defaultRate falls back to
// DefaultRiskFreeRate.
func NewRateTable(rates map[int]float64, defaultRate float64) *RateTable {
	if defaultRate <= 0 {
		defaultRate = DefaultRiskFreeRate
	}
	copied := make(map[int]float64, len(rates))
	for year, rate := range rates {
		copied[year] = rate
	}
	return &RateTable{rates: copied, defaultRate: defaultRate}
}

// Rate returns the risk-free rate for the given calendar year.
func (t *RateTable) Rate(year int) float64 {
	if rate, ok := t.rates[year]; ok {
		return rate
	}
	return t.defaultRate
}
