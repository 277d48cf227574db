package services

import (
	"ece-marketplace/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	half    = decimal.NewFromFloat(0.5)
	quarter = decimal.NewFromFloat(0.25)
	one     = decimal.NewFromInt(1)
)

// AmountPlaces is the precision of every ECE amount.
const AmountPlaces = 2

// NextAutoBid is the amount a rule with the given strategy offers against
// current, rounded to cents and never above ceiling. SNIPER has no timing rule and steps like
// AGGRESSIVE.
func NextAutoBid(strategy domain.AutoBidStrategy, current, increment, ceiling decimal.Decimal) decimal.Decimal {
	var step decimal.Decimal
	switch strategy {
	case domain.StrategyConservative:
		step = increment.Mul(half)
	case domain.StrategyGradual:
		step = decimal.Max(increment.Mul(quarter), one)
	default:
		step = increment
	}
	return decimal.Min(current.Add(step).Round(AmountPlaces), ceiling)
}

// NextProxyBid is one increment over current, capped at the proxy maximum.
func NextProxyBid(current, increment, maximum decimal.Decimal) decimal.Decimal {
	return decimal.Min(current.Add(increment).Round(AmountPlaces), maximum)
}
