package services

import (
	"ece-marketplace/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	TimelineRush     = "RUSH_2_WEEKS"
	TimelineStandard = "STANDARD_1_MONTH"
)

var timelineBase = map[string]decimal.Decimal{
	TimelineRush:     decimal.NewFromInt(8000),
	TimelineStandard: decimal.NewFromInt(4000),
}

var projectMultiplier = map[string]decimal.Decimal{
	"SAAS_DASHBOARD":  decimal.RequireFromString("1.2"),
	"ECOMMERCE_STORE": decimal.RequireFromString("1.3"),
	"MOBILE_APP":      decimal.RequireFromString("1.4"),
	"WEB_APP":         decimal.RequireFromString("1.2"),
	"PORTFOLIO_SITE":  decimal.RequireFromString("0.8"),
	"LANDING_PAGE":    decimal.RequireFromString("0.6"),
	"CUSTOM":          decimal.RequireFromString("1.5"),
}

// QuoteOrder prices a project: the timeline base times the project type
// multiplier, rounded to a whole ECE.
func QuoteOrder(projectType, timeline string) (decimal.Decimal, error) {
	multiplier, ok := projectMultiplier[projectType]
	if !ok {
		return decimal.Zero, domain.Validation("Invalid project type")
	}
	base, ok := timelineBase[timeline]
	if !ok {
		return decimal.Zero, domain.Validation("Invalid timeline")
	}
	return base.Mul(multiplier).Round(0), nil
}
