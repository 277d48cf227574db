package services

import (
	"testing"

	"ece-marketplace/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestNextAutoBid(t *testing.T) {
	tests := []struct {
		name      string
		strategy  domain.AutoBidStrategy
		current   string
		increment string
		ceiling   string
		want      string
	}{
		{"aggressive steps a full increment", domain.StrategyAggressive, "100", "10", "500", "110"},
		{"conservative steps half", domain.StrategyConservative, "100", "10", "500", "105"},
		{"gradual steps a quarter", domain.StrategyGradual, "100", "10", "500", "102.5"},
		{"gradual never steps below one", domain.StrategyGradual, "100", "2", "500", "101"},
		{"sniper behaves like aggressive", domain.StrategySniper, "100", "10", "500", "110"},
		{"clamped to the ceiling", domain.StrategyAggressive, "100", "10", "105", "105"},
		{"conservative keeps cents", domain.StrategyConservative, "100", "0.1", "500", "100.05"},
		{"conservative rounds half cents", domain.StrategyConservative, "100", "0.05", "500", "100.03"},
		{"gradual rounds to cents", domain.StrategyGradual, "100", "10.1", "500", "102.53"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextAutoBid(tt.strategy, dec(tt.current), dec(tt.increment), dec(tt.ceiling))
			assert.Truef(t, dec(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestNextProxyBid(t *testing.T) {
	assert.True(t, dec("160").Equal(NextProxyBid(dec("150"), dec("10"), dec("200"))))
	assert.True(t, dec("155").Equal(NextProxyBid(dec("150"), dec("10"), dec("155"))))
	assert.True(t, dec("150.01").Equal(NextProxyBid(dec("150"), dec("0.005"), dec("200"))))
}
