package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zhstock/dsa/internal/domain"
)

func TestIsTradingDay_WeekendsClosed(t *testing.T) {
	sat := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, IsTradingDay(sat, domain.MarketUS))
}

func TestIsTradingDay_PureAcrossDecade(t *testing.T) {
	start := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 365*10; i++ {
		d := start.AddDate(0, 0, i)
		a := IsTradingDay(d, domain.MarketAShare)
		b := IsTradingDay(d, domain.MarketAShare)
		assert.Equal(t, a, b, "gate must be a pure function of (date, market)")
	}
}

func TestGate_ForceRunBypasses(t *testing.T) {
	sun := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, Run, Gate(sun, domain.MarketUS, true, true))
	assert.Equal(t, Skip, Gate(sun, domain.MarketUS, false, true))
	assert.Equal(t, Run, Gate(sun, domain.MarketUS, false, false))
}

func TestPlanBatch_AllSkippedWhenEveryMarketClosed(t *testing.T) {
	sun := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	plan := PlanBatch(sun, []string{"600519", "0700"}, func(tk string) domain.Market {
		if tk == "600519" {
			return domain.MarketAShare
		}
		return domain.MarketHK
	}, false, true)
	assert.True(t, plan.AllSkipped())
	assert.Empty(t, plan.Run)
}
