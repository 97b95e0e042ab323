package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackedAccount_Watermark(t *testing.T) {
	registered := time.Date(2024, 3, 1, 18, 0, 0, 0, time.FixedZone("CET", 3600))
	account := NewTrackedAccount(1, 100, ExternalRef{Name: "Shroud", Tag: "EUW"}, registered)

	assert.Equal(t, time.UTC, account.LastProcessedEnd.Location())
	assert.True(t, account.HasProcessed(registered))
	assert.True(t, account.HasProcessed(registered.Add(-time.Minute)))
	assert.False(t, account.HasProcessed(registered.Add(time.Second)))

	account.AdvanceWatermark(registered.Add(time.Hour))
	assert.True(t, account.LastProcessedEnd.Equal(registered.Add(time.Hour)))

	account.AdvanceWatermark(registered)
	assert.True(t, account.LastProcessedEnd.Equal(registered.Add(time.Hour)), "watermark never moves backwards")
}

func TestTrackedAccount_RollingWindow(t *testing.T) {
	account := NewTrackedAccount(1, 0, ExternalRef{}, time.Now())
	assert.True(t, account.IsPrivateScope())
	assert.Equal(t, float64(0), account.HeadshotRate())
	assert.Equal(t, float64(0), account.AverageCombatScore())

	for i := 1; i <= RollingWindowSize+2; i++ {
		account.PushSample(PerformanceSample{Headshots: i, Bodyshots: 10 - i, CombatScore: float64(100 * i)})
	}

	assert.Len(t, account.RollingWindow, RollingWindowSize)
	assert.Equal(t, 3, account.RollingWindow[0].Headshots, "oldest samples are dropped first")
	assert.Equal(t, 7, account.RollingWindow[RollingWindowSize-1].Headshots)

	// samples 3..7: headshots 25 of 50 hits, ACS mean 500
	assert.InDelta(t, 0.5, account.HeadshotRate(), 1e-9)
	assert.InDelta(t, 500, account.AverageCombatScore(), 1e-9)
}

func TestTrackedAccount_HeadshotRateWithoutHits(t *testing.T) {
	account := NewTrackedAccount(1, 0, ExternalRef{}, time.Now())
	account.PushSample(PerformanceSample{CombatScore: 80})

	assert.Equal(t, float64(0), account.HeadshotRate())
	assert.Equal(t, float64(80), account.AverageCombatScore())
}

func TestExternalRef_GetFullName(t *testing.T) {
	assert.Equal(t, "Shroud#EUW", ExternalRef{Name: "Shroud", Tag: "EUW"}.GetFullName())
}
