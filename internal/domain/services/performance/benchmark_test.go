package performance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
)

func TestSynthesizeBenchmark_Deterministic(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC)

	first := SynthesizeBenchmark("SPY", from, to, entities.FrequencyDaily)
	second := SynthesizeBenchmark("SPY", from, to, entities.FrequencyDaily)

	require.Equal(t, len(first.DataPoints), len(second.DataPoints))
	for i := range first.DataPoints {
		assert.Equal(t, first.DataPoints[i].Date, second.DataPoints[i].Date)
		assert.True(t, first.DataPoints[i].Value.Equal(second.DataPoints[i].Value))
	}
	assert.True(t, first.Stats.Volatility.Equal(second.Stats.Volatility))
}

func TestSynthesizeBenchmark_DistinctIDsDiverge(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	spy := SynthesizeBenchmark("SPY", from, to, entities.FrequencyDaily)
	agg := SynthesizeBenchmark("AGG", from, to, entities.FrequencyDaily)

	identical := true
	for i := range spy.DataPoints {
		if !spy.DataPoints[i].Value.Equal(agg.DataPoints[i].Value) {
			identical = false
			break
		}
	}
	assert.False(t, identical, "different benchmark ids must produce different noise")
}

func TestSynthesizeBenchmark_WeekdaysOnlyAndSeedPoint(t *testing.T) {
	// 2024-01-01 Mon .. 2024-01-07 Sun: five weekdays
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)

	series := SynthesizeBenchmark("QQQ", from, to, entities.FrequencyDaily)

	require.Len(t, series.DataPoints, 5)
	assert.Equal(t, "2024-01-01", series.DataPoints[0].Date)
	assert.True(t, series.DataPoints[0].Value.IsZero())
	assert.Equal(t, "NASDAQ 100", series.Label)
}

func TestSynthesizeBenchmark_UnknownIDUsesDefaults(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	series := SynthesizeBenchmark("MYINDEX", from, to, entities.FrequencyDaily)
	assert.Equal(t, "MYINDEX", series.Label)
	assert.Len(t, series.DataPoints, 5)
}
