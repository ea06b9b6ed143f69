package performance

import (
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
)

// benchmarkParams are the fixed daily mean/volatility of a synthetic
// index. This is a stand-in for a real index feed; given the same
// benchmark id and dates the series is bit-reproducible.
type benchmarkParams struct {
	label     string
	dailyMean float64
	dailyVol  float64
}

var benchmarkCatalog = map[string]benchmarkParams{
	"SPY":   {label: "S&P 500", dailyMean: 0.0004, dailyVol: 0.010},
	"QQQ":   {label: "NASDAQ 100", dailyMean: 0.0005, dailyVol: 0.013},
	"KOSPI": {label: "KOSPI", dailyMean: 0.0002, dailyVol: 0.011},
	"AGG":   {label: "US Aggregate Bond", dailyMean: 0.0001, dailyVol: 0.003},
	"VT":    {label: "Total World", dailyMean: 0.0003, dailyVol: 0.009},
}

var defaultBenchmarkParams = benchmarkParams{dailyMean: 0.0003, dailyVol: 0.010}

// SynthesizeBenchmark builds a deterministic pseudo-random return series
// for a benchmark id over [from, to]. Each day's noise is seeded by
// hash(benchmarkId, date), so repeated calls reproduce identical output.
func SynthesizeBenchmark(benchmarkID string, from, to time.Time, frequency entities.Frequency) entities.BenchmarkSeries {
	params, ok := benchmarkCatalog[benchmarkID]
	if !ok {
		params = defaultBenchmarkParams
		params.label = benchmarkID
	}

	var points []entities.DataPoint
	var returns []float64
	cumulative := 1.0
	first := true

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		if first {
			points = append(points, entities.DataPoint{
				Date:  day.Format("2006-01-02"),
				Value: roundFloat(0, returnScale),
			})
			first = false
			continue
		}

		r := dailyBenchmarkReturn(benchmarkID, day, params)
		returns = append(returns, r)
		cumulative *= 1.0 + r

		points = append(points, entities.DataPoint{
			Date:  day.Format("2006-01-02"),
			Value: roundFloat(cumulative-1.0, returnScale),
		})
	}

	return entities.BenchmarkSeries{
		BenchmarkID: benchmarkID,
		Label:       params.label,
		DataPoints:  resample(points, frequency),
		Stats:       riskMetrics(returns),
	}
}

// dailyBenchmarkReturn derives one day's return from a seed that only
// depends on the benchmark id and the date.
func dailyBenchmarkReturn(benchmarkID string, day time.Time, params benchmarkParams) float64 {
	h := fnv.New64a()
	h.Write([]byte(benchmarkID))
	h.Write([]byte(day.Format("2006-01-02")))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	return params.dailyMean + rng.NormFloat64()*params.dailyVol
}
