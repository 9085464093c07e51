package dashboard

import (
	"errors"

	"github.com/shopspring/decimal"

	"commodash/internal/domain"
)

// ErrZeroBase is returned by TrendPercent when the first predicted value is
// zero and the percentage is undefined.
var ErrZeroBase = errors.New("trend base is zero")

// TrendPercent returns (last-first)/first*100 over the predicted values,
// rounded half away from zero to 2 decimals. Series with fewer than two
// points yield 0. A zero first value yields 0 and ErrZeroBase.
func TrendPercent(points []domain.ForecastPoint) (float64, error) {
	if len(points) < 2 {
		return 0, nil
	}
	first := decimal.NewFromFloat(points[0].Predicted)
	last := decimal.NewFromFloat(points[len(points)-1].Predicted)
	if first.IsZero() {
		return 0, ErrZeroBase
	}

	pct := last.Sub(first).Div(first).Mul(decimal.NewFromInt(100)).Round(2)
	f, _ := pct.Float64()
	return f, nil
}

// InvalidBands returns the indexes of points whose predicted value falls
// outside [lower_bound, upper_bound].
func InvalidBands(points []domain.ForecastPoint) []int {
	var bad []int
	for i, p := range points {
		if !p.Valid() {
			bad = append(bad, i)
		}
	}
	return bad
}
