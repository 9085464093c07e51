package dashboard

import (
	"github.com/shopspring/decimal"

	"commodash/internal/domain"
)

// BreakdownDelta returns estimated_cost minus the sum of the breakdown
// components at cent precision. Zero means the quote is self-consistent.
func BreakdownDelta(q domain.FreightQuote) float64 {
	sum := decimal.NewFromFloat(q.Breakdown.BaseCost).
		Add(decimal.NewFromFloat(q.Breakdown.FuelSurcharge)).
		Add(decimal.NewFromFloat(q.Breakdown.Insurance))
	d, _ := decimal.NewFromFloat(q.EstimatedCost).Sub(sum).Round(2).Float64()
	return d
}

// CostPerTon returns the estimated cost divided by weight, rounded to cents.
func CostPerTon(q domain.FreightQuote) float64 {
	if q.WeightTons <= 0 {
		return 0
	}
	f, _ := decimal.NewFromFloat(q.EstimatedCost).
		Div(decimal.NewFromFloat(q.WeightTons)).Round(2).Float64()
	return f
}
