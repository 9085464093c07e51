package dashboard

import (
	"math/rand/v2"
	"strings"
)

// MiniChartPoints is the length of a synthesized mini chart.
const MiniChartPoints = 20

// MiniChart synthesizes a decorative series of MiniChartPoints values of the
// form 50 + r*30 + i*0.5 with r drawn from rnd. It carries no market meaning.
// A nil rnd uses the global source.
func MiniChart(rnd *rand.Rand) []float64 {
	next := rand.Float64
	if rnd != nil {
		next = rnd.Float64
	}
	out := make([]float64, MiniChartPoints)
	for i := range out {
		out[i] = 50 + next()*30 + float64(i)*0.5
	}
	return out
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders values as a row of block characters scaled between the
// series minimum and maximum.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	var b strings.Builder
	for _, v := range values {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkRunes)-1))
		}
		b.WriteRune(sparkRunes[idx])
	}
	return b.String()
}
