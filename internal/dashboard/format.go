package dashboard

import (
	"fmt"
	"math"
	"strings"
	"time"

	"commodash/internal/domain"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	if len(s) > 3 {
		var b strings.Builder
		start := len(s) % 3
		if start > 0 {
			b.WriteString(s[:start])
		}
		for i := start; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatPrice formats a price as $1,234.56.
func FormatPrice(p float64) string {
	cents := int64(math.Round(math.Abs(p) * 100))
	s := fmt.Sprintf("$%s.%02d", FormatInt(cents/100), cents%100)
	if p < 0 && cents != 0 {
		return "-" + s
	}
	return s
}

// FormatChange formats an absolute change with an explicit sign.
func FormatChange(c float64) string {
	if c >= 0 {
		return fmt.Sprintf("+%.2f", c)
	}
	return fmt.Sprintf("%.2f", c)
}

// FormatPercent formats a percentage as "+1.23%" or "-0.45%".
func FormatPercent(p float64) string {
	if p >= 0 {
		return fmt.Sprintf("+%.2f%%", p)
	}
	return fmt.Sprintf("%.2f%%", p)
}

// FormatTrend formats a trend, or "--" when it could not be computed.
func FormatTrend(p float64, err error) string {
	if err != nil {
		return "--"
	}
	return FormatPercent(p)
}

// CategoryLabel turns "precious_metals" into "PRECIOUS METALS".
func CategoryLabel(c domain.Category) string {
	return strings.ToUpper(strings.ReplaceAll(string(c), "_", " "))
}

// RelativeTime renders a news timestamp relative to now: "Just now" within
// the hour, "Nh ago" within a day, otherwise the calendar date. Unparsable
// input is returned unchanged.
func RelativeTime(published string, now time.Time) string {
	if published == "" {
		return ""
	}
	t, err := parseTimestamp(published)
	if err != nil {
		return published
	}
	d := now.Sub(t)
	switch {
	case d < time.Hour:
		return "Just now"
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("2006-01-02")
	}
}

func parseTimestamp(s string) (time.Time, error) {
	var err error
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02"} {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// PadOrTrunc pads s with spaces or truncates it with an ellipsis to exactly
// width runes.
func PadOrTrunc(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		if width <= 1 {
			return string(r[:width])
		}
		return string(r[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", width-len(r))
}
