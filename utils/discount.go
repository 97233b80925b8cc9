package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	zheRegex   = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*折`)
	pctRegex   = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*%`)
	minusRegex = regexp.MustCompile(`(减|立减|优惠)\s*¥?([0-9]+(?:\.[0-9]+)?)`)
)

// ComputeLiveFromDiscount derives a live price from a market price and a
// free-text discount annotation. Recognized patterns, in order:
//
//	"8.8折"      → market * 0.88
//	"12% OFF"    → market * (1 - 0.12)
//	"立减¥30"    → market - 30, floored at zero
//
// Returns (0, false) when the text carries no recognizable pattern, in which
// case the caller leaves the live price unchanged.
func ComputeLiveFromDiscount(market float64, discount string) (float64, bool) {
	if m := zheRegex.FindStringSubmatch(discount); m != nil {
		if rate, err := strconv.ParseFloat(m[1], 64); err == nil {
			return round2(market * rate / 10), true
		}
	}
	if m := pctRegex.FindStringSubmatch(discount); m != nil && strings.Contains(strings.ToLower(discount), "off") {
		if off, err := strconv.ParseFloat(m[1], 64); err == nil {
			return round2(market * (1 - off/100)), true
		}
	}
	if m := minusRegex.FindStringSubmatch(discount); m != nil {
		if amt, err := strconv.ParseFloat(m[2], 64); err == nil {
			return math.Max(0, round2(market-amt)), true
		}
	}
	return 0, false
}

// ZhDiscountText converts a Chinese discount rate (0-10, e.g. 8.8 折) into the
// "x% OFF" annotation shown on the card.
func ZhDiscountText(zh float64) string {
	zh = math.Max(0, math.Min(10, zh))
	offPct := round1(100 - zh*10)
	s := strconv.FormatFloat(offPct, 'f', -1, 64)
	return s + "% OFF"
}

// ClampCommission caps a commission percentage into [0, 100].
func ClampCommission(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
