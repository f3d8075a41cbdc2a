package snapshot

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// NA 数据不可用时的占位符
const NA = "N/A"

// formatNumber 千分位整数，四舍六入五成双
func formatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NA
	}
	return humanize.Comma(int64(math.RoundToEven(v)))
}

// formatPercent 两位小数加百分号
func formatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NA
	}
	return fmt.Sprintf("%.2f%%", v)
}

// formatDecimal 两位小数，用于 EPS 和股价
func formatDecimal(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NA
	}
	return fmt.Sprintf("%.2f", v)
}

// ratio 计算 part / whole * 100，分母为 0 或缺失时返回 NaN
func ratio(part, whole float64) float64 {
	if whole == 0 || math.IsNaN(whole) {
		return math.NaN()
	}
	return part / whole * 100
}

// growthRate 计算环比/同比增长率，上期为 0 或缺失、本期为 0 时返回 NaN
func growthRate(current, previous float64) float64 {
	if previous == 0 || math.IsNaN(previous) || current == 0 {
		return math.NaN()
	}
	return (current - previous) / math.Abs(previous) * 100
}
