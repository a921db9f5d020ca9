package service

import (
	"github.com/kalakart-next/internal/models"

	"github.com/shopspring/decimal"
)

// SplitAmounts 单笔分账金额拆解
type SplitAmounts struct {
	Gross      decimal.Decimal
	Commission decimal.Decimal
	Net        decimal.Decimal
}

// ComputeSplit 按佣金比例拆解卖家分摊金额。
// 毛额必须为正，佣金比例必须落在 [0, 1)。
// 佣金四舍五入到分，净得为毛额减佣金，保证 gross = commission + net。
func ComputeSplit(gross decimal.Decimal, rate models.Rate) (SplitAmounts, error) {
	gross = gross.Round(2)
	if gross.LessThanOrEqual(decimal.Zero) {
		return SplitAmounts{}, ErrSplitInvalidGross
	}
	if rate.Decimal.IsNegative() || rate.Decimal.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return SplitAmounts{}, ErrSplitInvalidRate
	}
	commission := gross.Mul(rate.Decimal).Round(2)
	if commission.GreaterThan(gross) {
		commission = gross
	}
	return SplitAmounts{
		Gross:      gross,
		Commission: commission,
		Net:        gross.Sub(commission),
	}, nil
}
