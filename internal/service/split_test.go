package service

import (
	"errors"
	"testing"

	"github.com/kalakart-next/internal/models"

	"github.com/shopspring/decimal"
)

func TestComputeSplitBasic(t *testing.T) {
	rate := models.NewRateFromDecimal(decimal.RequireFromString("0.05"))
	amounts, err := ComputeSplit(decimal.NewFromInt(100), rate)
	if err != nil {
		t.Fatalf("compute split failed: %v", err)
	}

	if !amounts.Commission.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("unexpected commission: %s", amounts.Commission.String())
	}
	if !amounts.Net.Equal(decimal.RequireFromString("95")) {
		t.Fatalf("unexpected net: %s", amounts.Net.String())
	}
	if !amounts.Gross.Equal(amounts.Commission.Add(amounts.Net)) {
		t.Fatalf("gross != commission + net")
	}
}

func TestComputeSplitRounding(t *testing.T) {
	rate := models.NewRateFromDecimal(decimal.RequireFromString("0.05"))
	amounts, err := ComputeSplit(decimal.RequireFromString("33.33"), rate)
	if err != nil {
		t.Fatalf("compute split failed: %v", err)
	}

	// 33.33 * 0.05 = 1.6665，四舍五入到 1.67
	if !amounts.Commission.Equal(decimal.RequireFromString("1.67")) {
		t.Fatalf("unexpected commission: %s", amounts.Commission.String())
	}
	if !amounts.Net.Equal(decimal.RequireFromString("31.66")) {
		t.Fatalf("unexpected net: %s", amounts.Net.String())
	}
	if !amounts.Gross.Equal(amounts.Commission.Add(amounts.Net)) {
		t.Fatalf("gross != commission + net")
	}
}

func TestComputeSplitZeroRate(t *testing.T) {
	rate := models.NewRateFromDecimal(decimal.Zero)
	amounts, err := ComputeSplit(decimal.RequireFromString("49.99"), rate)
	if err != nil {
		t.Fatalf("compute split failed: %v", err)
	}

	if !amounts.Commission.IsZero() {
		t.Fatalf("expected zero commission, got %s", amounts.Commission.String())
	}
	if !amounts.Net.Equal(decimal.RequireFromString("49.99")) {
		t.Fatalf("unexpected net: %s", amounts.Net.String())
	}
}

func TestComputeSplitRejectsNonPositiveGross(t *testing.T) {
	rate := models.NewRateFromDecimal(decimal.RequireFromString("0.05"))

	if _, err := ComputeSplit(decimal.Zero, rate); !errors.Is(err, ErrSplitInvalidGross) {
		t.Fatalf("expected invalid gross for zero, got: %v", err)
	}
	if _, err := ComputeSplit(decimal.NewFromInt(-10), rate); !errors.Is(err, ErrSplitInvalidGross) {
		t.Fatalf("expected invalid gross for negative, got: %v", err)
	}
}

func TestComputeSplitRejectsRateOutOfRange(t *testing.T) {
	gross := decimal.NewFromInt(100)

	if _, err := ComputeSplit(gross, models.NewRateFromDecimal(decimal.NewFromInt(1))); !errors.Is(err, ErrSplitInvalidRate) {
		t.Fatalf("expected invalid rate for 1, got: %v", err)
	}
	if _, err := ComputeSplit(gross, models.NewRateFromDecimal(decimal.RequireFromString("-0.01"))); !errors.Is(err, ErrSplitInvalidRate) {
		t.Fatalf("expected invalid rate for negative, got: %v", err)
	}
}

func TestComputeSplitCommissionNeverExceedsGross(t *testing.T) {
	rate := models.NewRateFromDecimal(decimal.RequireFromString("0.9999"))
	amounts, err := ComputeSplit(decimal.RequireFromString("0.01"), rate)
	if err != nil {
		t.Fatalf("compute split failed: %v", err)
	}

	if amounts.Commission.GreaterThan(amounts.Gross) {
		t.Fatalf("commission %s exceeds gross %s", amounts.Commission.String(), amounts.Gross.String())
	}
	if amounts.Net.IsNegative() {
		t.Fatalf("negative net: %s", amounts.Net.String())
	}
}
