// Package pricing computes the tariff quote attached to an intake.
//
// All amounts are integer cents. Intermediate math runs on shopspring/decimal
// so the result never depends on float64 representation error, and every
// rounding step rounds half away from zero.
package pricing

import (
	"github.com/shopspring/decimal"
)

// DepositShare is the part of the fee asked up front.
var DepositShare = decimal.NewFromFloat(0.5)

var (
	hundred = decimal.NewFromInt(100)
)

// Fees is the derived monetary part of a request, in cents.
type Fees struct {
	FeeAmount         int64 `json:"fee_amount"`
	DepositAmount     int64 `json:"deposit_amount"`
	PlatformFeeAmount int64 `json:"platform_fee_amount"`
}

// ComputeFees prices headcount guards for hours at hourlyRate euros per hour.
// platformFeeRatePercent is a percentage (15 means 15%).
func ComputeFees(headcount, hours int, hourlyRate, platformFeeRatePercent float64) Fees {
	rate := decimal.NewFromFloat(hourlyRate)
	fee := decimal.NewFromInt(int64(headcount)).
		Mul(decimal.NewFromInt(int64(hours))).
		Mul(rate).
		Mul(hundred).
		Round(0)

	deposit := fee.Mul(DepositShare).Round(0)
	platform := fee.Mul(decimal.NewFromFloat(platformFeeRatePercent)).Div(hundred).Round(0)

	return Fees{
		FeeAmount:         fee.IntPart(),
		DepositAmount:     deposit.IntPart(),
		PlatformFeeAmount: platform.IntPart(),
	}
}

// FormatEuro renders cents as "€1234.50".
func FormatEuro(cents int64) string {
	return "€" + decimal.New(cents, -2).StringFixed(2)
}
