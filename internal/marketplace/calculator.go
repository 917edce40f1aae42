package marketplace

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/brandwacht/internal/pricing"
)

// Calculator handles GET /calculator?people=&hours=, the tariff preview shown
// next to the intake form. Inputs are clamped like an intake.
func (h *Handler) Calculator(c echo.Context) error {
	people := Clamp(c.QueryParam("people"), MinHeadcount, MaxHeadcount)
	hours := Clamp(c.QueryParam("hours"), MinHours, MaxHours)
	rates := h.intake.Rates()
	fees := rates.Quote(people, hours)

	return c.JSON(http.StatusOK, echo.Map{
		"people":              people,
		"hours":               hours,
		"hourly_rate":         rates.HourlyRate,
		"platform_fee_rate":   rates.PlatformFeeRate,
		"fee_amount":          fees.FeeAmount,
		"deposit_amount":      fees.DepositAmount,
		"platform_fee_amount": fees.PlatformFeeAmount,
		"fee_display":         pricing.FormatEuro(fees.FeeAmount),
		"deposit_display":     pricing.FormatEuro(fees.DepositAmount),
	})
}
