package taxdata

import "math"

// 2024 figures used by the simplified estimator. All outputs are guidance
// only, never authoritative.
const (
	BasicAllowance2024        = 11604.0 // Grundfreibetrag, single filer
	EmployeeLumpSum2024       = 1230.0  // Werbungskosten-Pauschbetrag
	HomeOfficePerDay2024      = 6.0     // Home-Office-Pauschale per day
	HomeOfficeAnnualCap2024   = 1260.0
	CommuterPerKmNear2024     = 0.30 // Pendlerpauschale up to 20 km
	CommuterPerKmFar2024      = 0.38 // from the 21st km
	SaverAllowanceSingle2024  = 1000.0
	SaverAllowanceMarried2024 = 2000.0
	socialContributionRate    = 0.20 // rough combined social insurance share
)

// Estimate is a simplified tax overview for one income figure
type Estimate struct {
	GrossIncome         float64
	TaxFreeAllowance    float64
	TaxableIncome       float64
	TaxLiability        float64
	SocialContributions float64
	NetIncome           float64
	EffectiveRate       float64
	MarginalRate        float64
}

// EstimateIncomeTax computes a simplified 2024 German income tax overview.
// married doubles the basic allowance (joint filing).
func EstimateIncomeTax(grossIncome float64, married bool) Estimate {
	allowance := BasicAllowance2024
	if married {
		allowance = 2 * BasicAllowance2024
	}

	taxable := math.Max(0, grossIncome-allowance)
	tax := progressiveTax(taxable)
	social := grossIncome * socialContributionRate

	est := Estimate{
		GrossIncome:         grossIncome,
		TaxFreeAllowance:    allowance,
		TaxableIncome:       taxable,
		TaxLiability:        tax,
		SocialContributions: social,
		NetIncome:           grossIncome - tax - social,
		MarginalRate:        MarginalRate(taxable),
	}
	if grossIncome > 0 {
		est.EffectiveRate = tax / grossIncome * 100
	}
	return est
}

// progressiveTax approximates the 2024 German progressive schedule over
// taxable income (already net of allowances)
func progressiveTax(taxable float64) float64 {
	switch {
	case taxable <= 0:
		return 0
	case taxable <= 5401:
		// Entry zone, 14% rising
		y := taxable / 10000
		return (922.98*y + 1400) * y
	case taxable <= 55156:
		// Progression zone up to 42%
		z := (taxable - 5401) / 10000
		return (181.19*z+2397)*z + 1025.38
	case taxable <= 266221:
		return 0.42*taxable - 9328.27
	default:
		return 0.45*taxable - 17314.90
	}
}

// MarginalRate returns the approximate marginal rate in percent for a given
// taxable income
func MarginalRate(taxable float64) float64 {
	switch {
	case taxable <= 0:
		return 0
	case taxable <= 5401:
		return 14 + taxable*10/5401
	case taxable <= 55156:
		return 24 + (taxable-5401)*18/49755
	case taxable <= 266221:
		return 42
	default:
		return 45
	}
}

// DeductionSavings estimates the tax saved by additional deductions at the
// user's marginal rate
func DeductionSavings(taxableIncome, additionalDeductions float64) float64 {
	if additionalDeductions <= 0 {
		return 0
	}
	return additionalDeductions * MarginalRate(taxableIncome) / 100
}

// HomeOfficeDeduction computes the capped home office lump sum for a number
// of home-working days
func HomeOfficeDeduction(days int) float64 {
	if days <= 0 {
		return 0
	}
	return math.Min(float64(days)*HomeOfficePerDay2024, HomeOfficeAnnualCap2024)
}

// CommuterDeduction computes the per-day distance allowance for a one-way
// commute distance in km
func CommuterDeduction(oneWayKm float64, workdays int) float64 {
	if oneWayKm <= 0 || workdays <= 0 {
		return 0
	}
	near := math.Min(oneWayKm, 20) * CommuterPerKmNear2024
	far := math.Max(0, oneWayKm-20) * CommuterPerKmFar2024
	return (near + far) * float64(workdays)
}
