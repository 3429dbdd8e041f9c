package taxdata

import (
	"math"
	"testing"
)

func TestEstimateIncomeTax_BelowAllowance(t *testing.T) {
	est := EstimateIncomeTax(10000, false)

	if est.TaxableIncome != 0 {
		t.Errorf("taxable income = %.2f, want 0", est.TaxableIncome)
	}
	if est.TaxLiability != 0 {
		t.Errorf("tax liability = %.2f, want 0", est.TaxLiability)
	}
}

func TestEstimateIncomeTax_Progressive(t *testing.T) {
	low := EstimateIncomeTax(30000, false)
	high := EstimateIncomeTax(60000, false)

	if low.TaxLiability <= 0 {
		t.Fatalf("expected positive tax at 30k, got %.2f", low.TaxLiability)
	}
	if high.TaxLiability <= low.TaxLiability {
		t.Errorf("tax not increasing: 30k=%.2f 60k=%.2f", low.TaxLiability, high.TaxLiability)
	}

	// Effective rate must rise with income and stay below the marginal rate
	if high.EffectiveRate <= low.EffectiveRate {
		t.Errorf("effective rate not progressive: %.2f vs %.2f", low.EffectiveRate, high.EffectiveRate)
	}
	if high.EffectiveRate >= high.MarginalRate {
		t.Errorf("effective %.2f should be below marginal %.2f", high.EffectiveRate, high.MarginalRate)
	}
}

func TestEstimateIncomeTax_MarriedDoublesAllowance(t *testing.T) {
	single := EstimateIncomeTax(50000, false)
	married := EstimateIncomeTax(50000, true)

	if married.TaxFreeAllowance != 2*single.TaxFreeAllowance {
		t.Errorf("married allowance = %.2f, want %.2f", married.TaxFreeAllowance, 2*single.TaxFreeAllowance)
	}
	if married.TaxLiability >= single.TaxLiability {
		t.Errorf("married liability %.2f should be below single %.2f", married.TaxLiability, single.TaxLiability)
	}
}

func TestMarginalRate_TopRates(t *testing.T) {
	if got := MarginalRate(100000); got != 42 {
		t.Errorf("marginal at 100k = %.2f, want 42", got)
	}
	if got := MarginalRate(300000); got != 45 {
		t.Errorf("marginal at 300k = %.2f, want 45", got)
	}
}

func TestHomeOfficeDeduction_Cap(t *testing.T) {
	if got := HomeOfficeDeduction(100); got != 600 {
		t.Errorf("100 days = %.2f, want 600", got)
	}
	if got := HomeOfficeDeduction(250); got != HomeOfficeAnnualCap2024 {
		t.Errorf("250 days = %.2f, want cap %.2f", got, HomeOfficeAnnualCap2024)
	}
}

func TestCommuterDeduction_SplitRate(t *testing.T) {
	// 25 km one way: 20*0.30 + 5*0.38 per day
	perDay := 20*CommuterPerKmNear2024 + 5*CommuterPerKmFar2024
	got := CommuterDeduction(25, 10)
	if math.Abs(got-perDay*10) > 0.001 {
		t.Errorf("commuter deduction = %.2f, want %.2f", got, perDay*10)
	}
}

func TestDeductionSavings(t *testing.T) {
	if got := DeductionSavings(50000, 0); got != 0 {
		t.Errorf("zero deductions should save 0, got %.2f", got)
	}
	saved := DeductionSavings(50000, 1000)
	if saved <= 0 || saved > 450 {
		t.Errorf("savings out of plausible range: %.2f", saved)
	}
}
