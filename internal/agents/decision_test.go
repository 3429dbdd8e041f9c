package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"steuerpilot/internal/domain/expense"
)

func TestExtractExpenseData(t *testing.T) {
	data := ExtractExpenseData("I bought a laptop for €800 on 2024-05-01 for work")

	assert.Equal(t, 800.0, data.Amount)
	assert.Equal(t, "2024-05-01", data.Date)
	assert.Equal(t, expense.CategoryOfficeEquipment, data.Category)
	assert.Contains(t, data.Description, "laptop")
}

func TestExtractExpenseDataAmountVariants(t *testing.T) {
	tests := []struct {
		message string
		amount  float64
	}{
		{"paid 49,99€ for software", 49.99},
		{"spent EUR 120 on a course", 120},
		{"das Abo kostet 9.99 €", 9.99},
		{"no money mentioned at all", 0},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.amount, ExtractExpenseData(tt.message).Amount)
		})
	}
}

func TestExtractExpenseDataGermanDate(t *testing.T) {
	data := ExtractExpenseData("Monitor gekauft für €250 am 3.5.2024")
	assert.Equal(t, "2024-05-03", data.Date)
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2024-05-01", NormalizeDate("2024-05-01"))
	assert.Equal(t, "2024-05-01", NormalizeDate("01.05.2024"))
	assert.Equal(t, "", NormalizeDate("yesterday"))
	assert.Equal(t, "", NormalizeDate(""))
}

func TestDecisionNormalizeRejectsUnknownAction(t *testing.T) {
	d := Decision{Action: "launch_rocket", Confidence: 0.99}
	d.Normalize()

	assert.Equal(t, ActionGeneralGuidance, d.Action)
	assert.Equal(t, 0.4, d.Confidence)
}

func TestDecisionNormalizeDowngradesAddWithoutAmount(t *testing.T) {
	d := Decision{Action: ActionAddExpense, Confidence: 0.9}
	d.Normalize()
	assert.Equal(t, ActionSuggestExpense, d.Action)
}

func TestDecisionNormalizeFixesCategory(t *testing.T) {
	d := Decision{
		Action:      ActionSuggestExpense,
		Confidence:  0.8,
		ExpenseData: ExpenseData{Description: "laptop", Amount: 800, Category: "gadgets"},
	}
	d.Normalize()
	assert.Equal(t, expense.CategoryOfficeEquipment, d.ExpenseData.Category)
}

func TestHeuristicDecision(t *testing.T) {
	tests := []struct {
		message string
		action  string
	}{
		{"I bought a laptop for €800 on 2024-05-01 for work", ActionSuggestExpense},
		{"show my expenses", ActionReadExpenses},
		{"delete the expense for the monitor", ActionDeleteExpense},
		{"update the expense from last week", ActionUpdateExpense},
		{"are work clothes deductible?", ActionGeneralGuidance},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.action, HeuristicDecision(tt.message).Action)
		})
	}
}
