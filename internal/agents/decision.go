package agents

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"steuerpilot/internal/domain/agent"
	"steuerpilot/internal/domain/expense"
)

// Expense decision actions
const (
	ActionAddExpense      = "add_expense"
	ActionSuggestExpense  = "suggest_expense"
	ActionReadExpenses    = "read_expenses"
	ActionUpdateExpense   = "update_expense"
	ActionDeleteExpense   = "delete_expense"
	ActionGeneralGuidance = "general_guidance"
)

var validActions = map[string]bool{
	ActionAddExpense:      true,
	ActionSuggestExpense:  true,
	ActionReadExpenses:    true,
	ActionUpdateExpense:   true,
	ActionDeleteExpense:   true,
	ActionGeneralGuidance: true,
}

// ExpenseData carries the fields of one proposed expense inside a Decision
type ExpenseData struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
}

// Decision is the JSON contract the action agent negotiates with the model
type Decision struct {
	Action      string      `json:"action"`
	Confidence  float64     `json:"confidence"`
	Reasoning   string      `json:"reasoning"`
	ExpenseData ExpenseData `json:"expense_data"`
}

// Normalize enforces the contract: unknown actions degrade to guidance and an
// add without an amount degrades to a suggestion
func (d *Decision) Normalize() {
	d.Action = strings.ToLower(strings.TrimSpace(d.Action))
	if !validActions[d.Action] {
		d.Action = ActionGeneralGuidance
		d.Confidence = 0.4
	}
	d.Confidence = agent.ClampConfidence(d.Confidence)

	if d.Action == ActionAddExpense && d.ExpenseData.Amount <= 0 {
		d.Action = ActionSuggestExpense
	}
	if d.ExpenseData.Category != "" && !expense.ValidCategory(d.ExpenseData.Category) {
		d.ExpenseData.Category = expense.GuessCategory(d.ExpenseData.Description)
	}
	d.ExpenseData.Date = NormalizeDate(d.ExpenseData.Date)
}

var (
	amountRe      = regexp.MustCompile(`(?:€|(?i:eur(?:o)?))\s*(\d+(?:[.,]\d{1,2})?)|(\d+(?:[.,]\d{1,2})?)\s*(?:€|(?i:eur(?:o)?))`)
	isoDateRe     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	germanDateRe  = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`)
	readListRe    = regexp.MustCompile(`(?i)(?:show|list|see|view|zeig|what are)\b.{0,30}\bexpenses?|meine ausgaben`)
	deleteWordRe  = regexp.MustCompile(`(?i)\b(?:delete|remove|lösch)\b`)
	updateWordRe  = regexp.MustCompile(`(?i)\b(?:update|change|correct|edit|änder)\b`)
	purchaseWords = []string{"bought", "purchased", "paid", "spent", "gekauft", "bezahlt", "ausgegeben"}
)

// HeuristicDecision derives a Decision without the model. It is the fallback
// for the decision contract when the completion fails or is unparseable.
func HeuristicDecision(message string) Decision {
	lower := strings.ToLower(message)

	if readListRe.MatchString(message) {
		return Decision{Action: ActionReadExpenses, Confidence: 0.7, Reasoning: "asked to see expenses"}
	}
	if deleteWordRe.MatchString(message) && strings.Contains(lower, "expense") {
		return Decision{Action: ActionDeleteExpense, Confidence: 0.6, Reasoning: "asked to delete an expense"}
	}
	if updateWordRe.MatchString(message) && strings.Contains(lower, "expense") {
		return Decision{Action: ActionUpdateExpense, Confidence: 0.6, Reasoning: "asked to change an expense"}
	}

	data := ExtractExpenseData(message)
	if data.Amount > 0 {
		conf := 0.6
		if containsAny(lower, purchaseWords) {
			conf = 0.75
		}
		return Decision{
			Action:      ActionSuggestExpense,
			Confidence:  conf,
			Reasoning:   "message mentions a purchase amount",
			ExpenseData: data,
		}
	}

	return Decision{Action: ActionGeneralGuidance, Confidence: 0.4, Reasoning: "no concrete expense found"}
}

// ExtractExpenseData pulls amount, date, category and a description from free
// text using patterns only
func ExtractExpenseData(message string) ExpenseData {
	var data ExpenseData

	if m := amountRe.FindStringSubmatch(message); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		raw = strings.ReplaceAll(raw, ",", ".")
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			data.Amount = v
		}
	}

	if m := isoDateRe.FindString(message); m != "" {
		data.Date = m
	} else if m := germanDateRe.FindStringSubmatch(message); m != nil {
		data.Date = isoFromParts(m[3], m[2], m[1])
	}

	data.Description = describePurchase(message)
	data.Category = expense.GuessCategory(message)
	return data
}

// describePurchase trims the message down to a short expense description
func describePurchase(message string) string {
	desc := message
	desc = amountRe.ReplaceAllString(desc, "")
	desc = isoDateRe.ReplaceAllString(desc, "")
	desc = germanDateRe.ReplaceAllString(desc, "")

	lower := strings.ToLower(desc)
	for _, w := range purchaseWords {
		if i := strings.Index(lower, w); i >= 0 {
			desc = desc[i+len(w):]
			break
		}
	}
	desc = strings.Trim(desc, " .,!?")
	desc = strings.TrimPrefix(desc, "a ")
	desc = strings.TrimPrefix(desc, "an ")
	for _, cut := range []string{" for ", " on ", " am ", " für "} {
		if i := strings.Index(strings.ToLower(desc), cut); i > 0 {
			desc = desc[:i]
		}
	}
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return "expense"
	}
	if len(desc) > 80 {
		desc = strings.TrimSpace(truncateBytes(desc, 80))
	}
	return desc
}

// NormalizeDate converts dd.mm.yyyy to ISO and rejects unparseable values
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if isoDateRe.MatchString(s) {
		return isoDateRe.FindString(s)
	}
	if m := germanDateRe.FindStringSubmatch(s); m != nil {
		return isoFromParts(m[3], m[2], m[1])
	}
	return ""
}

func isoFromParts(year, month, day string) string {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}
