package taxdata

import "steuerpilot/internal/domain/knowledge"

// Topic names used across routing and retrieval
const (
	TopicDeductions = "deductions"
	TopicIncomeTax  = "income_tax"
	TopicVAT        = "vat"
	TopicHomeOffice = "home_office"
	TopicInvestment = "investments"
	TopicChildren   = "children"
	TopicPension    = "pension"
)

// Entries returns the curated 2024 German tax knowledge base used to seed
// the retrieval tables
func Entries() []knowledge.Entry {
	return []knowledge.Entry{
		{
			Topic:   TopicDeductions,
			Title:   "Grundfreibetrag 2024 (Basic Allowance)",
			Body:    "Tax-free basic allowance (Grundfreibetrag): €11,604 for single filers, €23,208 for married couples filing jointly. Income below this threshold is not taxed.",
			TaxYear: 2024,
			Keywords: []string{
				"grundfreibetrag", "allowance", "tax-free", "basic", "threshold",
			},
		},
		{
			Topic:   TopicDeductions,
			Title:   "Werbungskosten-Pauschbetrag (Employee Expenses Lump Sum)",
			Body:    "Employee lump-sum deduction for work-related expenses: €1,230 without receipts. Higher actual costs (tools, office supplies, professional dues, training) require documentation.",
			TaxYear: 2024,
			Keywords: []string{
				"werbungskosten", "deduction", "expenses", "lump", "employee", "receipts", "work",
			},
		},
		{
			Topic:   TopicHomeOffice,
			Title:   "Home-Office-Pauschale (Home Office Lump Sum)",
			Body:    "Home office lump sum: €6 per day, capped at €1,260 per year (210 days), if work is done primarily from home. Track the days worked from home.",
			TaxYear: 2024,
			Keywords: []string{
				"home", "office", "pauschale", "remote", "homeoffice", "deduction",
			},
		},
		{
			Topic:   TopicDeductions,
			Title:   "Pendlerpauschale (Commuter Allowance)",
			Body:    "Distance allowance for commuting: €0.30 per km (one way) up to 20 km, €0.38 per km from the 21st kilometer onward, per workday.",
			TaxYear: 2024,
			Keywords: []string{
				"pendlerpauschale", "commute", "commuting", "distance", "travel", "kilometer",
			},
		},
		{
			Topic:   TopicInvestment,
			Title:   "Sparer-Pauschbetrag (Savings Allowance)",
			Body:    "Tax-free allowance for investment income (interest, dividends, capital gains): €1,000 single, €2,000 married filing jointly.",
			TaxYear: 2024,
			Keywords: []string{
				"sparer", "savings", "investment", "dividends", "interest", "capital", "gains",
			},
		},
		{
			Topic:   TopicChildren,
			Title:   "Kinderfreibetrag (Child Allowance)",
			Body:    "Tax-free allowance per qualifying child, assessed against Kindergeld child benefits. Child care costs may be separately deductible within limits.",
			TaxYear: 2024,
			Keywords: []string{
				"kinderfreibetrag", "child", "children", "kindergeld", "dependents", "family",
			},
		},
		{
			Topic:   TopicDeductions,
			Title:   "Sonderausgaben (Special Expenses)",
			Body:    "Special expenses include health insurance, pension contributions, and charitable donations; deductible within legal annual limits with receipts.",
			TaxYear: 2024,
			Keywords: []string{
				"sonderausgaben", "special", "insurance", "donations", "pension", "contributions",
			},
		},
		{
			Topic:   TopicPension,
			Title:   "Riester-Rente (Riester Pension)",
			Body:    "State-subsidized private pension. Contributions are deductible as special expenses up to the annual cap; allowances for children increase the subsidy.",
			TaxYear: 2024,
			Keywords: []string{
				"riester", "pension", "retirement", "subsidy", "altersvorsorge",
			},
		},
		{
			Topic:   TopicIncomeTax,
			Title:   "Progressive Income Tax Rates 2024",
			Body:    "German income tax is progressive: 0% below the basic allowance, entering at 14% and rising through the progression zone to 42%, with a 45% top rate on very high incomes.",
			TaxYear: 2024,
			Keywords: []string{
				"progressive", "rates", "income", "tax", "bracket", "rate", "percent",
			},
		},
		{
			Topic:   TopicVAT,
			Title:   "Umsatzsteuer (VAT) Basics",
			Body:    "Standard VAT rate is 19%, reduced rate 7% for certain goods. Small businesses under the Kleinunternehmerregelung thresholds may be exempt from charging VAT.",
			TaxYear: 2024,
			Keywords: []string{
				"vat", "umsatzsteuer", "mehrwertsteuer", "kleinunternehmer", "sales",
			},
		},
		{
			Topic:   TopicDeductions,
			Title:   "Work Equipment (Arbeitsmittel)",
			Body:    "Work equipment such as laptops, monitors, and tools is deductible. Items up to €800 net can be written off immediately; more expensive items are depreciated over their useful life.",
			TaxYear: 2024,
			Keywords: []string{
				"arbeitsmittel", "equipment", "laptop", "computer", "depreciation", "write-off",
			},
		},
		{
			Topic:   TopicIncomeTax,
			Title:   "Freelancer Advance Payments (Vorauszahlungen)",
			Body:    "Freelancers and the self-employed make quarterly advance income tax payments set by the tax office based on the last assessment; they are credited against the annual liability.",
			TaxYear: 2024,
			Keywords: []string{
				"freelancer", "self-employed", "advance", "quarterly", "vorauszahlung",
			},
		},
	}
}
