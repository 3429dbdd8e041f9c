package profile

import (
	"fmt"
	"strings"
	"time"
)

// Profile is what the assistant knows about a user's tax situation.
// Only the profile agent writes it; other agents read it for personalization.
type Profile struct {
	UserID            string    `db:"user_id"`
	EmploymentStatus  string    `db:"employment_status"` // employed, self_employed, freelancer, student, retired, unemployed
	FilingStatus      string    `db:"filing_status"`     // single, married_joint, married_separate
	AnnualIncome      float64   `db:"annual_income"`
	Dependents        int       `db:"dependents"`
	TaxGoals          []string  `db:"-"`
	RiskTolerance     string    `db:"risk_tolerance"`
	Notes             string    `db:"notes"` // learning summaries accumulate here
	ConversationCount int       `db:"conversation_count"`
	LastInteraction   time.Time `db:"last_interaction"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

var validEmployment = map[string]bool{
	"employed": true, "self_employed": true, "freelancer": true,
	"student": true, "retired": true, "unemployed": true,
}

var validFiling = map[string]bool{
	"single": true, "married_joint": true, "married_separate": true,
}

// NormalizeEmployment maps free-form model output onto a valid status,
// returning "" when nothing matches
func NormalizeEmployment(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", "_")))
	s = strings.ReplaceAll(s, " ", "_")
	if validEmployment[s] {
		return s
	}
	switch {
	case strings.Contains(s, "freelanc"):
		return "freelancer"
	case strings.Contains(s, "self"):
		return "self_employed"
	case strings.Contains(s, "employ") && !strings.Contains(s, "un"):
		return "employed"
	case strings.Contains(s, "student"):
		return "student"
	case strings.Contains(s, "retir"):
		return "retired"
	}
	return ""
}

// NormalizeFiling maps free-form model output onto a valid filing status
func NormalizeFiling(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", "_")))
	s = strings.ReplaceAll(s, " ", "_")
	if validFiling[s] {
		return s
	}
	switch {
	case strings.Contains(s, "joint"):
		return "married_joint"
	case strings.Contains(s, "separate"):
		return "married_separate"
	case strings.Contains(s, "married"):
		return "married_joint"
	case strings.Contains(s, "single"):
		return "single"
	}
	return ""
}

// MissingFields lists profile fields still unknown, in a stable order
func (p *Profile) MissingFields() []string {
	var missing []string
	if p.EmploymentStatus == "" {
		missing = append(missing, "employment_status")
	}
	if p.FilingStatus == "" {
		missing = append(missing, "filing_status")
	}
	if p.AnnualIncome <= 0 {
		missing = append(missing, "annual_income")
	}
	return missing
}

// Summary renders a compact one-line description for routing prompts
func (p *Profile) Summary() string {
	if p == nil {
		return "no profile on file"
	}
	parts := make([]string, 0, 4)
	if p.EmploymentStatus != "" {
		parts = append(parts, "employment: "+p.EmploymentStatus)
	}
	if p.FilingStatus != "" {
		parts = append(parts, "filing: "+p.FilingStatus)
	}
	if p.AnnualIncome > 0 {
		parts = append(parts, fmt.Sprintf("annual income: %.0f EUR", p.AnnualIncome))
	}
	if p.Dependents > 0 {
		parts = append(parts, fmt.Sprintf("dependents: %d", p.Dependents))
	}
	if len(parts) == 0 {
		return "profile exists but no fields set"
	}
	return strings.Join(parts, ", ")
}
