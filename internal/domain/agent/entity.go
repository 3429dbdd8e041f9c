package agent

// Type identifies a specialist agent
type Type string

const (
	TypeProfile      Type = "profile"
	TypeAction       Type = "action"
	TypeTaxKnowledge Type = "tax_knowledge"
	TypeOrchestrator Type = "orchestrator"

	// TypeMulti tags a synthesized response built from several specialists.
	// Callers use it to distinguish merged answers from single-agent ones.
	TypeMulti Type = "multi"
)

// ExecutionPriority is the fixed run order for planned agents. Profile runs
// first so later agents see fresh profile data in the same turn.
var ExecutionPriority = []Type{TypeProfile, TypeAction, TypeTaxKnowledge, TypeOrchestrator}

// Known reports whether t names a routable specialist
func Known(t Type) bool {
	switch t {
	case TypeProfile, TypeAction, TypeTaxKnowledge, TypeOrchestrator:
		return true
	}
	return false
}

// DisplayName returns a human label for headings in the synthesis fallback
func (t Type) DisplayName() string {
	switch t {
	case TypeProfile:
		return "Profile"
	case TypeAction:
		return "Expenses"
	case TypeTaxKnowledge:
		return "Tax Knowledge"
	case TypeOrchestrator:
		return "Assistant"
	case TypeMulti:
		return "Assistant"
	}
	return string(t)
}

// Pick is one router selection for the current turn. Ephemeral, never persisted.
type Pick struct {
	Agent      Type     `json:"agent"`
	Confidence float64  `json:"confidence"`
	Reasons    string   `json:"reasons"`
	Triggers   []string `json:"triggers,omitempty"`
}

// SuggestedAction is a follow-up the assistant proposes to the user
type SuggestedAction struct {
	Action      string `json:"action"`
	Description string `json:"description"`
}

// Response is a single agent's answer for one turn. The merged final response
// is shaped the same way, tagged TypeMulti.
type Response struct {
	AgentType        Type                   `json:"agent_type"`
	Content          string                 `json:"content"`
	Confidence       float64                `json:"confidence"`
	Reasoning        string                 `json:"reasoning,omitempty"`
	SuggestedActions []SuggestedAction      `json:"suggested_actions,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// ClampConfidence bounds c to [0,1]
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Metadata keys shared across agents and the synthesizer
const (
	MetaProfileUpdated   = "profile_updated"
	MetaRequiresFollowup = "requires_followup"
	MetaMissingFields    = "missing_fields"
	MetaPendingExpense   = "pending_expense"
	MetaAwaitingConfirm  = "awaiting_confirmation"
	MetaPerAgent         = "per_agent"
	MetaMerged           = "merged"
	MetaAgentType        = "agent_type"
)
