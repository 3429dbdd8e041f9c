package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"steuerpilot/internal/adapters/ai"
	"steuerpilot/internal/domain/agent"
	"steuerpilot/internal/domain/profile"
	"steuerpilot/internal/events"
	"steuerpilot/pkg/errors"
	"steuerpilot/pkg/logger"
)

// ProfileAgent is the only writer of user profiles. It extracts tax-relevant
// facts from messages and answers questions about what is on file.
type ProfileAgent struct {
	llm       Completer
	profiles  profile.Repository
	publisher *events.Publisher
	log       *logger.Logger
}

// NewProfileAgent creates the profile specialist
func NewProfileAgent(llm Completer, profiles profile.Repository, publisher *events.Publisher) *ProfileAgent {
	return &ProfileAgent{
		llm:       llm,
		profiles:  profiles,
		publisher: publisher,
		log:       logger.Get().With("agent", "profile"),
	}
}

var _ agent.Agent = (*ProfileAgent)(nil)

// Type implements agent.Agent
func (a *ProfileAgent) Type() agent.Type { return agent.TypeProfile }

// Handle answers personal-info queries from stored data and otherwise runs
// field extraction over the message
func (a *ProfileAgent) Handle(ctx context.Context, in agent.Input) (*agent.Response, error) {
	if isPersonalInfoQuery(in.Message) {
		return a.describeProfile(in), nil
	}
	return a.extractAndSave(ctx, in)
}

func isPersonalInfoQuery(message string) bool {
	return containsAny(strings.ToLower(message), personalInfoPhrases)
}

// describeProfile needs no model call: it renders what is already on file
func (a *ProfileAgent) describeProfile(in agent.Input) *agent.Response {
	p := in.Profile
	if p == nil || len(p.MissingFields()) == 3 {
		return &agent.Response{
			AgentType:  agent.TypeProfile,
			Content:    "I don't know anything about your tax situation yet. Tell me about your employment, filing status, or income and I'll remember it.",
			Confidence: 0.85,
			Reasoning:  "personal info query, empty profile",
			Metadata: map[string]interface{}{
				agent.MetaMissingFields: []string{"employment_status", "filing_status", "annual_income"},
			},
		}
	}

	var sb strings.Builder
	sb.WriteString("Here's what I know about your tax situation:\n")
	if p.EmploymentStatus != "" {
		sb.WriteString(fmt.Sprintf("- Employment: %s\n", strings.ReplaceAll(p.EmploymentStatus, "_", " ")))
	}
	if p.FilingStatus != "" {
		sb.WriteString(fmt.Sprintf("- Filing status: %s\n", strings.ReplaceAll(p.FilingStatus, "_", " ")))
	}
	if p.AnnualIncome > 0 {
		sb.WriteString(fmt.Sprintf("- Annual income: €%.0f\n", p.AnnualIncome))
	}
	if p.Dependents > 0 {
		sb.WriteString(fmt.Sprintf("- Dependents: %d\n", p.Dependents))
	}
	if len(p.TaxGoals) > 0 {
		sb.WriteString(fmt.Sprintf("- Tax goals: %s\n", strings.Join(p.TaxGoals, ", ")))
	}
	missing := p.MissingFields()
	if len(missing) > 0 {
		sb.WriteString(fmt.Sprintf("\nStill missing: %s. Tell me and I'll note it down.", strings.Join(missing, ", ")))
	}

	md := map[string]interface{}{}
	if len(missing) > 0 {
		md[agent.MetaMissingFields] = missing
	}
	return &agent.Response{
		AgentType:  agent.TypeProfile,
		Content:    sb.String(),
		Confidence: 0.9,
		Reasoning:  "personal info query answered from stored profile",
		Metadata:   md,
	}
}

const profileExtractionPrompt = `You extract tax profile facts from a user message for a German tax assistant. Return JSON:
{"employment_status": "employed|self_employed|freelancer|student|retired|unemployed|null",
 "filing_status": "single|married_joint|married_separate|null",
 "annual_income": number or null,
 "dependents": integer or null,
 "tax_goals": ["..."] or null}
Use null for anything the message does not state. Never guess.`

type extractedFields struct {
	EmploymentStatus *string  `json:"employment_status"`
	FilingStatus     *string  `json:"filing_status"`
	AnnualIncome     *float64 `json:"annual_income"`
	Dependents       *int     `json:"dependents"`
	TaxGoals         []string `json:"tax_goals"`
}

func (a *ProfileAgent) extractAndSave(ctx context.Context, in agent.Input) (*agent.Response, error) {
	fields := a.extractFields(ctx, in.Message)

	if in.Profile == nil {
		in.Profile = &profile.Profile{UserID: in.UserID}
	}
	updated := a.applyFields(in.Profile, fields)
	if len(updated) == 0 {
		return &agent.Response{
			AgentType:  agent.TypeProfile,
			Content:    "I didn't catch any new details about your tax situation. You can tell me things like your employment, filing status, or annual income.",
			Confidence: 0.4,
			Reasoning:  "no profile fields found in message",
		}, nil
	}

	p := in.Profile
	p.LastInteraction = time.Now().UTC()
	if err := a.profiles.Upsert(ctx, p); err != nil {
		a.log.Errorw("profile save failed", "user_id", in.UserID, "error", err)
		return nil, errors.Wrap(err, "save profile")
	}

	a.publisher.PublishProfileUpdated(ctx, events.ProfileUpdated{
		UserID:        in.UserID,
		UpdatedFields: updated,
		Timestamp:     time.Now().UTC(),
	})

	missing := p.MissingFields()
	md := map[string]interface{}{
		agent.MetaProfileUpdated: true,
	}
	if len(missing) > 0 {
		md[agent.MetaMissingFields] = missing
		md[agent.MetaRequiresFollowup] = true
	}

	return &agent.Response{
		AgentType:  agent.TypeProfile,
		Content:    renderUpdateSummary(p, updated, missing),
		Confidence: 0.85,
		Reasoning:  fmt.Sprintf("updated profile fields: %s", strings.Join(updated, ", ")),
		Metadata:   md,
	}, nil
}

// extractFields tries the model first and falls back to regex heuristics when
// the completion fails or is unparseable
func (a *ProfileAgent) extractFields(ctx context.Context, message string) extractedFields {
	raw, err := a.llm.CompleteJSON(ctx, ai.ChatRequest{
		SystemPrompt: profileExtractionPrompt,
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: message},
		},
		Temperature: 0.1,
		MaxTokens:   250,
	})
	if err == nil {
		var fields extractedFields
		if jsonErr := json.Unmarshal(raw, &fields); jsonErr == nil {
			return fields
		}
	}
	a.log.Warnw("field extraction via model failed, using heuristics", "error", err)
	return regexExtractFields(message)
}

var (
	// The grouped alternative must come first and require a separator, or
	// leftmost-first matching would cut "60000" down to "600"
	incomeRe     = regexp.MustCompile(`(?i)(?:income|earn|make|verdiene|einkommen)\D{0,20}?(?:€|eur(?:o)?)?\s*(\d{1,3}(?:[.,]\d{3})+|\d+)(?:\s*(?:€|eur(?:o)?))?`)
	dependentsRe = regexp.MustCompile(`(?i)(\d+)\s+(?:kid|kids|child|children|kind|kinder|dependent)`)
)

// regexExtractFields is the deterministic fallback for the extraction contract
func regexExtractFields(message string) extractedFields {
	var fields extractedFields
	lower := strings.ToLower(message)

	if emp := profile.NormalizeEmployment(lower); emp != "" {
		fields.EmploymentStatus = &emp
	}
	if fil := profile.NormalizeFiling(lower); fil != "" {
		fields.FilingStatus = &fil
	}

	if m := incomeRe.FindStringSubmatch(message); m != nil {
		cleaned := strings.NewReplacer(".", "", ",", "").Replace(m[1])
		if v, err := strconv.ParseFloat(cleaned, 64); err == nil && v > 0 {
			fields.AnnualIncome = &v
		}
	}
	if m := dependentsRe.FindStringSubmatch(message); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			fields.Dependents = &v
		}
	}
	return fields
}

// applyFields writes extracted values onto the in-memory profile and reports
// which field names actually changed
func (a *ProfileAgent) applyFields(p *profile.Profile, fields extractedFields) []string {
	var updated []string

	if fields.EmploymentStatus != nil {
		if v := profile.NormalizeEmployment(*fields.EmploymentStatus); v != "" && v != p.EmploymentStatus {
			p.EmploymentStatus = v
			updated = append(updated, "employment_status")
		}
	}
	if fields.FilingStatus != nil {
		if v := profile.NormalizeFiling(*fields.FilingStatus); v != "" && v != p.FilingStatus {
			p.FilingStatus = v
			updated = append(updated, "filing_status")
		}
	}
	if fields.AnnualIncome != nil && *fields.AnnualIncome > 0 && *fields.AnnualIncome != p.AnnualIncome {
		p.AnnualIncome = *fields.AnnualIncome
		updated = append(updated, "annual_income")
	}
	if fields.Dependents != nil && *fields.Dependents >= 0 && *fields.Dependents != p.Dependents {
		p.Dependents = *fields.Dependents
		updated = append(updated, "dependents")
	}
	for _, g := range fields.TaxGoals {
		g = strings.TrimSpace(g)
		if g != "" && !containsString(p.TaxGoals, g) {
			p.TaxGoals = append(p.TaxGoals, g)
			if !containsString(updated, "tax_goals") {
				updated = append(updated, "tax_goals")
			}
		}
	}
	return updated
}

func renderUpdateSummary(p *profile.Profile, updated, missing []string) string {
	var sb strings.Builder
	sb.WriteString("Got it, I've updated your tax profile:\n")
	for _, f := range updated {
		switch f {
		case "employment_status":
			sb.WriteString(fmt.Sprintf("- Employment: %s\n", strings.ReplaceAll(p.EmploymentStatus, "_", " ")))
		case "filing_status":
			sb.WriteString(fmt.Sprintf("- Filing status: %s\n", strings.ReplaceAll(p.FilingStatus, "_", " ")))
		case "annual_income":
			sb.WriteString(fmt.Sprintf("- Annual income: €%.0f\n", p.AnnualIncome))
		case "dependents":
			sb.WriteString(fmt.Sprintf("- Dependents: %d\n", p.Dependents))
		case "tax_goals":
			sb.WriteString(fmt.Sprintf("- Tax goals: %s\n", strings.Join(p.TaxGoals, ", ")))
		}
	}
	if len(missing) > 0 {
		sb.WriteString(fmt.Sprintf("\nTo personalize my advice further, could you also tell me your %s?", strings.Join(missing, " and ")))
	}
	return sb.String()
}
