package agents

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steuerpilot/internal/adapters/ai"
	"steuerpilot/internal/domain/agent"
	"steuerpilot/internal/domain/profile"
	"steuerpilot/pkg/errors"
)

type memProfileRepo struct {
	store map[string]*profile.Profile
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{store: make(map[string]*profile.Profile)}
}

func (r *memProfileRepo) Get(_ context.Context, userID string) (*profile.Profile, error) {
	p, ok := r.store[userID]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProfileRepo) Create(_ context.Context, p *profile.Profile) error {
	cp := *p
	r.store[p.UserID] = &cp
	return nil
}

func (r *memProfileRepo) Update(_ context.Context, p *profile.Profile) error {
	cp := *p
	r.store[p.UserID] = &cp
	return nil
}

func (r *memProfileRepo) Upsert(_ context.Context, p *profile.Profile) error {
	cp := *p
	r.store[p.UserID] = &cp
	return nil
}

func TestProfileAgentExtractsFromModelOutput(t *testing.T) {
	repo := newMemProfileRepo()
	llm := &fakeLLM{
		completeJSONFn: func(_ ai.ChatRequest) (json.RawMessage, error) {
			return json.RawMessage(`{"employment_status":"freelancer","annual_income":60000}`), nil
		},
	}
	a := NewProfileAgent(llm, repo, nil)

	resp, err := a.Handle(context.Background(), agent.Input{
		Message: "I'm a freelancer earning 60000 a year",
		UserID:  "u1",
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "60000")
	assert.Equal(t, true, resp.Metadata[agent.MetaProfileUpdated])

	saved, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "freelancer", saved.EmploymentStatus)
	assert.Equal(t, 60000.0, saved.AnnualIncome)
}

func TestProfileAgentRegexFallback(t *testing.T) {
	repo := newMemProfileRepo()
	a := NewProfileAgent(&fakeLLM{}, repo, nil) // model unavailable

	resp, err := a.Handle(context.Background(), agent.Input{
		Message: "My income is 60000 euro and I am married with 2 kids",
		UserID:  "u1",
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "€60000")

	saved, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 60000.0, saved.AnnualIncome, "figure stored exactly as given")
	assert.Equal(t, "married_joint", saved.FilingStatus)
	assert.Equal(t, 2, saved.Dependents)
}

func TestProfileAgentParsesThousandSeparators(t *testing.T) {
	repo := newMemProfileRepo()
	a := NewProfileAgent(&fakeLLM{}, repo, nil)

	_, err := a.Handle(context.Background(), agent.Input{
		Message: "Ich verdiene 60.000 Euro im Jahr",
		UserID:  "u1",
	})
	require.NoError(t, err)

	saved, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 60000.0, saved.AnnualIncome)
}

func TestProfileAgentDescribesStoredProfile(t *testing.T) {
	a := NewProfileAgent(&fakeLLM{}, newMemProfileRepo(), nil)

	resp, err := a.Handle(context.Background(), agent.Input{
		Message: "What do you know about me?",
		UserID:  "u1",
		Profile: &profile.Profile{
			UserID:           "u1",
			EmploymentStatus: "freelancer",
			AnnualIncome:     60000,
		},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "freelancer")
	assert.Contains(t, resp.Content, "€60000")
	assert.GreaterOrEqual(t, resp.Confidence, 0.9)
}

func TestProfileAgentEmptyProfileQuery(t *testing.T) {
	a := NewProfileAgent(&fakeLLM{}, newMemProfileRepo(), nil)

	resp, err := a.Handle(context.Background(), agent.Input{
		Message: "What do you know about me?",
		UserID:  "u1",
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "don't know anything")
	assert.Len(t, resp.Metadata[agent.MetaMissingFields], 3)
}

func TestProfileAgentNoFieldsFound(t *testing.T) {
	repo := newMemProfileRepo()
	a := NewProfileAgent(&fakeLLM{}, repo, nil)

	resp, err := a.Handle(context.Background(), agent.Input{
		Message: "The weather is nice today",
		UserID:  "u1",
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.4, resp.Confidence, 0.001)
	_, err = repo.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, errors.ErrNotFound, "nothing saved when nothing extracted")
}

func TestNormalizeIncomeRegexKeepsFullFigure(t *testing.T) {
	fields := regexExtractFields("my income is 60000")
	require.NotNil(t, fields.AnnualIncome)
	assert.Equal(t, 60000.0, *fields.AnnualIncome)
}
