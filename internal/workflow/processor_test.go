package workflow

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steuerpilot/internal/adapters/ai"
	"steuerpilot/internal/agents"
	"steuerpilot/internal/domain/agent"
	"steuerpilot/internal/domain/conversation"
	"steuerpilot/internal/domain/expense"
	"steuerpilot/internal/domain/profile"
	"steuerpilot/internal/domain/session"
	expensesvc "steuerpilot/internal/services/expense"
	"steuerpilot/internal/services/learning"
	"steuerpilot/internal/services/memory"
	"steuerpilot/pkg/errors"
)

// stubCompleter fails every call so routing and decisions fall back to the
// deterministic rule paths.
type stubCompleter struct{}

func (stubCompleter) Complete(_ context.Context, _ ai.ChatRequest) (string, error) {
	return "", errors.ErrNoProvider
}

func (stubCompleter) CompleteJSON(_ context.Context, _ ai.ChatRequest) (json.RawMessage, error) {
	return nil, errors.ErrNoProvider
}

type fakeConvRepo struct {
	mu       sync.Mutex
	bySess   map[string]*conversation.Conversation
	messages map[uuid.UUID][]conversation.Message
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{
		bySess:   make(map[string]*conversation.Conversation),
		messages: make(map[uuid.UUID][]conversation.Message),
	}
}

func (r *fakeConvRepo) GetBySession(_ context.Context, sessionID string) (*conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.bySess[sessionID]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeConvRepo) Create(_ context.Context, c *conversation.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uuid.New()
	cp := *c
	r.bySess[c.SessionID] = &cp
	return nil
}

func (r *fakeConvRepo) UpdateTitle(_ context.Context, id uuid.UUID, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.bySess {
		if c.ID == id {
			c.Title = title
		}
	}
	return nil
}

func (r *fakeConvRepo) AppendMessage(_ context.Context, conversationID uuid.UUID, role conversation.MessageRole, content string) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.messages[conversationID] = append(r.messages[conversationID], conversation.Message{
		ID: id, ConversationID: conversationID, Role: role, Content: content, CreatedAt: time.Now(),
	})
	return id, nil
}

func (r *fakeConvRepo) RecentMessages(_ context.Context, conversationID uuid.UUID, limit int) ([]conversation.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[conversationID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]conversation.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (r *fakeConvRepo) CountMessages(_ context.Context, conversationID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages[conversationID]), nil
}

type fakeContextRepo struct {
	mu    sync.Mutex
	store map[string][]byte
}

func newFakeContextRepo() *fakeContextRepo {
	return &fakeContextRepo{store: make(map[string][]byte)}
}

// Get round-trips through JSON the way the Redis implementation does, so
// tests catch anything that does not survive serialization.
func (r *fakeContextRepo) Get(_ context.Context, sessionID string) (*session.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.store[sessionID]
	if !ok {
		return nil, errors.ErrNotFound
	}
	var sc session.Context
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (r *fakeContextRepo) Save(_ context.Context, sessionID string, sc *session.Context) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[sessionID] = data
	return nil
}

func (r *fakeContextRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.store, sessionID)
	return nil
}

type fakeMessageCache struct {
	mu    sync.Mutex
	store map[string][]conversation.Message
}

func newFakeMessageCache() *fakeMessageCache {
	return &fakeMessageCache{store: make(map[string][]conversation.Message)}
}

func (c *fakeMessageCache) Push(_ context.Context, sessionID string, msg conversation.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[sessionID] = append(c.store[sessionID], msg)
	return nil
}

func (c *fakeMessageCache) Recent(_ context.Context, sessionID string, limit int) ([]conversation.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.store[sessionID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]conversation.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

type fakeProfileRepo struct {
	mu    sync.Mutex
	store map[string]*profile.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{store: make(map[string]*profile.Profile)}
}

func (r *fakeProfileRepo) Get(_ context.Context, userID string) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.store[userID]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProfileRepo) Create(_ context.Context, p *profile.Profile) error {
	return r.Upsert(context.Background(), p)
}

func (r *fakeProfileRepo) Update(_ context.Context, p *profile.Profile) error {
	return r.Upsert(context.Background(), p)
}

func (r *fakeProfileRepo) Upsert(_ context.Context, p *profile.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.store[p.UserID] = &cp
	return nil
}

type fakeExpenseRepo struct {
	mu      sync.Mutex
	created []expense.Expense
}

func (r *fakeExpenseRepo) Create(_ context.Context, e *expense.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = uuid.New()
	r.created = append(r.created, *e)
	return nil
}

func (r *fakeExpenseRepo) GetByID(_ context.Context, _ uuid.UUID) (*expense.Expense, error) {
	return nil, errors.ErrNotFound
}

func (r *fakeExpenseRepo) ListByUser(_ context.Context, _ string, _ int) ([]expense.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]expense.Expense, len(r.created))
	copy(out, r.created)
	return out, nil
}

func (r *fakeExpenseRepo) TotalByUser(_ context.Context, _ string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, e := range r.created {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (r *fakeExpenseRepo) Update(_ context.Context, _ *expense.Expense) error { return nil }

func (r *fakeExpenseRepo) Delete(_ context.Context, _ uuid.UUID, _ string) error { return nil }

func (r *fakeExpenseRepo) snapshot() []expense.Expense {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]expense.Expense, len(r.created))
	copy(out, r.created)
	return out
}

type fixture struct {
	processor *Processor
	contexts  *fakeContextRepo
	expenses  *fakeExpenseRepo
	profiles  *fakeProfileRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	llm := stubCompleter{}
	convRepo := newFakeConvRepo()
	ctxRepo := newFakeContextRepo()
	msgCache := newFakeMessageCache()
	profRepo := newFakeProfileRepo()
	expRepo := &fakeExpenseRepo{}

	expSvc := expensesvc.NewService(expRepo, nil)
	memorySvc := memory.NewService(ctxRepo, msgCache, convRepo)
	learningSvc := learning.NewService(nil, profRepo, convRepo)

	agentList := []agent.Agent{
		agents.NewProfileAgent(llm, profRepo, nil),
		agents.NewActionAgent(llm, expSvc),
		agents.NewOrchestratorAgent(llm),
	}

	processor := NewProcessor(
		agents.NewRouter(llm),
		agents.NewExecutor(agentList, time.Second),
		agents.NewPresenter(llm),
		memorySvc,
		learningSvc,
		profRepo,
		nil,
		nil,
	)
	return &fixture{processor: processor, contexts: ctxRepo, expenses: expRepo, profiles: profRepo}
}

func TestGreetingGoesToOrchestratorOnly(t *testing.T) {
	f := newFixture(t)

	res, err := f.processor.ProcessMessage(context.Background(), "Hello", "s1", "u1")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.Confidence, 0.9)
	assert.NotEmpty(t, res.Content)
	assert.NotEmpty(t, res.SuggestedActions, "greeting offers starting points")
	assert.Empty(t, f.expenses.snapshot())

	sc, err := f.contexts.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, string(agent.TypeOrchestrator), sc.LastAgent)
	assert.Equal(t, 2, sc.MessageCount, "one user and one assistant message")
}

func TestMessageCountTracksPersistedMessages(t *testing.T) {
	f := newFixture(t)

	_, err := f.processor.ProcessMessage(context.Background(), "Hello", "s1", "u1")
	require.NoError(t, err)
	_, err = f.processor.ProcessMessage(context.Background(), "Hi again", "s1", "u1")
	require.NoError(t, err)

	sc, err := f.contexts.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 4, sc.MessageCount)

	// An expired cache rehydrates the same figure from durable storage, so
	// the every-5th-message learning trigger keeps its 10, 20, ... cadence
	require.NoError(t, f.contexts.Delete(context.Background(), "s1"))
	_, err = f.processor.ProcessMessage(context.Background(), "Hello once more", "s1", "u1")
	require.NoError(t, err)

	sc, err = f.contexts.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 6, sc.MessageCount)
}

func TestExpenseSuggestThenConfirmAcrossTurns(t *testing.T) {
	f := newFixture(t)

	// Turn 1: purchase mention yields a suggestion, nothing persisted
	res, err := f.processor.ProcessMessage(context.Background(),
		"I bought a laptop for €800 on 2024-05-01 for work", "s1", "u1")
	require.NoError(t, err)
	assert.Contains(t, res.Content, "Should I add this expense?")
	assert.Empty(t, f.expenses.snapshot())

	sc, err := f.contexts.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, sc.PendingExpense, "pending slot survives the turn boundary")
	assert.Equal(t, "2024-05-01", sc.PendingExpense.Date)

	// Turn 2: bare confirmation resolves against the stored slot
	res, err = f.processor.ProcessMessage(context.Background(), "yes, add it", "s1", "u1")
	require.NoError(t, err)
	assert.Contains(t, res.Content, "added")

	created := f.expenses.snapshot()
	require.Len(t, created, 1)
	assert.True(t, created[0].Amount.Equal(decimal.NewFromInt(800)), "got %s", created[0].Amount)
	assert.Equal(t, "2024-05-01", created[0].Date)
	assert.Equal(t, expense.CategoryOfficeEquipment, created[0].Category)

	sc, err = f.contexts.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, sc.PendingExpense, "slot cleared after confirmation")
}

func TestPendingExpenseSurvivesUnrelatedTurn(t *testing.T) {
	f := newFixture(t)

	_, err := f.processor.ProcessMessage(context.Background(),
		"I bought a monitor for €250", "s1", "u1")
	require.NoError(t, err)

	_, err = f.processor.ProcessMessage(context.Background(), "Hello again", "s1", "u1")
	require.NoError(t, err)

	sc, err := f.contexts.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, sc.PendingExpense, "unrelated turns leave the slot alone")
	assert.Empty(t, f.expenses.snapshot())
}

func TestProfileUpdatePersistsIncome(t *testing.T) {
	f := newFixture(t)

	res, err := f.processor.ProcessMessage(context.Background(),
		"I'm a freelancer and my income is 60000 euro per year", "s1", "u1")
	require.NoError(t, err)
	assert.Contains(t, res.Content, "60000")

	p, err := f.profiles.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "freelancer", p.EmploymentStatus)
	assert.Equal(t, 60000.0, p.AnnualIncome, "income figure preserved exactly")
}

func TestIncomeStatementDoesNotOpenPendingExpense(t *testing.T) {
	f := newFixture(t)

	res, err := f.processor.ProcessMessage(context.Background(),
		"Update my income to 60000 euro please", "s1", "u1")
	require.NoError(t, err)
	assert.NotContains(t, res.Content, "Should I add this expense?")

	sc, err := f.contexts.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, sc.PendingExpense, "income figures must not be staged as expenses")
	assert.Empty(t, f.expenses.snapshot())

	// A stray "yes" afterwards has nothing to act on
	_, err = f.processor.ProcessMessage(context.Background(), "yes", "s1", "u1")
	require.NoError(t, err)
	assert.Empty(t, f.expenses.snapshot())

	p, err := f.profiles.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 60000.0, p.AnnualIncome)
}

func TestTurnPersistsBothMessages(t *testing.T) {
	f := newFixture(t)

	res, err := f.processor.ProcessMessage(context.Background(), "Hello", "s1", "u1")
	require.NoError(t, err)
	require.NotEmpty(t, res.ConversationID)

	res2, err := f.processor.ProcessMessage(context.Background(), "Hi again", "s1", "u1")
	require.NoError(t, err)
	assert.Equal(t, res.ConversationID, res2.ConversationID, "same session, same conversation")
}
