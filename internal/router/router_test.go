package router

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerpal/ledgerpal/internal/common"
	"github.com/ledgerpal/ledgerpal/internal/model"
	"github.com/ledgerpal/ledgerpal/internal/rewards"
)

type fakeClassifier struct {
	intent model.Intent
}

func (f *fakeClassifier) Classify(_ context.Context, _ model.InboundMessage) model.Intent {
	return f.intent
}

type fakeExtractor struct {
	txn     *model.Transaction
	sp      *model.SearchAndPatch
	name    string
	err     error
	panicOn bool
}

func (f *fakeExtractor) NewTransaction(_ context.Context, _ model.InboundMessage) (*model.Transaction, error) {
	if f.panicOn {
		panic("extractor exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	txn := *f.txn
	return &txn, nil
}

func (f *fakeExtractor) SearchAndPatch(_ context.Context, _ model.InboundMessage) (*model.SearchAndPatch, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sp, nil
}

func (f *fakeExtractor) UserName(_ context.Context, _ model.InboundMessage) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.name, nil
}

type fakeResolver struct {
	before *model.Transaction
	after  *model.Transaction
	err    error
}

func (f *fakeResolver) Update(_ context.Context, _ string, _ *model.SearchAndPatch) (*model.Transaction, *model.Transaction, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.before, f.after, nil
}

func (f *fakeResolver) Delete(_ context.Context, _ string, _ model.SearchCriteria) (*model.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.after, nil
}

type summaryDelta struct {
	year, month int
	typ         model.TransactionType
	delta       float64
}

type fakeRouterStore struct {
	users   map[string]*model.User
	created []model.Transaction
	deltas  []summaryDelta
	summary model.YearlySummary

	createUserErr error
	newUsers      []model.User
	renames       map[string]string
}

func (f *fakeRouterStore) GetUserByNumber(_ context.Context, number string) (*model.User, error) {
	if u, ok := f.users[number]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeRouterStore) CreateUser(_ context.Context, user *model.User) error {
	if f.createUserErr != nil {
		return f.createUserErr
	}
	f.newUsers = append(f.newUsers, *user)
	return nil
}

func (f *fakeRouterStore) UpdateUserName(_ context.Context, userID, name string) error {
	if f.renames == nil {
		f.renames = make(map[string]string)
	}
	f.renames[userID] = name
	return nil
}

func (f *fakeRouterStore) CreateTransaction(_ context.Context, txn *model.Transaction) error {
	f.created = append(f.created, *txn)
	return nil
}

func (f *fakeRouterStore) ApplySummaryDelta(_ context.Context, _ string, year, month int, typ model.TransactionType, delta float64) error {
	f.deltas = append(f.deltas, summaryDelta{year: year, month: month, typ: typ, delta: delta})
	return nil
}

func (f *fakeRouterStore) GetYearlySummary(_ context.Context, _ string, _ int) (model.YearlySummary, error) {
	if f.summary == nil {
		return model.YearlySummary{}, nil
	}
	return f.summary, nil
}

type fakeAnswerer struct {
	answer string
	err    error
}

func (f *fakeAnswerer) Text(_ context.Context, _ string) (string, error) {
	return f.answer, f.err
}

func registeredUser() *model.User {
	return &model.User{UserID: "u1", Name: "Jordan", Number: "+15550001111", FamilyID: "fam-1"}
}

func storeWithUser() *fakeRouterStore {
	return &fakeRouterStore{users: map[string]*model.User{"+15550001111": registeredUser()}}
}

func inbound(body string) model.InboundMessage {
	return model.InboundMessage{Sender: "+15550001111", Body: body}
}

func newTestRouter(c Classifier, e Extractor, res TransactionResolver, s Store, a Answerer) *Router {
	if a == nil {
		a = &fakeAnswerer{answer: "answer"}
	}
	return New(c, e, res, s, a, nil, slog.Default())
}

func TestHandleCreate(t *testing.T) {
	store := storeWithUser()
	r := newTestRouter(
		&fakeClassifier{intent: model.KnownIntent(model.IntentCreateTransaction)},
		&fakeExtractor{txn: &model.Transaction{
			Type: model.TypeExpense, Category: "shopping", Amount: 45,
			Year: 2025, Month: 3, Day: 15, Description: "groceries",
		}},
		&fakeResolver{},
		store,
		nil,
	)

	reply := r.Handle(context.Background(), inbound("spent $45 on groceries"))

	assert.Contains(t, reply, "$45.00")
	assert.Contains(t, reply, "shopping")
	require.Len(t, store.created, 1)

	created := store.created[0]
	assert.Equal(t, "fam-1", created.FamilyID)
	assert.Equal(t, "u1", created.UserID)
	assert.NotEmpty(t, created.ID)

	require.Len(t, store.deltas, 1)
	assert.InDelta(t, 45, store.deltas[0].delta, 0.001)
	assert.Equal(t, model.TypeExpense, store.deltas[0].typ)
}

func TestHandleCreateExtractionFailure(t *testing.T) {
	store := storeWithUser()
	r := newTestRouter(
		&fakeClassifier{intent: model.KnownIntent(model.IntentCreateTransaction)},
		&fakeExtractor{err: common.ErrExtractionParse},
		&fakeResolver{},
		store,
		nil,
	)

	reply := r.Handle(context.Background(), inbound("gibberish"))
	assert.Equal(t, replyNotUnderstood, reply)
	assert.Empty(t, store.created)
}

func TestHandleCreateAttachesCoupon(t *testing.T) {
	store := storeWithUser()
	r := New(
		&fakeClassifier{intent: model.KnownIntent(model.IntentCreateTransaction)},
		&fakeExtractor{txn: &model.Transaction{
			Type: model.TypeExpense, Category: "dining", Amount: 30,
			Year: 2025, Month: 3, Day: 15,
		}},
		&fakeResolver{},
		store,
		&fakeAnswerer{},
		rewards.NewGenerator(rand.NewSource(1)),
		slog.Default(),
	)

	reply := r.Handle(context.Background(), inbound("dinner $30"))
	assert.Contains(t, reply, "reward")
}

func TestHandleUpdate(t *testing.T) {
	store := storeWithUser()
	before := &model.Transaction{ID: "t1", FamilyID: "fam-1", Type: model.TypeExpense, Amount: 20, Year: 2025, Month: 3, Day: 1}
	after := &model.Transaction{ID: "t1", FamilyID: "fam-1", Type: model.TypeExpense, Amount: 25, Year: 2025, Month: 3, Day: 1}

	r := newTestRouter(
		&fakeClassifier{intent: model.KnownIntent(model.IntentUpdateTransaction)},
		&fakeExtractor{sp: &model.SearchAndPatch{}},
		&fakeResolver{before: before, after: after},
		store,
		nil,
	)

	reply := r.Handle(context.Background(), inbound("change that to $25"))
	assert.Contains(t, reply, "$25.00")

	require.Len(t, store.deltas, 2)
	assert.InDelta(t, -20, store.deltas[0].delta, 0.001)
	assert.InDelta(t, 25, store.deltas[1].delta, 0.001)
}

func TestHandleUpdateNotFound(t *testing.T) {
	store := storeWithUser()
	r := newTestRouter(
		&fakeClassifier{intent: model.KnownIntent(model.IntentUpdateTransaction)},
		&fakeExtractor{sp: &model.SearchAndPatch{}},
		&fakeResolver{err: common.ErrResolutionNotFound},
		store,
		nil,
	)

	reply := r.Handle(context.Background(), inbound("change the 999 one"))
	assert.Equal(t, replyNotFound, reply)
	assert.Empty(t, store.deltas)
}

func TestHandleDelete(t *testing.T) {
	store := storeWithUser()
	deleted := &model.Transaction{ID: "t1", FamilyID: "fam-1", Type: model.TypeIncome, Amount: 100, Year: 2025, Month: 2, Day: 10}

	r := newTestRouter(
		&fakeClassifier{intent: model.KnownIntent(model.IntentDeleteTransaction)},
		&fakeExtractor{sp: &model.SearchAndPatch{}},
		&fakeResolver{after: deleted},
		store,
		nil,
	)

	reply := r.Handle(context.Background(), inbound("delete the $100 income"))
	assert.Contains(t, reply, "Deleted")

	require.Len(t, store.deltas, 1)
	assert.InDelta(t, -100, store.deltas[0].delta, 0.001)
	assert.Equal(t, model.TypeIncome, store.deltas[0].typ)
}

func TestHandleUnknownUser(t *testing.T) {
	t.Run("non-registration intent asks to register", func(t *testing.T) {
		store := &fakeRouterStore{users: map[string]*model.User{}}
		r := newTestRouter(
			&fakeClassifier{intent: model.KnownIntent(model.IntentCreateTransaction)},
			&fakeExtractor{},
			&fakeResolver{},
			store,
			nil,
		)

		reply := r.Handle(context.Background(), inbound("spent $45"))
		assert.Equal(t, replyRegister, reply)
		assert.Empty(t, store.created)
	})

	t.Run("introduction registers the sender", func(t *testing.T) {
		store := &fakeRouterStore{users: map[string]*model.User{}}
		r := newTestRouter(
			&fakeClassifier{intent: model.KnownIntent(model.IntentInputName)},
			&fakeExtractor{name: "Sam Chen"},
			&fakeResolver{},
			store,
			nil,
		)

		reply := r.Handle(context.Background(), inbound("Hi, I'm Sam Chen"))
		assert.Contains(t, reply, "Sam Chen")

		require.Len(t, store.newUsers, 1)
		u := store.newUsers[0]
		assert.Equal(t, "Sam Chen", u.Name)
		assert.Equal(t, "+15550001111", u.Number)
		assert.NotEmpty(t, u.UserID)
		assert.NotEmpty(t, u.FamilyID)
	})
}

func TestHandleRenameForRegisteredUser(t *testing.T) {
	t.Run("new name is persisted", func(t *testing.T) {
		store := storeWithUser()
		r := newTestRouter(
			&fakeClassifier{intent: model.KnownIntent(model.IntentInputName)},
			&fakeExtractor{name: "Jordan Alvarez"},
			&fakeResolver{},
			store,
			nil,
		)

		reply := r.Handle(context.Background(), inbound("actually, call me Jordan Alvarez"))
		assert.Contains(t, reply, "Jordan Alvarez")
		assert.Equal(t, "Jordan Alvarez", store.renames["u1"])
	})

	t.Run("same name is just a greeting", func(t *testing.T) {
		store := storeWithUser()
		r := newTestRouter(
			&fakeClassifier{intent: model.KnownIntent(model.IntentInputName)},
			&fakeExtractor{name: "Jordan"},
			&fakeResolver{},
			store,
			nil,
		)

		reply := r.Handle(context.Background(), inbound("hi, I'm Jordan"))
		assert.Contains(t, reply, "Jordan")
		assert.Empty(t, store.renames)
	})

	t.Run("extraction failure keeps the old name", func(t *testing.T) {
		store := storeWithUser()
		r := newTestRouter(
			&fakeClassifier{intent: model.KnownIntent(model.IntentInputName)},
			&fakeExtractor{err: common.ErrExtractionParse},
			&fakeResolver{},
			store,
			nil,
		)

		reply := r.Handle(context.Background(), inbound("hello"))
		assert.Contains(t, reply, "Jordan")
		assert.Empty(t, store.renames)
	})
}

func TestHandleFreeformRepliesVerbatim(t *testing.T) {
	store := storeWithUser()
	r := newTestRouter(
		&fakeClassifier{intent: model.FreeformIntent("Compound interest is interest on interest.")},
		&fakeExtractor{},
		&fakeResolver{},
		store,
		nil,
	)

	reply := r.Handle(context.Background(), inbound("what is compound interest?"))
	assert.Equal(t, "Compound interest is interest on interest.", reply)
}

func TestHandleLiteralOtherAsksGateway(t *testing.T) {
	store := storeWithUser()
	r := newTestRouter(
		&fakeClassifier{intent: model.KnownIntent(model.IntentOther)},
		&fakeExtractor{},
		&fakeResolver{},
		store,
		&fakeAnswerer{answer: "Here is a budgeting tip."},
	)

	reply := r.Handle(context.Background(), inbound("help me budget"))
	assert.Equal(t, "Here is a budgeting tip.", reply)
}

func TestHandleAnalytics(t *testing.T) {
	store := storeWithUser()
	year := 2026
	store.summary = model.YearlySummary{
		year: {
			1: {Income: 5000, Expense: 1200},
			2: {Income: 5000, Expense: 900},
		},
	}

	r := newTestRouter(
		&fakeClassifier{intent: model.KnownIntent(model.IntentAnalyticsRequest)},
		&fakeExtractor{},
		&fakeResolver{},
		store,
		nil,
	)
	r.now = func() time.Time { return time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC) }

	reply := r.Handle(context.Background(), inbound("how did we do this year?"))
	assert.Contains(t, reply, "2026 summary")
	assert.Contains(t, reply, "January")
	assert.Contains(t, reply, "February")
	assert.Contains(t, reply, "income $10000.00")
	assert.Contains(t, reply, "expenses $2100.00")
}

func TestHandleAnalyticsNoActivity(t *testing.T) {
	store := storeWithUser()
	r := newTestRouter(
		&fakeClassifier{intent: model.KnownIntent(model.IntentAnalyticsRequest)},
		&fakeExtractor{},
		&fakeResolver{},
		store,
		nil,
	)

	reply := r.Handle(context.Background(), inbound("summary please"))
	assert.Contains(t, reply, "No activity")
}

func TestHandleMultipleTransactions(t *testing.T) {
	store := storeWithUser()
	r := newTestRouter(
		&fakeClassifier{intent: model.KnownIntent(model.IntentMultipleTransactions)},
		&fakeExtractor{},
		&fakeResolver{},
		store,
		nil,
	)

	reply := r.Handle(context.Background(), inbound("groceries $20, gas $40, rent $900"))
	assert.Equal(t, replyOneAtATime, reply)
	assert.Empty(t, store.created)
}

func TestHandlePanicYieldsApology(t *testing.T) {
	store := storeWithUser()
	r := newTestRouter(
		&fakeClassifier{intent: model.KnownIntent(model.IntentCreateTransaction)},
		&fakeExtractor{panicOn: true},
		&fakeResolver{},
		store,
		nil,
	)

	var reply string
	require.NotPanics(t, func() {
		reply = r.Handle(context.Background(), inbound("spent $45"))
	})
	assert.Equal(t, replyApology, reply)
}

func TestHandleAlwaysProducesOneReply(t *testing.T) {
	intents := []model.Intent{
		model.KnownIntent(model.IntentCreateTransaction),
		model.KnownIntent(model.IntentUpdateTransaction),
		model.KnownIntent(model.IntentDeleteTransaction),
		model.KnownIntent(model.IntentAnalyticsRequest),
		model.KnownIntent(model.IntentMultipleTransactions),
		model.KnownIntent(model.IntentInputName),
		model.KnownIntent(model.IntentOther),
		model.FreeformIntent("an answer"),
	}

	for _, in := range intents {
		t.Run(string(in.Name)+"/"+in.Freeform, func(t *testing.T) {
			store := storeWithUser()
			r := newTestRouter(
				&fakeClassifier{intent: in},
				&fakeExtractor{
					txn:  &model.Transaction{Type: model.TypeExpense, Amount: 5, Year: 2025, Month: 1, Day: 1},
					sp:   &model.SearchAndPatch{},
					name: "Sam",
				},
				&fakeResolver{
					before: &model.Transaction{ID: "t", FamilyID: "fam-1", Type: model.TypeExpense, Amount: 5, Year: 2025, Month: 1, Day: 1},
					after:  &model.Transaction{ID: "t", FamilyID: "fam-1", Type: model.TypeExpense, Amount: 6, Year: 2025, Month: 1, Day: 1},
				},
				store,
				nil,
			)

			reply := r.Handle(context.Background(), inbound("anything"))
			assert.NotEmpty(t, strings.TrimSpace(reply))
		})
	}
}
