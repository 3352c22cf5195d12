// Package router orchestrates the message pipeline: classify the inbound
// message, dispatch to the matching workflow, and always produce exactly one
// reply. Workflow failures degrade to apologetic replies rather than
// propagating; the transport never sees an error from Handle.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerpal/ledgerpal/internal/common"
	"github.com/ledgerpal/ledgerpal/internal/model"
	"github.com/ledgerpal/ledgerpal/internal/rewards"
)

// Canned replies for degraded paths.
const (
	replyApology       = "Sorry, something went wrong on my end. Please try again in a moment."
	replyNotUnderstood = "Sorry, I couldn't work out the transaction details from that. Could you rephrase?"
	replyNotFound      = "I couldn't find a matching transaction. Could you add more detail, like the amount?"
	replyRegister      = "Hi! I don't know you yet. Please tell me your name so I can set up your ledger."
	replyOneAtATime    = "I can only record one transaction per message for now. Please send them one at a time."
)

// Classifier determines an inbound message's intent.
type Classifier interface {
	Classify(ctx context.Context, msg model.InboundMessage) model.Intent
}

// Extractor pulls structured data out of a message.
type Extractor interface {
	NewTransaction(ctx context.Context, msg model.InboundMessage) (*model.Transaction, error)
	SearchAndPatch(ctx context.Context, msg model.InboundMessage) (*model.SearchAndPatch, error)
	UserName(ctx context.Context, msg model.InboundMessage) (string, error)
}

// TransactionResolver locates and mutates the record a partial description
// refers to.
type TransactionResolver interface {
	Update(ctx context.Context, familyID string, sp *model.SearchAndPatch) (before, after *model.Transaction, err error)
	Delete(ctx context.Context, familyID string, criteria model.SearchCriteria) (*model.Transaction, error)
}

// Store is the persistence surface the router needs.
type Store interface {
	GetUserByNumber(ctx context.Context, number string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	UpdateUserName(ctx context.Context, userID, name string) error
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	ApplySummaryDelta(ctx context.Context, familyID string, year, month int, typ model.TransactionType, delta float64) error
	GetYearlySummary(ctx context.Context, familyID string, year int) (model.YearlySummary, error)
}

// Answerer answers free-text questions. Satisfied by the gateway client.
type Answerer interface {
	Text(ctx context.Context, prompt string) (string, error)
}

const questionPrompt = `You are a helpful personal-finance assistant on WhatsApp. Answer the user's message briefly and helpfully.
Message: %s`

// Router wires the pipeline stages together.
type Router struct {
	classifier Classifier
	extractor  Extractor
	resolver   TransactionResolver
	store      Store
	answerer   Answerer
	coupons    *rewards.Generator
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a Router. The coupons generator may be nil to disable rewards.
func New(classifier Classifier, extractor Extractor, resolver TransactionResolver, store Store, answerer Answerer, coupons *rewards.Generator, logger *slog.Logger) *Router {
	return &Router{
		classifier: classifier,
		extractor:  extractor,
		resolver:   resolver,
		store:      store,
		answerer:   answerer,
		coupons:    coupons,
		now:        time.Now,
		logger:     logger,
	}
}

// Handle runs one message through the pipeline and returns the reply text.
// It never returns an error and never panics: any failure, including a panic
// in a workflow, collapses to an apologetic reply.
func (r *Router) Handle(ctx context.Context, msg model.InboundMessage) (reply string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while handling message",
				"sender", msg.Sender,
				"panic", rec)
			reply = replyApology
		}
	}()

	intent := r.classifier.Classify(ctx, msg)
	r.logger.Info("routing message",
		"sender", msg.Sender,
		"intent", string(intent.Name),
		"has_media", msg.HasMedia())

	user, err := r.store.GetUserByNumber(ctx, msg.Sender)
	if errors.Is(err, common.ErrNotFound) {
		return r.handleUnknownUser(ctx, msg, intent)
	}
	if err != nil {
		r.logger.Error("user lookup failed", "sender", msg.Sender, "error", err)
		return replyApology
	}

	if !intent.IsKnown() {
		return intent.Freeform
	}

	switch intent.Name {
	case model.IntentCreateTransaction:
		return r.handleCreate(ctx, msg, user)
	case model.IntentUpdateTransaction:
		return r.handleUpdate(ctx, msg, user)
	case model.IntentDeleteTransaction:
		return r.handleDelete(ctx, msg, user)
	case model.IntentAnalyticsRequest:
		return r.handleAnalytics(ctx, user)
	case model.IntentMultipleTransactions:
		return replyOneAtATime
	case model.IntentInputName:
		return r.handleRename(ctx, msg, user)
	default:
		return r.handleQuestion(ctx, msg)
	}
}

// handleUnknownUser registers the sender when they introduced themselves,
// and asks them to otherwise. No transaction workflow runs for a number we
// have never seen.
func (r *Router) handleUnknownUser(ctx context.Context, msg model.InboundMessage, intent model.Intent) string {
	if intent.Name != model.IntentInputName {
		r.logger.Info("dropping message from unregistered sender",
			"sender", msg.Sender,
			"intent", string(intent.Name),
			"error", common.ErrUnknownUser)
		return replyRegister
	}

	name, err := r.extractor.UserName(ctx, msg)
	if err != nil {
		r.logger.Warn("name extraction failed", "sender", msg.Sender, "error", err)
		return replyRegister
	}

	user := &model.User{
		UserID:   uuid.NewString(),
		Name:     name,
		Number:   msg.Sender,
		FamilyID: uuid.NewString(),
	}
	if err := r.store.CreateUser(ctx, user); err != nil {
		r.logger.Error("user creation failed", "sender", msg.Sender, "error", err)
		return replyApology
	}

	r.logger.Info("registered user", "user_id", user.UserID, "family_id", user.FamilyID)
	return fmt.Sprintf("Welcome, %s! Your ledger is ready. Tell me about an expense or income to get started.", name)
}

// handleRename treats a repeated introduction from a registered sender as a
// rename request. When no name can be pulled from the message, the existing
// name stands and the reply is a plain greeting.
func (r *Router) handleRename(ctx context.Context, msg model.InboundMessage, user *model.User) string {
	name, err := r.extractor.UserName(ctx, msg)
	if err != nil || name == user.Name {
		return fmt.Sprintf("Good to hear from you, %s! Send me an expense or income and I'll record it.", user.Name)
	}

	if err := r.store.UpdateUserName(ctx, user.UserID, name); err != nil {
		r.logger.Error("rename failed", "user_id", user.UserID, "error", err)
		return replyApology
	}
	return fmt.Sprintf("Got it, I'll call you %s from now on.", name)
}

func (r *Router) handleCreate(ctx context.Context, msg model.InboundMessage, user *model.User) string {
	txn, err := r.extractor.NewTransaction(ctx, msg)
	if err != nil {
		if errors.Is(err, common.ErrExtractionParse) {
			return replyNotUnderstood
		}
		r.logger.Error("transaction extraction failed", "sender", msg.Sender, "error", err)
		return replyApology
	}

	// Identity fields come from the authenticated sender, never from the model.
	txn.ID = uuid.NewString()
	txn.FamilyID = user.FamilyID
	txn.UserID = user.UserID

	if err := r.store.CreateTransaction(ctx, txn); err != nil {
		r.logger.Error("transaction insert failed", "sender", msg.Sender, "error", err)
		return replyApology
	}
	r.applyDelta(ctx, txn, txn.Amount)

	reply := fmt.Sprintf("Recorded %s of $%.2f", txn.Type, txn.Amount)
	if txn.Category != "" {
		reply += " under " + txn.Category
	}
	reply += fmt.Sprintf(" on %04d-%02d-%02d.", txn.Year, txn.Month, txn.Day)

	if coupon, ok := r.couponFor(txn); ok {
		reply += " " + coupon.Message()
	}
	return reply
}

func (r *Router) handleUpdate(ctx context.Context, msg model.InboundMessage, user *model.User) string {
	sp, err := r.extractor.SearchAndPatch(ctx, msg)
	if err != nil {
		if errors.Is(err, common.ErrExtractionParse) {
			return replyNotUnderstood
		}
		r.logger.Error("update extraction failed", "sender", msg.Sender, "error", err)
		return replyApology
	}

	before, after, err := r.resolver.Update(ctx, user.FamilyID, sp)
	if err != nil {
		if errors.Is(err, common.ErrResolutionNotFound) {
			return replyNotFound
		}
		r.logger.Error("update failed", "sender", msg.Sender, "error", err)
		return replyApology
	}

	r.applyDelta(ctx, before, -before.Amount)
	r.applyDelta(ctx, after, after.Amount)

	return fmt.Sprintf("Updated: %s of $%.2f on %04d-%02d-%02d.",
		after.Type, after.Amount, after.Year, after.Month, after.Day)
}

func (r *Router) handleDelete(ctx context.Context, msg model.InboundMessage, user *model.User) string {
	sp, err := r.extractor.SearchAndPatch(ctx, msg)
	if err != nil {
		if errors.Is(err, common.ErrExtractionParse) {
			return replyNotUnderstood
		}
		r.logger.Error("delete extraction failed", "sender", msg.Sender, "error", err)
		return replyApology
	}

	deleted, err := r.resolver.Delete(ctx, user.FamilyID, sp.Search)
	if err != nil {
		if errors.Is(err, common.ErrResolutionNotFound) {
			return replyNotFound
		}
		r.logger.Error("delete failed", "sender", msg.Sender, "error", err)
		return replyApology
	}

	r.applyDelta(ctx, deleted, -deleted.Amount)

	return fmt.Sprintf("Deleted the %s of $%.2f from %04d-%02d-%02d.",
		deleted.Type, deleted.Amount, deleted.Year, deleted.Month, deleted.Day)
}

func (r *Router) handleAnalytics(ctx context.Context, user *model.User) string {
	year := r.now().Year()
	summary, err := r.store.GetYearlySummary(ctx, user.FamilyID, year)
	if err != nil {
		r.logger.Error("summary fetch failed", "family_id", user.FamilyID, "error", err)
		return replyApology
	}

	months := summary[year]
	if len(months) == 0 {
		return fmt.Sprintf("No activity recorded for %d yet.", year)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your %d summary:\n", year)
	var totalIn, totalOut float64
	for m := 1; m <= 12; m++ {
		s, ok := months[m]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s: income $%.2f, expenses $%.2f\n",
			time.Month(m).String(), s.Income, s.Expense)
		totalIn += s.Income
		totalOut += s.Expense
	}
	fmt.Fprintf(&b, "Total: income $%.2f, expenses $%.2f, net $%.2f",
		totalIn, totalOut, totalIn-totalOut)
	return b.String()
}

// handleQuestion answers a literal OTHER classification, which only happens
// when the gateway failed during classification or the model replied with the
// bare token. One more attempt at a direct answer is worth the call.
func (r *Router) handleQuestion(ctx context.Context, msg model.InboundMessage) string {
	answer, err := r.answerer.Text(ctx, fmt.Sprintf(questionPrompt, msg.Body))
	if err != nil || strings.TrimSpace(answer) == "" {
		return replyApology
	}
	return strings.TrimSpace(answer)
}

// applyDelta adjusts the monthly summary for a transaction's month. Summary
// drift is tolerable; the transaction write has already succeeded, so a
// failed delta is logged and the reply proceeds.
func (r *Router) applyDelta(ctx context.Context, txn *model.Transaction, delta float64) {
	if err := r.store.ApplySummaryDelta(ctx, txn.FamilyID, txn.Year, txn.Month, txn.Type, delta); err != nil {
		r.logger.Warn("summary delta failed",
			"family_id", txn.FamilyID,
			"transaction_id", txn.ID,
			"error", err)
	}
}

func (r *Router) couponFor(txn *model.Transaction) (rewards.Coupon, bool) {
	if r.coupons == nil || txn.Type != model.TypeExpense {
		return rewards.Coupon{}, false
	}
	return r.coupons.For(txn.Category)
}
