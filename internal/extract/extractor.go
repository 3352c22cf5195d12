// Package extract turns unstructured message content into structured
// transaction data via the AI gateway. Prompts ask for a strict JSON object;
// responses are parsed with envelope scanning and validated before anything
// reaches the persistence layer. A parse failure is always surfaced as
// common.ErrExtractionParse, never as a half-populated record.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledgerpal/ledgerpal/internal/common"
	"github.com/ledgerpal/ledgerpal/internal/gateway"
	"github.com/ledgerpal/ledgerpal/internal/model"
)

const newTransactionPrompt = `Extract transaction details and return a strict JSON object (starting with { and ending with }) in this format:
{"type": <income|expense>, "category": <%s>, "amount": <amount in $>, "day": <day (0-31)>, "month": <1-12>, "year": <year>, "description": <description>}.
Use today's date (%s) as default for day, month and year if not specified in the message.
Message: %s`

const searchAndPatchPrompt = `Extract key details from the text required for fetching the correct transaction entry from the db and then updating the correct fields and their values.
If you find that "description" is the key field, it should always be a fuzzy match.
If you find that "amount" is the key field, it should always be an exact match.
If you find that "category" is the key field, it should always be an exact match.
If you find that "day" is the key field, it should always be an exact match.
If you find that "month" is the key field, it should always be an exact match.
If you find that "year" is the key field, it should always be an exact match.
If you find that "type" is the key field, it should always be an exact match.

If date related information is not given then DO NOT ASSUME ANYTHING.
If amount is not given, then for description field output multiple one word possibilities for the search.

Return format:
Only include fields that are identified and not others
{
    "search": {
        "type": "income|expense",
        "category": "category",
        "amount": amount,
        "day": day,
        "month": month,
        "year": year,
        "description": ["terms"]
    },
    "updates": {
        // only fields being updated
    }
}

Message: %s`

const userNamePrompt = `Extract the full name of the user from the message and return only the full name.
Message: %s`

// Extractor issues extraction prompts and parses the structured results.
type Extractor struct {
	client gateway.Client
	now    Clock
	logger *slog.Logger
}

// NewExtractor creates an extractor. The clock supplies the current date for
// defaulting and relative-date resolution.
func NewExtractor(client gateway.Client, now Clock, logger *slog.Logger) *Extractor {
	return &Extractor{client: client, now: now, logger: logger}
}

// NewTransaction extracts a fresh transaction record from the message.
// Family and user identifiers are NOT filled in here; the router owns those
// and never trusts extracted data for them.
func (e *Extractor) NewTransaction(ctx context.Context, msg model.InboundMessage) (*model.Transaction, error) {
	today := e.now().Format("January-02-2006")
	prompt := fmt.Sprintf(newTransactionPrompt, strings.Join(model.Categories, "|"), today, msg.Body)

	raw, err := e.send(ctx, prompt, msg)
	if err != nil {
		return nil, err
	}

	fields, err := decodeEnvelope(raw)
	if err != nil {
		e.logger.Warn("transaction extraction produced no parseable JSON",
			"sender", msg.Sender,
			"error", err)
		return nil, err
	}

	return e.buildTransaction(fields)
}

func (e *Extractor) buildTransaction(fields map[string]any) (*model.Transaction, error) {
	typ, ok := asString(fields["type"])
	if !ok || !model.TransactionType(typ).Valid() {
		return nil, fmt.Errorf("%w: missing or invalid type", common.ErrExtractionParse)
	}
	amount, ok := asFloat(fields["amount"])
	if !ok || amount < 0 {
		return nil, fmt.Errorf("%w: missing or invalid amount", common.ErrExtractionParse)
	}

	now := e.now()
	txn := &model.Transaction{
		Type:       model.TransactionType(typ),
		Amount:     amount,
		Year:       now.Year(),
		Month:      int(now.Month()),
		Day:        now.Day(),
		RecordType: "transaction",
	}

	if category, ok := asString(fields["category"]); ok {
		txn.Category = strings.ToLower(strings.TrimSpace(category))
	}
	if description, ok := asString(fields["description"]); ok {
		txn.Description = description
	}
	if day, ok := asInt(fields["day"]); ok && day > 0 {
		txn.Day = day
	}
	if month, ok := asInt(fields["month"]); ok && month > 0 {
		txn.Month = month
	}
	if year, ok := asInt(fields["year"]); ok && year > 0 {
		txn.Year = year
	}

	return txn, nil
}

// SearchAndPatch extracts the locate criteria and the fields to change for an
// update or delete request. Relative-date sentinels in the search block are
// resolved against the clock after parsing; year and month default to the
// current ones when absent or unresolved.
func (e *Extractor) SearchAndPatch(ctx context.Context, msg model.InboundMessage) (*model.SearchAndPatch, error) {
	prompt := fmt.Sprintf(searchAndPatchPrompt, msg.Body)

	raw, err := e.send(ctx, prompt, msg)
	if err != nil {
		return nil, err
	}

	fields, err := decodeEnvelope(raw)
	if err != nil {
		e.logger.Warn("search extraction produced no parseable JSON",
			"sender", msg.Sender,
			"error", err)
		return nil, err
	}

	search, _ := fields["search"].(map[string]any)
	updates, _ := fields["updates"].(map[string]any)
	if search == nil && updates == nil {
		return nil, fmt.Errorf("%w: no search or updates block", common.ErrExtractionParse)
	}

	result := &model.SearchAndPatch{
		Search:  e.buildCriteria(search),
		Updates: model.UpdatePatch(updates),
	}
	return result, nil
}

func (e *Extractor) buildCriteria(search map[string]any) model.SearchCriteria {
	now := e.now()
	var c model.SearchCriteria

	if typ, ok := asString(search["type"]); ok {
		t := model.TransactionType(strings.ToLower(strings.TrimSpace(typ)))
		if t.Valid() {
			c.Type = &t
		}
	}
	if category, ok := asString(search["category"]); ok {
		cat := strings.ToLower(strings.TrimSpace(category))
		c.Category = &cat
	}
	if amount, ok := asFloat(search["amount"]); ok {
		c.Amount = &amount
	}

	switch v := search["description"].(type) {
	case string:
		c.Description = strings.Fields(v)
	case []any:
		for _, item := range v {
			if s, ok := asString(item); ok {
				c.Description = append(c.Description, s)
			}
		}
	}

	// Day: a concrete number is taken as-is, a sentinel is resolved.
	if day, ok := asInt(search["day"]); ok && day > 0 {
		c.Day = &day
	} else if token, ok := asString(search["day"]); ok {
		if day, resolved := resolveDaySentinel(token, now); resolved {
			c.Day = &day
		}
	}

	// Year and month fall back to the current calendar when the user gave
	// nothing or the model echoed a placeholder.
	year := now.Year()
	if y, ok := asInt(search["year"]); ok && y > 0 && !isPlaceholder(search["year"]) {
		year = y
	}
	c.Year = &year

	month := int(now.Month())
	if m, ok := asInt(search["month"]); ok && m > 0 && !isPlaceholder(search["month"]) {
		month = m
	}
	c.Month = &month

	return c
}

// UserName extracts the sender's full name from a registration message.
func (e *Extractor) UserName(ctx context.Context, msg model.InboundMessage) (string, error) {
	raw, err := e.send(ctx, fmt.Sprintf(userNamePrompt, msg.Body), msg)
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: empty name", common.ErrExtractionParse)
	}
	return name, nil
}

func (e *Extractor) send(ctx context.Context, prompt string, msg model.InboundMessage) (string, error) {
	if msg.HasMedia() {
		return e.client.Multimodal(ctx, prompt, msg.Media)
	}
	return e.client.Text(ctx, prompt)
}
