// Package intent classifies inbound messages against the fixed intent
// taxonomy. A single model call does double duty: closed-set classification
// most of the time, and open-domain answering when the intent is OTHER. The
// prompt instructs the model to answer OTHER questions directly, so the raw
// response text must be preserved rather than coerced to an enum.
package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledgerpal/ledgerpal/internal/gateway"
	"github.com/ledgerpal/ledgerpal/internal/model"
)

const classifyPrompt = `Read the below message/attached media and classify the intent of the message. Except for the case when intent is "OTHER", only reply with the exact intent category as it is.
By default, if there is some transaction related detail, then it might be CREATE_TRANSACTION, but validate that it doesn't fall into any other category first.

If you think that the intent is OTHER, then answer the question based on your knowledge.
Intents: %s

Message: %s`

// Classifier determines the intent of an inbound message.
type Classifier struct {
	client gateway.Client
	logger *slog.Logger
}

// NewClassifier creates an intent classifier backed by the given gateway.
func NewClassifier(client gateway.Client, logger *slog.Logger) *Classifier {
	return &Classifier{client: client, logger: logger}
}

// Classify builds the taxonomy prompt for the message and normalizes the
// model's answer. The result is always usable: a taxonomy member when the
// normalized response matches one exactly, the raw response as a freeform
// answer otherwise, and OTHER when the gateway call fails.
func (c *Classifier) Classify(ctx context.Context, msg model.InboundMessage) model.Intent {
	prompt := buildPrompt(msg.Body)

	var raw string
	var err error
	if msg.HasMedia() {
		raw, err = c.client.Multimodal(ctx, prompt, msg.Media)
	} else {
		raw, err = c.client.Text(ctx, prompt)
	}
	if err != nil {
		c.logger.Warn("classification degraded to OTHER",
			"sender", msg.Sender,
			"error", err)
		return model.KnownIntent(model.IntentOther)
	}

	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if model.KnownIntentName(normalized) {
		c.logger.Debug("message classified",
			"sender", msg.Sender,
			"intent", normalized)
		return model.KnownIntent(model.IntentName(normalized))
	}

	// Not a taxonomy member: the model answered the question instead.
	return model.FreeformIntent(strings.TrimSpace(raw))
}

func buildPrompt(body string) string {
	names := make([]string, len(model.IntentNames))
	for i, n := range model.IntentNames {
		names[i] = string(n)
	}
	return fmt.Sprintf(classifyPrompt, strings.Join(names, ", "), body)
}
