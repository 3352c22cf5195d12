package whatsapp

import (
	"fmt"

	"github.com/twilio/twilio-go/twiml"
)

// ReplyTwiML renders a single-message TwiML response for the webhook path.
// Twilio delivers the body back to the sender over the same channel, so no
// addressing is needed here.
func ReplyTwiML(body string) (string, error) {
	doc, err := twiml.Messages([]twiml.Element{
		&twiml.MessagingMessage{Body: body},
	})
	if err != nil {
		return "", fmt.Errorf("failed to render twiml: %w", err)
	}
	return doc, nil
}

// EmptyTwiML renders a response that sends nothing. Used when a webhook must
// still be acknowledged with valid TwiML but no reply is warranted.
func EmptyTwiML() (string, error) {
	doc, err := twiml.Messages(nil)
	if err != nil {
		return "", fmt.Errorf("failed to render twiml: %w", err)
	}
	return doc, nil
}
