// Package whatsapp is the WhatsApp transport layer: it parses Twilio webhook
// form payloads into inbound messages, downloads message media into a local
// store, and renders replies either as TwiML or through the Twilio REST API.
package whatsapp

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerpal/ledgerpal/internal/model"
)

const channelPrefix = "whatsapp:"

// ParseWebhook converts a Twilio inbound-message webhook request into an
// InboundMessage. Phone numbers are stripped of the whatsapp: channel prefix
// so the rest of the system deals in bare E.164 numbers.
func ParseWebhook(r *http.Request) (*model.InboundMessage, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("failed to parse webhook form: %w", err)
	}

	sender := strings.TrimPrefix(r.PostFormValue("From"), channelPrefix)
	if sender == "" {
		return nil, fmt.Errorf("webhook payload has no From number")
	}

	msg := &model.InboundMessage{
		MessageSID: r.PostFormValue("MessageSid"),
		Body:       r.PostFormValue("Body"),
		Sender:     sender,
		Recipient:  strings.TrimPrefix(r.PostFormValue("To"), channelPrefix),
		Direction:  model.DirectionInbound,
		Timestamp:  time.Now().UTC(),
	}

	numMedia, err := strconv.Atoi(r.PostFormValue("NumMedia"))
	if err != nil || numMedia <= 0 {
		return msg, nil
	}

	for i := 0; i < numMedia; i++ {
		url := r.PostFormValue(fmt.Sprintf("MediaUrl%d", i))
		if url == "" {
			continue
		}
		msg.Media = append(msg.Media, model.MediaAttachment{
			URL:         url,
			ContentType: r.PostFormValue(fmt.Sprintf("MediaContentType%d", i)),
		})
	}

	return msg, nil
}
