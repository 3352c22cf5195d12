package whatsapp

import (
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// Sender delivers outbound WhatsApp messages through the Twilio REST API.
// The webhook path replies with TwiML instead; this is for messages sent
// outside a webhook exchange, such as reward coupons and operator tooling.
type Sender struct {
	client *twilio.RestClient
	logger *slog.Logger
	from   string // sending number, without the whatsapp: prefix
}

// NewSender creates a REST sender for the given Twilio account.
func NewSender(accountSID, authToken, from string, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Sender{client: client, logger: logger, from: from}
}

// Send delivers a text message to the given phone number.
func (s *Sender) Send(to, body string) error {
	return s.send(to, body, nil)
}

// SendWithMedia delivers a text message with attached media URLs.
func (s *Sender) SendWithMedia(to, body string, mediaURLs []string) error {
	return s.send(to, body, mediaURLs)
}

func (s *Sender) send(to, body string, mediaURLs []string) error {
	params := &api.CreateMessageParams{}
	params.SetTo(channelPrefix + to)
	params.SetFrom(channelPrefix + s.from)
	params.SetBody(body)
	if len(mediaURLs) > 0 {
		params.SetMediaUrl(mediaURLs)
	}

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	s.logger.Info("sent whatsapp message",
		"to", to,
		"message_sid", sid)

	return nil
}
