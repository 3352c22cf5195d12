package model

import (
	"strings"
	"time"
)

// Direction indicates whether a message was received from or sent to a user.
type Direction string

// Message directions.
const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// MediaAttachment is a single piece of media carried by a WhatsApp message.
// URL points at the provider-hosted copy; LocalPath is set once the media
// has been downloaded into the media store.
type MediaAttachment struct {
	URL         string
	ContentType string
	LocalPath   string
}

// IsImage reports whether the attachment is in the image content-type family.
func (m MediaAttachment) IsImage() bool {
	return strings.HasPrefix(m.ContentType, "image")
}

// IsAudio reports whether the attachment is in the audio content-type family.
func (m MediaAttachment) IsAudio() bool {
	return strings.HasPrefix(m.ContentType, "audio")
}

// InboundMessage is one parsed webhook delivery. It is immutable once built:
// the transport parses the provider payload exactly once per webhook call and
// hands the result to the router.
type InboundMessage struct {
	MessageSID string
	Body       string
	Sender     string // phone number without the whatsapp: prefix
	Recipient  string
	Media      []MediaAttachment
	Direction  Direction
	Timestamp  time.Time
}

// HasMedia reports whether the message carries any attachments.
func (m InboundMessage) HasMedia() bool {
	return len(m.Media) > 0
}
