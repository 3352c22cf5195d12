// Package gateway provides a uniform interface to a generative-AI backend.
// Provider-specific behavior (multimodal content assembly, the audio
// transcription fallback chain, rate limiting) lives behind the Client
// interface so the rest of the pipeline never touches the provider SDK.
package gateway

import (
	"context"
	"time"

	"github.com/ledgerpal/ledgerpal/internal/model"
)

// Client defines the contract the intent classifier, structured extractor and
// router depend on. Implementations must convert provider transport failures
// into errors wrapping common.ErrGateway; callers must not assume calls
// always succeed.
type Client interface {
	// Text sends a plain text prompt and returns the generated text.
	Text(ctx context.Context, prompt string) (string, error)

	// Multimodal sends a prompt alongside media attachments. Attachments that
	// cannot be loaded are skipped rather than failing the whole call.
	Multimodal(ctx context.Context, prompt string, media []model.MediaAttachment) (string, error)

	// TranscribeAudio converts a locally cached voice message to text.
	// It returns "" with a nil error when no transcription is available;
	// callers treat that as "no transcription", not a failure to surface.
	TranscribeAudio(ctx context.Context, audioPath string) (string, error)
}

// Config holds configuration for the Gemini gateway.
type Config struct {
	APIKey      string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	RateLimit   int // requests per minute
	FFmpegPath  string
	Temperature float64
}
