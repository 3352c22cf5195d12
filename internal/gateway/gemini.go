package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"google.golang.org/genai"

	"github.com/ledgerpal/ledgerpal/internal/common"
	"github.com/ledgerpal/ledgerpal/internal/model"
)

const defaultModel = "gemini-2.0-flash"

// transcribePrompt asks for a verbatim transcript and nothing else. The
// fallback prompt lets the model summarize when a clean transcript fails.
const (
	transcribePrompt         = "Transcribe this audio to text. Respond with ONLY the verbatim transcript, no commentary."
	transcribeFallbackPrompt = "Listen to this audio and write out what the speaker says."
)

// GeminiClient implements Client using the Gemini API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	genConfig   *genai.GenerateContentConfig
	rateLimiter *rateLimiter
	retryOpts   common.RetryOptions
	ffmpegPath  string
	logger      *slog.Logger

	// transcribe performs one transcription request. Defaults to
	// transcribeOnce; a function field so the fallback chain can be
	// exercised without a live backend.
	transcribe func(ctx context.Context, prompt, mimeType string, data []byte) (string, error)
}

// NewGeminiClient creates a Gemini-backed gateway.
func NewGeminiClient(ctx context.Context, cfg Config, logger *slog.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key", common.ErrMissingConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModel
	}
	ffmpegPath := cfg.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	retryOpts := common.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	var genConfig *genai.GenerateContentConfig
	if cfg.Temperature > 0 {
		genConfig = &genai.GenerateContentConfig{
			Temperature: genai.Ptr(float32(cfg.Temperature)),
		}
	}

	g := &GeminiClient{
		client:      client,
		model:       modelName,
		genConfig:   genConfig,
		rateLimiter: newRateLimiter(cfg.RateLimit),
		retryOpts:   retryOpts,
		ffmpegPath:  ffmpegPath,
		logger:      logger,
	}
	g.transcribe = g.transcribeOnce
	return g, nil
}

// Text sends a plain text prompt.
func (g *GeminiClient) Text(ctx context.Context, prompt string) (string, error) {
	parts := []*genai.Part{{Text: prompt}}
	return g.generate(ctx, parts)
}

// Multimodal sends a prompt alongside media attachments. Images are forwarded
// as inline data; voice messages are transcribed first and forwarded as text,
// matching how the extraction prompts expect spoken input to arrive.
func (g *GeminiClient) Multimodal(ctx context.Context, prompt string, media []model.MediaAttachment) (string, error) {
	parts := []*genai.Part{{Text: prompt}}

	for _, m := range media {
		part, err := g.mediaPart(ctx, m)
		if err != nil {
			g.logger.Warn("skipping unloadable attachment",
				"url", m.URL,
				"content_type", m.ContentType,
				"error", err)
			continue
		}
		if part != nil {
			parts = append(parts, part)
		}
	}

	return g.generate(ctx, parts)
}

// mediaPart loads one attachment into a request part by content-type family.
func (g *GeminiClient) mediaPart(ctx context.Context, m model.MediaAttachment) (*genai.Part, error) {
	switch {
	case m.IsImage():
		if m.LocalPath == "" {
			return nil, fmt.Errorf("image attachment has no local copy")
		}
		data, err := os.ReadFile(m.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("reading image: %w", err)
		}
		return &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: m.ContentType,
				Data:     data,
			},
		}, nil
	case m.IsAudio():
		if m.LocalPath == "" {
			return nil, fmt.Errorf("audio attachment has no local copy")
		}
		text, err := g.TranscribeAudio(ctx, m.LocalPath)
		if err != nil {
			return nil, err
		}
		if text == "" {
			return nil, nil
		}
		return &genai.Part{Text: "Voice Message: " + text}, nil
	default:
		return nil, fmt.Errorf("unsupported content type %s", m.ContentType)
	}
}

// generate performs one rate-limited, retried GenerateContent call.
func (g *GeminiClient) generate(ctx context.Context, parts []*genai.Part) (string, error) {
	if err := g.rateLimiter.wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}

	var text string
	err := common.WithRetry(ctx, func() error {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, g.genConfig)
		if err != nil {
			return &common.RetryableError{Err: err, Retryable: true}
		}
		text = resp.Text()
		if text == "" {
			return &common.RetryableError{
				Err:       fmt.Errorf("empty response from model"),
				Retryable: true,
			}
		}
		return nil
	}, g.retryOpts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrGateway, err)
	}

	return text, nil
}

// Close stops background goroutines.
func (g *GeminiClient) Close() error {
	if g.rateLimiter != nil {
		g.rateLimiter.Close()
	}
	return nil
}
