package gateway

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"google.golang.org/genai"
)

// TranscribeAudio converts a locally cached voice message to text.
//
// WhatsApp voice notes arrive as OGG/Opus, which the transcription path
// handles poorly, so those are re-encoded to a plain WAV first. The primary
// transcription attempt asks for a strict verbatim transcript; if that fails
// or comes back empty, the model's general audio-understanding path is tried
// with a looser prompt. Total failure yields ("", nil): the caller treats a
// missing transcription as "nothing heard", never as a user-facing crash.
func (g *GeminiClient) TranscribeAudio(ctx context.Context, audioPath string) (string, error) {
	if _, err := os.Stat(audioPath); err != nil {
		g.logger.Warn("audio file not found", "path", audioPath, "error", err)
		return "", nil
	}

	mimeType := "audio/ogg"
	if needsReencode(audioPath) {
		wavPath, err := g.reencodeToWAV(ctx, audioPath)
		if err != nil {
			g.logger.Warn("audio re-encode failed", "path", audioPath, "error", err)
			return "", nil
		}
		defer func() { _ = os.Remove(wavPath) }()
		audioPath = wavPath
		mimeType = "audio/wav"
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		g.logger.Warn("failed to read audio file", "path", audioPath, "error", err)
		return "", nil
	}

	text, err := g.transcribe(ctx, transcribePrompt, mimeType, data)
	if err == nil && text != "" {
		return text, nil
	}
	g.logger.Warn("primary transcription failed, trying audio-understanding fallback",
		"path", audioPath,
		"error", err)

	text, err = g.transcribe(ctx, transcribeFallbackPrompt, mimeType, data)
	if err != nil {
		g.logger.Warn("transcription fallback failed", "path", audioPath, "error", err)
		return "", nil
	}

	return text, nil
}

// transcribeOnce performs a single transcription request without retries.
// Retrying is left to the fallback chain above.
func (g *GeminiClient) transcribeOnce(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	if err := g.rateLimiter.wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
		},
	}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}

	return strings.TrimSpace(resp.Text()), nil
}

// needsReencode reports whether the file is a compressed voice container
// that should be converted to PCM before transcription.
func needsReencode(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".oga") ||
		strings.HasSuffix(lower, ".ogg") ||
		strings.HasSuffix(lower, ".opus") ||
		strings.HasSuffix(lower, ".amr")
}

// reencodeToWAV shells out to ffmpeg to produce a 16 kHz mono PCM WAV.
// The temp file is the caller's to remove.
func (g *GeminiClient) reencodeToWAV(ctx context.Context, srcPath string) (string, error) {
	tmp, err := os.CreateTemp("", "ledgerpal-voice-*.wav")
	if err != nil {
		return "", fmt.Errorf("creating temp wav: %w", err)
	}
	dstPath := tmp.Name()
	_ = tmp.Close()

	cmd := exec.CommandContext(ctx, g.ffmpegPath,
		"-y",
		"-i", srcPath,
		"-ar", "16000",
		"-ac", "1",
		dstPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("ffmpeg: %w: %s", err, string(out))
	}

	return dstPath, nil
}
