package gateway

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAudioTestClient(t *testing.T, ffmpegPath string) *GeminiClient {
	t.Helper()
	g := &GeminiClient{
		rateLimiter: newRateLimiter(100),
		ffmpegPath:  ffmpegPath,
		logger:      slog.Default(),
	}
	t.Cleanup(func() { g.rateLimiter.Close() })
	return g
}

// fakeFFmpeg writes an executable script that creates its last argument,
// mimicking a successful re-encode without a real ffmpeg install.
func fakeFFmpeg(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\nfor a in \"$@\"; do dst=$a; done\n: > \"$dst\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func writeAudioFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("not really audio"), 0640))
	return path
}

func tempWAVCount(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "ledgerpal-voice-*.wav"))
	require.NoError(t, err)
	return len(matches)
}

func TestNeedsReencode(t *testing.T) {
	assert.True(t, needsReencode("/tmp/media0.oga"))
	assert.True(t, needsReencode("/tmp/media0.OGG"))
	assert.True(t, needsReencode("/tmp/voice.opus"))
	assert.True(t, needsReencode("/tmp/voice.amr"))
	assert.False(t, needsReencode("/tmp/voice.wav"))
	assert.False(t, needsReencode("/tmp/voice.mp3"))
	assert.False(t, needsReencode("/tmp/voice.m4a"))
}

func TestTranscribeAudioMissingFile(t *testing.T) {
	g := newAudioTestClient(t, "ffmpeg")

	text, err := g.TranscribeAudio(context.Background(), "/does/not/exist.oga")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestTranscribeAudioReencodeFailureCleansUp(t *testing.T) {
	g := newAudioTestClient(t, "/definitely/not/ffmpeg")
	g.transcribe = func(_ context.Context, _, _ string, _ []byte) (string, error) {
		t.Fatal("transcription must not run when the re-encode fails")
		return "", nil
	}
	src := writeAudioFile(t, "voice.oga")
	before := tempWAVCount(t)

	text, err := g.TranscribeAudio(context.Background(), src)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, before, tempWAVCount(t))
}

func TestTranscribeAudioReencodesThenTranscribes(t *testing.T) {
	g := newAudioTestClient(t, fakeFFmpeg(t))

	var gotMIME string
	g.transcribe = func(_ context.Context, prompt, mimeType string, _ []byte) (string, error) {
		gotMIME = mimeType
		assert.Equal(t, transcribePrompt, prompt)
		return "pay rent tomorrow", nil
	}
	src := writeAudioFile(t, "voice.oga")
	before := tempWAVCount(t)

	text, err := g.TranscribeAudio(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "pay rent tomorrow", text)
	assert.Equal(t, "audio/wav", gotMIME)
	// The intermediate WAV is gone even on success.
	assert.Equal(t, before, tempWAVCount(t))
}

func TestTranscribeAudioFallbackChain(t *testing.T) {
	t.Run("fallback answers when the strict prompt fails", func(t *testing.T) {
		g := newAudioTestClient(t, "ffmpeg")

		var prompts []string
		g.transcribe = func(_ context.Context, prompt, _ string, _ []byte) (string, error) {
			prompts = append(prompts, prompt)
			if prompt == transcribePrompt {
				return "", errors.New("model refused")
			}
			return "spent twenty on lunch", nil
		}
		src := writeAudioFile(t, "voice.wav")

		text, err := g.TranscribeAudio(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, "spent twenty on lunch", text)
		assert.Equal(t, []string{transcribePrompt, transcribeFallbackPrompt}, prompts)
	})

	t.Run("empty primary transcript also falls through", func(t *testing.T) {
		g := newAudioTestClient(t, "ffmpeg")
		g.transcribe = func(_ context.Context, prompt, _ string, _ []byte) (string, error) {
			if prompt == transcribePrompt {
				return "", nil
			}
			return "hello", nil
		}
		src := writeAudioFile(t, "voice.wav")

		text, err := g.TranscribeAudio(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, "hello", text)
	})

	t.Run("total failure yields empty text and nil error", func(t *testing.T) {
		g := newAudioTestClient(t, "ffmpeg")
		g.transcribe = func(_ context.Context, _, _ string, _ []byte) (string, error) {
			return "", errors.New("model down")
		}
		src := writeAudioFile(t, "voice.wav")

		text, err := g.TranscribeAudio(context.Background(), src)
		require.NoError(t, err)
		assert.Empty(t, text)
	})
}
