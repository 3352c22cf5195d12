package gateway

import (
	"context"
	"sync"

	"github.com/ledgerpal/ledgerpal/internal/model"
)

// MockClient is a scriptable test implementation of Client. Responses are
// consumed in order across Text and Multimodal calls; when the script runs
// out, the last response repeats.
type MockClient struct {
	Responses   []string
	Err         error
	Transcripts map[string]string // audio path → transcript

	mu    sync.Mutex
	calls []MockCall
	next  int
}

// MockCall records one request made against the mock.
type MockCall struct {
	Prompt string
	Media  []model.MediaAttachment
}

// Text returns the next scripted response.
func (m *MockClient) Text(_ context.Context, prompt string) (string, error) {
	return m.respond(prompt, nil)
}

// Multimodal returns the next scripted response.
func (m *MockClient) Multimodal(_ context.Context, prompt string, media []model.MediaAttachment) (string, error) {
	return m.respond(prompt, media)
}

// TranscribeAudio returns the scripted transcript for the path, if any.
func (m *MockClient) TranscribeAudio(_ context.Context, audioPath string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Transcripts[audioPath], nil
}

// Calls returns a copy of every recorded request.
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockClient) respond(prompt string, media []model.MediaAttachment) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{Prompt: prompt, Media: media})

	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	idx := m.next
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.next++
	return m.Responses[idx], nil
}
