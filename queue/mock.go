package queue

import (
	"context"
	"encoding/json"
	"log/slog"
)

// VoiceFixture is the built-in voice-cloning job the mock consumer returns,
// for local runs without a broker.
const VoiceFixture = `{
	"id": "mock-request-1",
	"type": "voice_cloning",
	"video_id": "6f1c8f1e-0000-4000-8000-000000000001",
	"messages": [
		{"text": "Olá, sou o aluno Lucas!", "from_user": "aluno"},
		{"text": "Olá Lucas, sou a professora Marina!", "from_user": "professora"},
		{"text": "Como está indo com os estudos?", "from_user": "aluno"},
		{"text": "Muito bem! Continue assim!", "from_user": "professora"}
	],
	"voice_mapping": {
		"aluno": "voice-cloning/voz_aluno_lucas.wav",
		"professora": "voice-cloning/voz_referencia.wav"
	},
	"use_voice_cloning": true
}`

// MockConsumer replaces the broker with a single built-in message.
type MockConsumer struct {
	queueName string
	fixture   json.RawMessage
	consumed  bool
}

// NewMockConsumer returns a mock source for queueName. A nil fixture falls
// back to VoiceFixture.
func NewMockConsumer(queueName string, fixture json.RawMessage) *MockConsumer {
	if fixture == nil {
		fixture = json.RawMessage(VoiceFixture)
	}
	return &MockConsumer{queueName: queueName, fixture: fixture}
}

func (m *MockConsumer) Connect(ctx context.Context) error {
	slog.Info("mock mode: connected", "queue", m.queueName)
	return nil
}

func (m *MockConsumer) ConsumeOne(ctx context.Context) (json.RawMessage, error) {
	if m.consumed {
		return nil, nil
	}
	m.consumed = true
	slog.Info("mock mode: returning built-in message", "queue", m.queueName)
	return m.fixture, nil
}

func (m *MockConsumer) DeleteQueue() error {
	slog.Info("mock mode: deleted queue", "queue", m.queueName)
	return nil
}

func (m *MockConsumer) Close() error {
	slog.Info("mock mode: connection closed", "queue", m.queueName)
	return nil
}
