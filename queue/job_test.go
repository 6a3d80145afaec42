package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapreel/zapreel/domain"
)

func TestParseJob_VoiceCloning(t *testing.T) {
	body := json.RawMessage(`{
		"id": "req-1",
		"type": "voice_cloning",
		"video_id": "video-1",
		"messages": [
			{"text": "Oi!", "from_user": "Ana"},
			{"text": "E aí", "from_user": "Bruno"}
		],
		"voice_mapping": {"Ana": "voice-cloning/ana.wav"},
		"use_voice_cloning": true
	}`)

	job, err := ParseJob(body)
	require.NoError(t, err)
	assert.Equal(t, KindVoiceCloning, job.Kind)
	require.NotNil(t, job.Voice)
	assert.Equal(t, "video-1", job.Voice.VideoID)
	assert.Len(t, job.Voice.Messages, 2)
	assert.Equal(t, "voice-cloning/ana.wav", job.Voice.VoiceMapping["Ana"])
}

func TestParseJob_VoiceCloningWithoutTag(t *testing.T) {
	// The runner strips the envelope type in some paths; video_id plus
	// messages is enough to classify.
	body := json.RawMessage(`{
		"video_id": "video-2",
		"messages": [{"text": "Oi", "from_user": "Ana"}]
	}`)

	job, err := ParseJob(body)
	require.NoError(t, err)
	assert.Equal(t, KindVoiceCloning, job.Kind)
}

func TestParseJob_EmptyMessages(t *testing.T) {
	body := json.RawMessage(`{"video_id": "video-3", "messages": []}`)

	_, err := ParseJob(body)
	require.Error(t, err)
	assert.True(t, domain.IsProtocolError(err))
}

func TestParseJob_Single(t *testing.T) {
	body := json.RawMessage(`{
		"id": "req-2",
		"type": "single",
		"text": "Olá!",
		"voice_file": "voices/narrator.wav",
		"output_filename": "single.wav"
	}`)

	job, err := ParseJob(body)
	require.NoError(t, err)
	assert.Equal(t, KindSingle, job.Kind)
	require.NotNil(t, job.Single)
	assert.Equal(t, "Olá!", job.Single.Text)
}

func TestParseJob_BatchDefault(t *testing.T) {
	// Untagged messages without video_id fall back to batch, matching the
	// legacy producer.
	body := json.RawMessage(`{
		"messages": [{"text": "Oi", "from_user": "Ana"}]
	}`)

	job, err := ParseJob(body)
	require.NoError(t, err)
	assert.Equal(t, KindBatch, job.Kind)
	require.NotNil(t, job.Batch)
	assert.Len(t, job.Batch.Messages, 1)
}

func TestParseJob_UnknownTag(t *testing.T) {
	body := json.RawMessage(`{"type": "video_call", "text": "x"}`)

	_, err := ParseJob(body)
	require.Error(t, err)
	assert.True(t, domain.IsProtocolError(err))
}

func TestVoiceJobRoundTrip(t *testing.T) {
	job := domain.VoiceJob{
		VideoID: "video-9",
		Messages: []domain.ChatMessage{
			{Text: "Oi!", FromUser: "Ana"},
			{Text: "Tudo bem?", FromUser: "Bruno"},
		},
		VoiceMapping:    map[string]string{"Ana": "k_a", "Bruno": "k_b"},
		UseVoiceCloning: true,
		OutputDir:       "/tmp/out",
	}

	body, err := json.Marshal(job)
	require.NoError(t, err)

	var got domain.VoiceJob
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, job, got)
}

func TestParseJob_MockFixture(t *testing.T) {
	job, err := ParseJob(json.RawMessage(VoiceFixture))
	require.NoError(t, err)
	assert.Equal(t, KindVoiceCloning, job.Kind)
	assert.Len(t, job.Voice.Messages, 4)
	assert.True(t, job.Voice.UseVoiceCloning)
}
