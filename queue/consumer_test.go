package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConsumer records the shell lifecycle calls.
type fakeConsumer struct {
	connectErr error
	consumeErr error
	body       json.RawMessage

	connected    bool
	queueDeleted bool
	closed       bool
}

func (f *fakeConsumer) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeConsumer) ConsumeOne(ctx context.Context) (json.RawMessage, error) {
	return f.body, f.consumeErr
}

func (f *fakeConsumer) DeleteQueue() error {
	f.queueDeleted = true
	return nil
}

func (f *fakeConsumer) Close() error {
	f.closed = true
	return nil
}

func TestDrainOne_HappyPath(t *testing.T) {
	fake := &fakeConsumer{body: json.RawMessage(`{"id":"m1"}`)}

	body, err := DrainOne(context.Background(), fake)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"m1"}`, string(body))
	assert.True(t, fake.queueDeleted, "queue must be deleted after consumption")
	assert.True(t, fake.closed)
}

func TestDrainOne_EmptyQueueStillDeletes(t *testing.T) {
	fake := &fakeConsumer{body: nil}

	body, err := DrainOne(context.Background(), fake)
	require.NoError(t, err)
	assert.Nil(t, body)
	assert.True(t, fake.queueDeleted, "empty queue still proceeds to deletion")
	assert.True(t, fake.closed)
}

func TestDrainOne_ConsumeErrorStillDeletes(t *testing.T) {
	fake := &fakeConsumer{consumeErr: errors.New("channel gone")}

	_, err := DrainOne(context.Background(), fake)
	require.Error(t, err)
	assert.True(t, fake.queueDeleted, "queue deletion is attempted on error paths")
	assert.True(t, fake.closed)
}

func TestDrainOne_ConnectErrorClosesWithoutDelete(t *testing.T) {
	fake := &fakeConsumer{connectErr: errors.New("dial refused")}

	_, err := DrainOne(context.Background(), fake)
	require.Error(t, err)
	assert.False(t, fake.queueDeleted)
	assert.True(t, fake.closed)
}

func TestMockConsumer_SingleMessage(t *testing.T) {
	m := NewMockConsumer("voice-cloning-queue", nil)
	require.NoError(t, m.Connect(context.Background()))

	first, err := m.ConsumeOne(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := m.ConsumeOne(context.Background())
	require.NoError(t, err)
	assert.Nil(t, second, "mock source yields exactly one message")
}
