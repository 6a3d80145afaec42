package screenshot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapreel/zapreel/domain"
)

func testMessages() []domain.ChatMessage {
	return []domain.ChatMessage{
		{Text: "Oi!", FromUser: "Ana"},
		{Text: "Tudo bem?", FromUser: "Bruno"},
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate-screenshots", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Messages, 2)
		assert.Equal(t, []string{"Ana", "Bruno"}, req.Participants)

		json.NewEncoder(w).Encode(map[string]any{
			"success":    true,
			"imagePaths": []string{"/shots/chat_1.png", "/shots/chat_2.png"},
			"imageUrls":  []string{"http://svc/chat_1.png", "http://svc/chat_2.png"},
			"messageCoordinates": []map[string]any{
				{"index": 0, "y": 120, "height": 48, "width": 300, "from": "Ana", "text": "Oi!"},
				{"index": 1, "y": 180, "height": 52, "width": 320, "from": "Bruno", "text": "Tudo bem?"},
			},
		})
	}))
	defer srv.Close()

	res, err := New(srv.URL).Generate(context.Background(), Request{
		Messages:     testMessages(),
		Participants: []string{"Ana", "Bruno"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/shots/chat_2.png", res.FinalImagePath())
	require.Len(t, res.Coordinates, 2)
	assert.Equal(t, 120, res.Coordinates[0].Y)
	assert.Equal(t, "Bruno", res.Coordinates[1].From)
}

func TestGenerate_CoordinateCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success":    true,
			"imagePaths": []string{"/shots/chat_1.png"},
			"messageCoordinates": []map[string]any{
				{"index": 0, "y": 120, "height": 48},
			},
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Generate(context.Background(), Request{Messages: testMessages()})
	require.Error(t, err)
	assert.True(t, domain.IsProtocolError(err))
}

func TestGenerate_ServiceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "browser crashed"})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Generate(context.Background(), Request{Messages: testMessages()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser crashed")
}

func TestGenerate_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Generate(context.Background(), Request{Messages: testMessages()})
	require.Error(t, err)

	var remote *domain.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusServiceUnavailable, remote.Status)
}

func TestGenerate_EmptyMessages(t *testing.T) {
	_, err := New("http://unused").Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, domain.IsProtocolError(err))
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.True(t, New(srv.URL).Health(context.Background()))
}
