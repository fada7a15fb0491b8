package synthesis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAITestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOpenAIClient(&OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gpt-image-1",
		Timeout: 5 * time.Second,
	})
}

func TestOpenAIClient_Synthesize_Success(t *testing.T) {
	imageBytes := []byte("generated-image")

	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/edits", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "redecorate", r.FormValue("prompt"))
		assert.Equal(t, "gpt-image-1", r.FormValue("model"))

		file, _, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"b64_json": base64.StdEncoding.EncodeToString(imageBytes)},
			},
		})
	})

	img, err := client.Synthesize(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, imageBytes, img.Data)
	assert.Equal(t, "image/png", img.MimeType)
}

func TestOpenAIClient_Synthesize_ModerationBlocked(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "Your request was rejected by the safety system",
				"type":    "invalid_request_error",
				"code":    "moderation_blocked",
			},
		})
	})

	_, err := client.Synthesize(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrContentBlocked)
}

func TestOpenAIClient_Synthesize_RateLimited(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Synthesize(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestOpenAIClient_Synthesize_NoImage(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"url": "https://example.com/image.png"}},
		})
	})

	_, err := client.Synthesize(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestOpenAIClient_Synthesize_GenericError(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "server error", "type": "server_error"},
		})
	})

	_, err := client.Synthesize(context.Background(), testRequest())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrContentBlocked)
}
