package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiBody(text string) []byte {
	b, _ := json.Marshal(map[string]interface{}{
		"candidates": []map[string]interface{}{
			{"content": map[string]interface{}{
				"parts": []map[string]string{{"text": text}},
			}},
		},
	})
	return b
}

func TestGenerateDescription(t *testing.T) {
	var gotPath string
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(geminiBody("Do the thing carefully."))
	}))
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL))
	got := c.GenerateDescription(context.Background(), "Ship the release")

	assert.Equal(t, "Do the thing carefully.", got)
	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", gotPath)
	require.Len(t, gotReq.Contents, 1)
	require.Len(t, gotReq.Contents[0].Parts, 1)
	assert.Contains(t, gotReq.Contents[0].Parts[0].Text, `"Ship the release"`)
}

func TestSuggestSubtasksPromptCarriesTaskContext(t *testing.T) {
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write(geminiBody("- [ ] one\n- [ ] two"))
	}))
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL))
	got := c.SuggestSubtasks(context.Background(), "Ship it", "cut a tag first")

	assert.Equal(t, "- [ ] one\n- [ ] two", got)
	prompt := gotReq.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, `"Ship it"`)
	assert.Contains(t, prompt, `"cut a tag first"`)
}

func TestCompleteFailsSoft(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
		},
		{
			name: "no candidates",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"candidates":[]}`))
			},
		},
		{
			name: "empty text",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write(geminiBody(""))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := New("test-key", WithBaseURL(srv.URL))
			assert.Equal(t, Fallback, c.GenerateDescription(context.Background(), "anything"))
		})
	}
}

func TestCompleteUnreachableBackend(t *testing.T) {
	c := New("test-key", WithBaseURL("http://127.0.0.1:1"))
	assert.Equal(t, Fallback, c.GenerateDescription(context.Background(), "anything"))
}

func TestCompleteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write(geminiBody("too late"))
	}))
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))
	assert.Equal(t, Fallback, c.GenerateDescription(context.Background(), "anything"))
}
