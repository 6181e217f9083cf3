package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"resty.dev/v3"
)

func chatResponse(content string) ChatCompletionResponse {
	return ChatCompletionResponse{
		ID:     "chatcmpl-123",
		Object: "chat.completion",
		Model:  "gpt-4o-mini",
		Choices: []Choice{
			{
				Index: 0,
				Message: ChoiceMessage{
					Role:    RoleAssistant,
					Content: content,
				},
				FinishReason: "stop",
			},
		},
	}
}

func newTestClient(server *httptest.Server) *Client {
	return &Client{
		httpClient:       resty.New().SetBaseURL(server.URL),
		model:            "gpt-4o-mini",
		maxRetryAttempts: 1,
	}
}

func TestClient_GenerateQuestions(t *testing.T) {
	tests := []struct {
		name              string
		count             int
		mockServerHandler func(t *testing.T, w http.ResponseWriter, r *http.Request)
		wantLen           int
		wantError         bool
	}{
		{
			name:  "success",
			count: 2,
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/chat/completions", r.URL.Path)

				var reqBody ChatCompletionRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
				assert.Equal(t, "gpt-4o-mini", reqBody.Model)
				assert.NotEmpty(t, reqBody.Messages)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(chatResponse(`[
					{"question": "What is 3 + 4?", "answer": "7", "reward_minutes": 1, "difficulty": 1},
					{"question": "What is 20% of 50?", "answer": "10", "reward_minutes": 2, "difficulty": 2}
				]`))
			},
			wantLen: 2,
		},
		{
			name:  "wrong question count",
			count: 3,
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(chatResponse(`[{"question": "q", "answer": "1"}]`))
			},
			wantError: true,
		},
		{
			name:  "non-JSON content",
			count: 1,
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(chatResponse("Sure! Here are your questions."))
			},
			wantError: true,
		},
		{
			name:  "server error",
			count: 1,
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.mockServerHandler(t, w, r)
			}))
			defer server.Close()

			client := newTestClient(server)

			got, err := client.GenerateQuestions(context.Background(), tt.count)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, tt.wantLen)
			assert.Equal(t, "What is 3 + 4?", got[0].Text)
			assert.Equal(t, "7", got[0].Answer)
			assert.Equal(t, 2.0, got[1].RewardMinutes)
		})
	}
}

func TestClient_GenerateChallenge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(chatResponse(`[
			{"question": "Hard problem", "answer": "42", "reward_minutes": 4, "difficulty": 3}
		]`))
	}))
	defer server.Close()

	client := newTestClient(server)

	got, err := client.GenerateChallenge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hard problem", got.Text)
	assert.Equal(t, 3, got.Difficulty)
}

func TestClient_Judge(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantCorrect bool
		wantError   bool
	}{
		{
			name:        "accepts",
			content:     `{"correct": true, "reason": "equivalent forms"}`,
			wantCorrect: true,
		},
		{
			name:    "rejects",
			content: `{"correct": false, "reason": "different value"}`,
		},
		{
			name:      "invalid content",
			content:   "not json",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(chatResponse(tt.content))
			}))
			defer server.Close()

			client := newTestClient(server)

			got, err := client.Judge(context.Background(), "What is 3/4 as a decimal?", "0.75", "three quarters")
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCorrect, got)
		})
	}
}

func TestClient_Explain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(chatResponse("Add 3 and 4 to get 7.\n"))
	}))
	defer server.Close()

	client := newTestClient(server)

	got, err := client.Explain(context.Background(), "What is 3 + 4?", "8")
	require.NoError(t, err)
	assert.Equal(t, "Add 3 and 4 to get 7.", got)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(fmt.Errorf("response error 401: unauthorized")))
	assert.True(t, isRetryableError(fmt.Errorf("response error 429: rate limited")))
	assert.True(t, isRetryableError(fmt.Errorf("response error 503: unavailable")))
	assert.True(t, isRetryableError(fmt.Errorf("dial tcp: connection refused")))
	assert.True(t, isRetryableError(fmt.Errorf("json.Unmarshal(...) > unexpected end of JSON input")))
}
