// Package openai implements the exercise provider against the OpenAI
// chat completions API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"resty.dev/v3"

	"gametime/internal/exercise"
)

type Client struct {
	httpClient       *resty.Client
	model            string
	maxRetryAttempts uint
}

func NewClient(apiKey, model string, retryAttempts uint) *Client {
	client := resty.New()
	client.SetBaseURL("https://api.openai.com/v1")
	client.SetHeader("Authorization", "Bearer "+apiKey)
	client.SetHeader("Content-Type", "application/json")

	return &Client{
		httpClient:       client,
		model:            model,
		maxRetryAttempts: retryAttempts,
	}
}

func (client *Client) Close() error {
	return client.httpClient.Close()
}

type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type ChoiceMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Retry on JSON parsing errors as they might be due to incomplete responses
	errStr := err.Error()
	if strings.Contains(errStr, "json.Unmarshal") || strings.Contains(errStr, "unexpected end of JSON input") {
		return true
	}

	// Retry on network-related errors
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "i/o timeout") {
		return true
	}

	// Retry on 5xx errors (server errors)
	if strings.Contains(errStr, "response error 5") {
		return true
	}

	// Retry on rate limiting (429)
	if strings.Contains(errStr, "response error 429") {
		return true
	}

	return false
}

func (client *Client) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(
		func() error {
			if err := fn(); err != nil {
				if !isRetryableError(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(client.maxRetryAttempts+1),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	)
}

// chatCompletion posts one request and returns the first choice content.
func (client *Client) chatCompletion(ctx context.Context, requestBody ChatCompletionRequest) (string, error) {
	response, err := client.httpClient.R().
		SetContext(ctx).
		SetBody(requestBody).
		SetResult(&ChatCompletionResponse{}).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("httpClient.Post > %w", err)
	}
	if response.IsError() {
		return "", fmt.Errorf("response error %d: %s", response.StatusCode(), response.String())
	}

	responseBody := response.Result().(*ChatCompletionResponse)
	if responseBody == nil || len(responseBody.Choices) == 0 {
		return "", fmt.Errorf("empty response body or choices: %s", response.String())
	}

	content := responseBody.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty response content: %s", response.String())
	}
	slog.Default().Debug("openai response content",
		"request", requestBody,
		"response", responseBody,
	)
	return content, nil
}

const generateSystemPrompt = `You generate math exercises for a middle school student.

Return ONLY a JSON array. Each element:
- "question": the full question text in plain language
- "answer": the exact expected answer as a string; numeric answers as a plain number
- "reward_minutes": a number between 0.5 and 5 proportional to difficulty
- "difficulty": 1 (easy), 2 (medium) or 3 (hard)

Mix arithmetic, fractions, percentages and short word problems. Each
question must be self-contained and answerable with a single value or a
short phrase. No text outside the JSON array.`

const challengeSystemPrompt = `You generate one hard competition-style math problem for a motivated
middle school student.

Return ONLY a JSON array with exactly one element:
- "question": the full problem text in plain language
- "answer": the exact expected answer as a string
- "reward_minutes": a number between 3 and 5
- "difficulty": 3

The problem should require two or three reasoning steps but no tools.
No text outside the JSON array.`

// GenerateQuestions produces count regular questions.
func (client *Client) GenerateQuestions(ctx context.Context, count int) ([]exercise.Question, error) {
	var result []exercise.Question
	err := client.withRetry(ctx, func() error {
		questions, err := client.generate(ctx, generateSystemPrompt,
			fmt.Sprintf("Generate %d questions.", count))
		if err != nil {
			return err
		}
		if len(questions) != count {
			return fmt.Errorf("expected %d questions, got %d", count, len(questions))
		}
		result = questions
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GenerateChallenge produces the day's single competition question.
func (client *Client) GenerateChallenge(ctx context.Context) (exercise.Question, error) {
	var result exercise.Question
	err := client.withRetry(ctx, func() error {
		questions, err := client.generate(ctx, challengeSystemPrompt, "Generate the problem.")
		if err != nil {
			return err
		}
		if len(questions) != 1 {
			return fmt.Errorf("expected 1 challenge question, got %d", len(questions))
		}
		result = questions[0]
		return nil
	})
	if err != nil {
		return exercise.Question{}, err
	}
	return result, nil
}

func (client *Client) generate(ctx context.Context, systemPrompt, userPrompt string) ([]exercise.Question, error) {
	content, err := client.chatCompletion(ctx, ChatCompletionRequest{
		Model:       client.model,
		Temperature: 0.7,
		Messages: []Message{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return nil, err
	}

	var questions []exercise.Question
	if err := json.NewDecoder(strings.NewReader(content)).Decode(&questions); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(%s) > %w", content, err)
	}
	return questions, nil
}

const judgeSystemPrompt = `You judge whether a student's answer to a math question is correct.

The expected answer is authoritative. Accept equivalent forms: a
fraction for its decimal value, different unit spellings, extra words
around the right value. Reject answers with a different value or that
dodge the question.

OUTPUT FORMAT (JSON only):
{"correct": true | false, "reason": "<brief explanation>"}

Do NOT include any text outside the JSON.`

type judgement struct {
	Correct bool   `json:"correct"`
	Reason  string `json:"reason"`
}

// Judge asks the model whether a non-numeric answer matches the
// expected one.
func (client *Client) Judge(ctx context.Context, question, expected, given string) (bool, error) {
	userMessage := fmt.Sprintf(`Question: %s
Expected answer: %s
Student's answer: %s

Judge this answer.`, question, expected, given)

	var result judgement
	err := client.withRetry(ctx, func() error {
		content, err := client.chatCompletion(ctx, ChatCompletionRequest{
			Model:       client.model,
			Temperature: 0.1,
			Messages: []Message{
				{Role: RoleSystem, Content: judgeSystemPrompt},
				{Role: RoleUser, Content: userMessage},
			},
		})
		if err != nil {
			return err
		}
		if err := json.NewDecoder(strings.NewReader(content)).Decode(&result); err != nil {
			return fmt.Errorf("json.Unmarshal(%s) > %w", content, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return result.Correct, nil
}

const explainSystemPrompt = `You explain to a middle school student why their answer to a math
question is wrong and how to solve it correctly.

Write three or four short sentences in plain language. Walk through the
solution steps. Do not mention that you are an AI. Plain text only.`

// Explain produces a short correction for a wrong answer.
func (client *Client) Explain(ctx context.Context, question, given string) (string, error) {
	userMessage := fmt.Sprintf(`Question: %s
Student's wrong answer: %s

Explain the correct solution.`, question, given)

	var result string
	err := client.withRetry(ctx, func() error {
		content, err := client.chatCompletion(ctx, ChatCompletionRequest{
			Model:       client.model,
			Temperature: 0.3,
			Messages: []Message{
				{Role: RoleSystem, Content: explainSystemPrompt},
				{Role: RoleUser, Content: userMessage},
			},
		})
		if err != nil {
			return err
		}
		result = strings.TrimSpace(content)
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}
