package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"replyrouter/internal/config"
)

// Prompt is the fixed instruction template sent per classification call.
// The model must answer with exactly one tagged vote.
const Prompt = `You are a procurement assistant. Label the answer.
EMAIL: "%s"

Return only one tag:
<ANSWER>1</ANSWER>  = positive   (can fulfil within the lead time)
<ANSWER>0</ANSWER>  = neutral    (alternative / uncertain / too slow)
<ANSWER>-1</ANSWER> = negative   (cannot help)
`

// Client talks to an OpenAI-compatible chat completions endpoint
// (a local Ollama works out of the box).
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.LLMTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.LLMRateLimitRPS),
	}
}

// Verdict issues one completion call for the reply and extracts the raw
// -1/0/1 vote. Transport failures come back as *TransportError, responses
// without a vote token as *ParseError.
func (c *Client) Verdict(ctx context.Context, reply string) (int, error) {
	response, err := c.complete(ctx, fmt.Sprintf(Prompt, reply))
	if err != nil {
		return 0, err
	}
	return ExtractVerdict(response)
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.cfg.LLMModel,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(c.cfg.LLMBaseURL, "/") + "/chat/completions"

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if strings.TrimSpace(c.cfg.LLMAPIKey) != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.LLMAPIKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", &TransportError{Err: ctx.Err()}
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("model status %d", resp.StatusCode)
				continue
			}
			return "", &TransportError{Err: fmt.Errorf("model status=%d body=%s", resp.StatusCode, string(body))}
		}

		var parsed chatResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", &TransportError{Err: fmt.Errorf("decode completion: %w", err)}
		}
		if parsed.Error != nil {
			return "", &TransportError{Err: errors.New(parsed.Error.Message)}
		}
		if len(parsed.Choices) == 0 {
			return "", &TransportError{Err: errors.New("completion has no choices")}
		}
		return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
	}

	if lastErr == nil {
		lastErr = errors.New("model request failed")
	}
	return "", &TransportError{Err: lastErr}
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
