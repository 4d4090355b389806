package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"ppe-monitor/internal/logging"
	"ppe-monitor/internal/models"
	"ppe-monitor/pkg/frame"
	"strings"

	"github.com/sirupsen/logrus"
)

const maxErrorBody = 512

// GatewayClient talks to an OpenAI-compatible chat completions endpoint.
type GatewayClient struct {
	url    string
	apiKey string
	model  string
	http   *http.Client
	logger *logrus.Logger
}

func NewGatewayClient(url, apiKey, model string, httpClient *http.Client) *GatewayClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GatewayClient{
		url:    url,
		apiKey: apiKey,
		model:  model,
		http:   httpClient,
		logger: logging.New(),
	}
}

func (c *GatewayClient) Name() string {
	return "gateway"
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *GatewayClient) Classify(ctx context.Context, f frame.Frame) (*models.AnalysisResult, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: userPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: f.DataURL()}},
			}},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithError(err).Warn("Classifier request failed")
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(respBody))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   snippet,
		}).Warn("Classifier returned error status")
		return nil, newError(kindForStatus(resp.StatusCode), resp.StatusCode, snippet, nil)
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return nil, newError(ErrResponseInvalid, resp.StatusCode, "undecodable completion", err)
	}
	if len(chat.Choices) == 0 {
		return nil, invalid("no choices in completion")
	}

	content := chat.Choices[0].Message.Content
	c.logger.WithField("size", len(content)).Debug("Classifier reply received")

	return ParseResponse(content)
}
