package classifier

import (
	"context"
	"errors"
	"net/http"
	"ppe-monitor/internal/logging"
	"ppe-monitor/internal/models"
	"ppe-monitor/pkg/frame"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
)

// AnthropicClient uses the Messages API with a base64 image block.
type AnthropicClient struct {
	client anthropic.Client
	model  string
	logger *logrus.Logger
}

// NewAnthropicClient builds the client; extra options such as option.WithBaseURL are
// applied after the defaults.
func NewAnthropicClient(apiKey, model string, httpClient *http.Client, extra ...option.RequestOption) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// retries are the scheduler's job
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	opts = append(opts, extra...)
	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		model:  model,
		logger: logging.New(),
	}
}

func (c *AnthropicClient) Name() string {
	return "anthropic"
}

func (c *AnthropicClient) Classify(ctx context.Context, f frame.Frame) (*models.AnalysisResult, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(userPrompt),
				anthropic.NewImageBlockBase64(frame.MIMEType, f.Base64()),
			),
		},
		Temperature: anthropic.Float(temperature),
	})
	if err != nil {
		c.logger.WithError(err).Warn("Anthropic request failed")
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, newError(kindForStatus(apiErr.StatusCode), apiErr.StatusCode, "", err)
		}
		return nil, transportError(err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			c.logger.WithFields(logrus.Fields{
				"size":       len(block.Text),
				"tokens_in":  message.Usage.InputTokens,
				"tokens_out": message.Usage.OutputTokens,
			}).Debug("Anthropic reply received")
			return ParseResponse(block.Text)
		}
	}
	return nil, invalid("no text content in response")
}
