package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"ppe-monitor/internal/logging"
	"ppe-monitor/internal/models"
	"ppe-monitor/pkg/frame"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// GeminiClient calls Gemini on Vertex AI with a JSON response schema.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *logrus.Logger
}

func NewGeminiClient(ctx context.Context, project, location, model string) (*GeminiClient, error) {
	return newGeminiClient(ctx, &genai.ClientConfig{
		Project:  project,
		Location: location,
		Backend:  genai.BackendVertexAI,
	}, model)
}

func newGeminiClient(ctx context.Context, cc *genai.ClientConfig, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GeminiClient{
		client: client,
		model:  model,
		logger: logging.New(),
	}, nil
}

func (c *GeminiClient) Name() string {
	return "gemini"
}

func verdictSchema() *genai.GenerateContentConfig {
	schema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"workers_detected": {
				Type:        genai.TypeInteger,
				Description: "number of workers visible",
			},
			"violations": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"worker_description": {
							Type:        genai.TypeString,
							Description: "brief description of the worker",
						},
						"missing_ppe": {
							Type:  genai.TypeArray,
							Items: &genai.Schema{Type: genai.TypeString},
						},
					},
					Required: []string{"worker_description", "missing_ppe"},
				},
			},
			"overall_compliance": {
				Type: genai.TypeString,
				Enum: []string{
					models.ComplianceCompliant,
					models.ComplianceViolationsDetected,
					models.ComplianceNoWorkers,
				},
			},
		},
		Required: []string{"workers_detected", "violations", "overall_compliance"},
	}
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
}

func (c *GeminiClient) Classify(ctx context.Context, f frame.Frame) (*models.AnalysisResult, error) {
	parts := []*genai.Part{
		{Text: systemPrompt},
		{Text: userPrompt},
		{InlineData: &genai.Blob{Data: f.Data, MIMEType: frame.MIMEType}},
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{{Parts: parts}}, verdictSchema())
	if err != nil {
		c.logger.WithError(err).Warn("Gemini request failed")
		return nil, geminiError(ctx, err)
	}

	text, err := result.Text()
	if err != nil {
		return nil, newError(ErrResponseInvalid, 0, "no text in response", err)
	}
	return ParseResponse(text)
}

// geminiError maps a GenerateContent failure to its failure class. The SDK reports
// 4xx as ClientError and 5xx as ServerError, both carrying the status code.
func geminiError(ctx context.Context, err error) *Error {
	var clientErr genai.ClientError
	if errors.As(err, &clientErr) {
		return newError(kindForStatus(clientErr.Code), clientErr.Code, clientErr.Status, err)
	}
	var serverErr genai.ServerError
	if errors.As(err, &serverErr) {
		return newError(ErrUpstream, serverErr.Code, serverErr.Status, err)
	}
	if ctx.Err() != nil {
		return transportError(ctx.Err())
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return transportError(err)
	}
	return newError(ErrUpstream, 0, "", err)
}
