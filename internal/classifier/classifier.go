// Package classifier sends camera frames to a multimodal model and turns its reply
// into a validated PPE compliance verdict.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"ppe-monitor/internal/config"
	"ppe-monitor/internal/models"
	"ppe-monitor/pkg/frame"

	"github.com/anthropics/anthropic-sdk-go/option"
)

// Classifier judges a single encoded frame. Implementations never touch persisted state.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, f frame.Frame) (*models.AnalysisResult, error)
}

// New builds the backend selected by cfg.Provider.
func New(ctx context.Context, cfg config.ClassifierConfig, httpClient *http.Client) (Classifier, error) {
	switch cfg.Provider {
	case config.ProviderGateway:
		return NewGatewayClient(cfg.URL, cfg.APIKey, cfg.Model, httpClient), nil
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg.GeminiProject, cfg.GeminiLocation, cfg.Model)
	case config.ProviderAnthropic:
		var opts []option.RequestOption
		if cfg.URL != "" {
			opts = append(opts, option.WithBaseURL(cfg.URL))
		}
		return NewAnthropicClient(cfg.APIKey, cfg.Model, httpClient, opts...), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
}

// transportError classifies an error raised before any HTTP status was received.
func transportError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrTimeout, 0, "", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(ErrTimeout, 0, "", err)
	}
	return newError(ErrNetwork, 0, "", err)
}
