package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"stream-operators/src/helpers"
	"stream-operators/src/interfaces"
	"stream-operators/src/logger"
	"stream-operators/src/models"
)

const defaultMaxTokens = 1000

// -----------------------------------------------------------------------------

// OpenAIReasoner sends single-message chat completions to an OpenAI-compatible endpoint.
type OpenAIReasoner struct {
	cfg     models.MReasoningConfig
	network interfaces.INetworkManager
	logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewOpenAIReasoner(cfg models.MReasoningConfig, network interfaces.INetworkManager, log *logger.Logger) *OpenAIReasoner {
	if log == nil {
		log = logger.NewLogger(nil, "OpenAIReasoner")
	}
	return &OpenAIReasoner{cfg: cfg, network: network, logger: log}
}

// -----------------------------------------------------------------------------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// -----------------------------------------------------------------------------

func (r *OpenAIReasoner) completionsURL() string {
	url := strings.TrimRight(r.cfg.BaseURL, "/")
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

// Complete performs exactly one request; retries belong to Client.
func (r *OpenAIReasoner) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(r.cfg.APIKey) == "" {
		return "", helpers.NewReasoningServiceError("reasoning api key is not configured", nil)
	}

	maxTokens := r.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	body, err := json.Marshal(chatRequest{
		Model:     r.cfg.Model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}

	r.logger.Debug("POST %s model=%s prompt_chars=%d", r.completionsURL(), r.cfg.Model, len(prompt))
	data, err := r.network.Post(ctx, r.completionsURL(), map[string]string{
		"Authorization": "Bearer " + r.cfg.APIKey,
	}, body)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", helpers.NewReasoningServiceError("completion request failed", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", helpers.NewReasoningServiceError("failed to decode completion response", err)
	}
	if resp.Error != nil {
		return "", helpers.NewReasoningServiceError(fmt.Sprintf("completion error (%s)", resp.Error.Type), fmt.Errorf("%s", resp.Error.Message))
	}
	if len(resp.Choices) == 0 {
		return "", helpers.NewReasoningServiceError("completion response has no choices", nil)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	r.logger.Debug("response_content: %s", content)
	return content, nil
}
