package oracle

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

// ChatModelConfig holds the configuration for the oracle chat model.
type ChatModelConfig struct {
	APIKey  string
	BaseURL string
	Model   model.OracleModelConfig
}

// NewGeminiChatModel creates the Gemini chat model backing the oracle.
func NewGeminiChatModel(ctx context.Context, cfg ChatModelConfig) (*gemini.ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	temperature := cfg.Model.Temperature
	maxTokens := cfg.Model.MaxTokens
	mc := &gemini.Config{
		Client:      client,
		Model:       cfg.Model.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
	if cfg.Model.ThinkingBudget > 0 {
		mc.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(cfg.Model.ThinkingBudget)),
		}
	}

	cm, err := gemini.NewChatModel(ctx, mc)
	if err != nil {
		logx.Error().Err(err).Str("model", cfg.Model.Model).Msg("Error creating oracle model")
		return nil, fmt.Errorf("error creating oracle model: %w", err)
	}
	return cm, nil
}
