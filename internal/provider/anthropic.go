package provider

import (
	"context"
	"encoding/base64"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/nutrilog-ai/nutrilog/internal/model"
)

// AnthropicProvider infers nutrition via the Anthropic Messages API.
// It is the primary backend in the default chain.
type AnthropicProvider struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewAnthropic creates an Anthropic-backed provider.
func NewAnthropic(apiKey, modelID string, maxTokens int64) *AnthropicProvider {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicProvider{
		client:    sdk.NewClient(option.WithAPIKey(apiKey)),
		model:     modelID,
		maxTokens: maxTokens,
	}
}

func (p *AnthropicProvider) Name() model.ProviderID {
	return model.ProviderAnthropic
}

func (p *AnthropicProvider) Analyze(ctx context.Context, req Request) (*model.NutritionResult, error) {
	raw, err := p.complete(ctx, analysisSystemPrompt, req.Prompt, req.ImageBytes, req.ImageMime)
	if err != nil {
		return nil, err
	}
	return ParseNutrition(raw)
}

func (p *AnthropicProvider) Suggest(ctx context.Context, partial string, limit int) ([]model.FoodSuggestion, error) {
	system, user := BuildSuggestPrompt(partial, limit)
	raw, err := p.complete(ctx, system, user, nil, "")
	if err != nil {
		return nil, err
	}
	return ParseSuggestions(raw, limit)
}

func (p *AnthropicProvider) complete(ctx context.Context, system, user string, image []byte, mime string) (string, error) {
	var blocks []sdk.ContentBlockParamUnion
	if len(image) > 0 {
		if mime == "" {
			mime = "image/jpeg"
		}
		encoded := base64.StdEncoding.EncodeToString(image)
		blocks = append(blocks, sdk.NewImageBlockBase64(mime, encoded))
	}
	blocks = append(blocks, sdk.NewTextBlock(user))

	msg, err := p.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(p.model),
		MaxTokens: p.maxTokens,
		System:    []sdk.TextBlockParam{{Text: system}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(blocks...)},
	})
	if err != nil {
		return "", eris.Wrap(err, "anthropic: create message")
	}

	var sb strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	if sb.Len() == 0 {
		return "", eris.New("anthropic: empty response body")
	}
	return sb.String(), nil
}
