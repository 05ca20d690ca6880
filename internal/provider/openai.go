package provider

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rotisserie/eris"

	"github.com/nutrilog-ai/nutrilog/internal/model"
)

// OpenAIProvider infers nutrition via the OpenAI Chat Completions API.
// It is the secondary backend in the default chain.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// NewOpenAI creates an OpenAI-backed provider. baseURL is optional and
// supports OpenAI-compatible gateways.
func NewOpenAI(apiKey, modelID, baseURL string, maxTokens int64) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &OpenAIProvider{
		client:    openai.NewClient(opts...),
		model:     modelID,
		maxTokens: maxTokens,
	}
}

func (p *OpenAIProvider) Name() model.ProviderID {
	return model.ProviderOpenAI
}

func (p *OpenAIProvider) Analyze(ctx context.Context, req Request) (*model.NutritionResult, error) {
	raw, err := p.complete(ctx, analysisSystemPrompt, req.Prompt, req.ImageBytes, req.ImageMime)
	if err != nil {
		return nil, err
	}
	return ParseNutrition(raw)
}

func (p *OpenAIProvider) Suggest(ctx context.Context, partial string, limit int) ([]model.FoodSuggestion, error) {
	system, user := BuildSuggestPrompt(partial, limit)
	raw, err := p.complete(ctx, system, user, nil, "")
	if err != nil {
		return nil, err
	}
	return ParseSuggestions(raw, limit)
}

func (p *OpenAIProvider) complete(ctx context.Context, system, user string, image []byte, mime string) (string, error) {
	var userMsg openai.ChatCompletionMessageParamUnion
	if len(image) > 0 {
		if mime == "" {
			mime = "image/jpeg"
		}
		dataURI := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(image))
		userMsg = openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(user),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURI}),
		})
	} else {
		userMsg = openai.UserMessage(user)
	}

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(p.model),
		MaxCompletionTokens: openai.Int(p.maxTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			userMsg,
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "openai: create completion")
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", eris.New("openai: empty response body")
	}
	return resp.Choices[0].Message.Content, nil
}
