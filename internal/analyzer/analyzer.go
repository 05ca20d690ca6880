// Package analyzer coordinates fingerprinting, cache lookup, provider
// failover, and cache population for one analysis request.
package analyzer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/nutrilog-ai/nutrilog/internal/cache"
	"github.com/nutrilog-ai/nutrilog/internal/fingerprint"
	"github.com/nutrilog-ai/nutrilog/internal/model"
	"github.com/nutrilog-ai/nutrilog/internal/provider"
)

// maxSuggestions caps the typeahead path.
const maxSuggestions = 5

// ErrorKind distinguishes the failure outcomes surfaced to callers.
type ErrorKind string

const (
	ErrNone                ErrorKind = ""
	ErrInvalidInput        ErrorKind = "invalid_input"
	ErrAnalysisUnavailable ErrorKind = "analysis_unavailable"
	ErrInvalidProviderData ErrorKind = "invalid_provider_data"
)

// Request is one meal-analysis query.
type Request struct {
	ImageBytes      []byte `json:"-"`
	ImageMime       string `json:"image_mime,omitempty"`
	Text            string `json:"text,omitempty"`
	AudioTranscript string `json:"audio_transcript,omitempty"`
	MealType        string `json:"meal_type,omitempty"`
	SkipCache       bool   `json:"skip_cache,omitempty"`
}

// Outcome is the structured result of an analysis request. Every code
// path produces one; the analyzer never panics a request away.
type Outcome struct {
	Success   bool                   `json:"success"`
	Result    *model.NutritionResult `json:"result,omitempty"`
	Provider  model.ProviderID       `json:"provider,omitempty"`
	CacheHit  bool                   `json:"cache_hit"`
	ErrorKind ErrorKind              `json:"error_kind,omitempty"`
	Message   string                 `json:"message,omitempty"`
}

// Analyzer is the single entry point for meal analysis.
type Analyzer struct {
	store cache.Store
	chain *provider.Chain
}

// New creates an Analyzer. The store is wrapped fail-open: storage
// trouble degrades to cache misses and skipped writes, never to a
// failed request.
func New(store cache.Store, chain *provider.Chain) *Analyzer {
	return &Analyzer{
		store: cache.FailOpen(store),
		chain: chain,
	}
}

// Analyze runs the full cycle: validate, fingerprint, cache lookup,
// infer on miss, persist, return with provenance.
func (a *Analyzer) Analyze(ctx context.Context, req Request) Outcome {
	text := strings.TrimSpace(req.Text)
	transcript := strings.TrimSpace(req.AudioTranscript)
	hasImage := len(req.ImageBytes) > 0

	if text == "" && transcript == "" && !hasImage {
		return Outcome{
			ErrorKind: ErrInvalidInput,
			Message:   "provide a meal description, a voice transcript, or a photo",
		}
	}

	queryText := text
	if queryText == "" {
		queryText = transcript
	}

	fp, queryType := a.fingerprint(queryText, req.ImageBytes, hasImage)

	if !req.SkipCache {
		if rec, _ := a.store.Get(ctx, fp); rec != nil {
			zap.L().Debug("cache hit",
				zap.String("fingerprint", fp),
				zap.Int("hit_count", rec.HitCount),
			)
			return Outcome{
				Success:  true,
				Result:   rec.ToResult(),
				Provider: rec.Provider,
				CacheHit: true,
			}
		}
	}

	prompt := provider.BuildAnalysisPrompt(req.MealType, text, transcript, hasImage)
	result, used, err := a.chain.Analyze(ctx, provider.Request{
		Prompt:     prompt,
		ImageBytes: req.ImageBytes,
		ImageMime:  req.ImageMime,
	})
	if err != nil {
		zap.L().Error("analysis unavailable", zap.Error(err))
		return Outcome{
			ErrorKind: ErrAnalysisUnavailable,
			Message:   "nutrition analysis is temporarily unavailable, please retry",
		}
	}

	if result == nil || result.Name == "" {
		return Outcome{
			ErrorKind: ErrInvalidProviderData,
			Message:   "the analysis service returned an unusable result",
		}
	}

	// Cache-write failures are already absorbed fail-open; the response
	// never depends on persistence succeeding.
	a.store.Put(ctx, recordFromResult(fp, queryType, queryText, result, used)) //nolint:errcheck

	return Outcome{
		Success:  true,
		Result:   result,
		Provider: used,
		CacheHit: false,
	}
}

// SearchSuggestions bypasses the cache entirely and asks the provider
// chain for up to five lightweight suggestions. Nothing is persisted.
func (a *Analyzer) SearchSuggestions(ctx context.Context, partial string) ([]model.FoodSuggestion, error) {
	return a.chain.Suggest(ctx, partial, maxSuggestions)
}

// SimilarMeals searches previously analyzed meals by text, most popular
// first.
func (a *Analyzer) SimilarMeals(ctx context.Context, query string, limit int) ([]model.CachedRecord, error) {
	return a.store.FindSimilar(ctx, query, limit)
}

func (a *Analyzer) fingerprint(text string, image []byte, hasImage bool) (string, model.QueryType) {
	switch {
	case hasImage && text != "":
		return fingerprint.Combined(text, image, len(image)), model.QueryTypeCombined
	case hasImage:
		return fingerprint.Image(image, len(image)), model.QueryTypeImage
	default:
		return fingerprint.Text(text), model.QueryTypeText
	}
}

func recordFromResult(fp string, qt model.QueryType, queryText string, res *model.NutritionResult, used model.ProviderID) *model.CachedRecord {
	return &model.CachedRecord{
		Fingerprint:    fp,
		QueryType:      qt,
		NormalizedText: fingerprint.TruncateNormalized(queryText),
		Name:           res.Name,
		Calories:       res.Calories,
		Protein:        res.Protein,
		Carbs:          res.Carbs,
		Fats:           res.Fats,
		Fiber:          res.Fiber,
		PortionSize:    res.PortionSize,
		PortionGrams:   res.PortionGrams,
		HealthScore:    res.HealthScore,
		HealthTip:      res.HealthTip,
		CookingMethod:  res.CookingMethod,
		CuisineType:    res.CuisineType,
		Provider:       used,
	}
}
