// Package provider defines the inference backends that turn a meal
// query into a nutrition result, and the ordered chain that fails over
// between them.
package provider

import (
	"context"

	"github.com/nutrilog-ai/nutrilog/internal/model"
)

// Request carries the raw query content handed to a provider.
type Request struct {
	Prompt     string
	ImageBytes []byte
	ImageMime  string
}

// Provider is a single nutrition-inference backend.
type Provider interface {
	// Name returns the provider identifier used for provenance bookkeeping.
	Name() model.ProviderID
	// Analyze produces a nutrition result for the query content.
	Analyze(ctx context.Context, req Request) (*model.NutritionResult, error)
	// Suggest returns lightweight food suggestions for a partial query.
	Suggest(ctx context.Context, partial string, limit int) ([]model.FoodSuggestion, error)
}
