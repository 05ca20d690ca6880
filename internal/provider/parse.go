package provider

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/nutrilog-ai/nutrilog/internal/model"
)

// nutritionWire is the JSON shape providers are instructed to return.
type nutritionWire struct {
	Name          string   `json:"name"`
	Calories      int      `json:"calories"`
	Protein       int      `json:"protein"`
	Carbs         int      `json:"carbs"`
	Fats          int      `json:"fats"`
	Fiber         int      `json:"fiber"`
	PortionSize   string   `json:"portion_size"`
	PortionGrams  int      `json:"portion_grams"`
	HealthScore   string   `json:"health_score"`
	HealthTip     string   `json:"health_tip"`
	CookingMethod string   `json:"cooking_method"`
	CuisineType   string   `json:"cuisine_type"`
	Confidence    string   `json:"confidence"`
	Alternatives  []string `json:"alternatives"`
}

// StripFence removes a surrounding markdown code fence from a model
// reply, if present. Models wrap JSON in ```json fences often enough
// that this is its own adapter step.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop the language tag on the opening fence line
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseNutrition decodes a provider reply into a NutritionResult.
// A decode failure is a provider-level failure: the chain treats it the
// same as a transport error and falls through to the next provider.
func ParseNutrition(raw string) (*model.NutritionResult, error) {
	body := StripFence(raw)
	if body == "" {
		return nil, eris.New("parse: empty response body")
	}

	var w nutritionWire
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return nil, eris.Wrap(err, "parse: decode nutrition JSON")
	}

	res := &model.NutritionResult{
		Name:          strings.TrimSpace(w.Name),
		Calories:      clampNonNegative(w.Calories),
		Protein:       clampNonNegative(w.Protein),
		Carbs:         clampNonNegative(w.Carbs),
		Fats:          clampNonNegative(w.Fats),
		Fiber:         clampNonNegative(w.Fiber),
		PortionSize:   w.PortionSize,
		PortionGrams:  clampNonNegative(w.PortionGrams),
		HealthScore:   model.HealthScore(w.HealthScore),
		HealthTip:     w.HealthTip,
		CookingMethod: w.CookingMethod,
		CuisineType:   w.CuisineType,
		Confidence:    model.Confidence(w.Confidence),
		Alternatives:  w.Alternatives,
	}
	if !res.HealthScore.Valid() {
		res.HealthScore = model.HealthModerate
	}
	switch res.Confidence {
	case model.ConfidenceHigh, model.ConfidenceMedium, model.ConfidenceLow:
	default:
		res.Confidence = model.ConfidenceMedium
	}
	return res, nil
}

// ParseSuggestions decodes a provider reply into a suggestion list.
func ParseSuggestions(raw string, limit int) ([]model.FoodSuggestion, error) {
	body := StripFence(raw)
	if body == "" {
		return nil, eris.New("parse: empty suggestion body")
	}

	var suggestions []model.FoodSuggestion
	if err := json.Unmarshal([]byte(body), &suggestions); err != nil {
		return nil, eris.Wrap(err, "parse: decode suggestion JSON")
	}
	for i := range suggestions {
		suggestions[i].Calories = clampNonNegative(suggestions[i].Calories)
	}
	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
