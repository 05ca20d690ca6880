package model

import "time"

// QueryType classifies what content a query carried.
type QueryType string

const (
	QueryTypeText     QueryType = "text"
	QueryTypeImage    QueryType = "image"
	QueryTypeCombined QueryType = "combined"
)

// HealthScore is a qualitative assessment of a meal's nutritional desirability.
type HealthScore string

const (
	HealthExcellent HealthScore = "excellent"
	HealthGood      HealthScore = "good"
	HealthModerate  HealthScore = "moderate"
	HealthIndulgent HealthScore = "indulgent"
)

// Valid reports whether the score is one of the known values.
func (h HealthScore) Valid() bool {
	switch h {
	case HealthExcellent, HealthGood, HealthModerate, HealthIndulgent:
		return true
	}
	return false
}

// Confidence tags how much trust to place in a nutrition result.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ProviderID identifies which inference backend produced a result.
type ProviderID string

const (
	ProviderAnthropic ProviderID = "anthropic"
	ProviderOpenAI    ProviderID = "openai"
)

// NutritionResult is the provider-agnostic shape both a fresh inference
// and a cache hit are coerced into before being returned to the caller.
type NutritionResult struct {
	Name          string      `json:"name"`
	Calories      int         `json:"calories"`
	Protein       int         `json:"protein"`
	Carbs         int         `json:"carbs"`
	Fats          int         `json:"fats"`
	Fiber         int         `json:"fiber"`
	PortionSize   string      `json:"portion_size"`
	PortionGrams  int         `json:"portion_grams"`
	HealthScore   HealthScore `json:"health_score"`
	HealthTip     string      `json:"health_tip"`
	CookingMethod string      `json:"cooking_method,omitempty"`
	CuisineType   string      `json:"cuisine_type,omitempty"`
	Confidence    Confidence  `json:"confidence"`
	Alternatives  []string    `json:"alternatives,omitempty"`
}

// CachedRecord is one previously computed inference result, addressed
// by the fingerprint of the query that produced it.
type CachedRecord struct {
	Fingerprint    string      `json:"fingerprint"`
	QueryType      QueryType   `json:"query_type"`
	NormalizedText string      `json:"normalized_text"`
	Name           string      `json:"name"`
	Calories       int         `json:"calories"`
	Protein        int         `json:"protein"`
	Carbs          int         `json:"carbs"`
	Fats           int         `json:"fats"`
	Fiber          int         `json:"fiber"`
	PortionSize    string      `json:"portion_size"`
	PortionGrams   int         `json:"portion_grams"`
	HealthScore    HealthScore `json:"health_score"`
	HealthTip      string      `json:"health_tip"`
	CookingMethod  string      `json:"cooking_method,omitempty"`
	CuisineType    string      `json:"cuisine_type,omitempty"`
	Provider       ProviderID  `json:"provider"`
	HitCount       int         `json:"hit_count"`
	CreatedAt      time.Time   `json:"created_at"`
	LastUsedAt     time.Time   `json:"last_used_at"`
}

// ToResult coerces a cached record back into the transient result shape.
// Cache hits are always reported as high confidence.
func (r *CachedRecord) ToResult() *NutritionResult {
	return &NutritionResult{
		Name:          r.Name,
		Calories:      r.Calories,
		Protein:       r.Protein,
		Carbs:         r.Carbs,
		Fats:          r.Fats,
		Fiber:         r.Fiber,
		PortionSize:   r.PortionSize,
		PortionGrams:  r.PortionGrams,
		HealthScore:   r.HealthScore,
		HealthTip:     r.HealthTip,
		CookingMethod: r.CookingMethod,
		CuisineType:   r.CuisineType,
		Confidence:    ConfidenceHigh,
	}
}

// FoodSuggestion is a lightweight typeahead entry returned by the
// suggestion path. Never persisted.
type FoodSuggestion struct {
	Name        string `json:"name"`
	Calories    int    `json:"calories"`
	PortionSize string `json:"portion_size,omitempty"`
}
