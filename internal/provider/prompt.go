package provider

import (
	"fmt"
	"strings"
)

// analysisSystemPrompt instructs the model to reply with strict JSON
// matching the nutrition wire shape. Fenced output is tolerated by the
// parser, but the instruction keeps most replies clean.
const analysisSystemPrompt = `You are a nutrition analysis engine. Given a description or photo of a meal,
respond with ONLY a JSON object, no prose, matching exactly this shape:
{
  "name": string,
  "calories": integer,
  "protein": integer (grams),
  "carbs": integer (grams),
  "fats": integer (grams),
  "fiber": integer (grams),
  "portion_size": string,
  "portion_grams": integer,
  "health_score": "excellent" | "good" | "moderate" | "indulgent",
  "health_tip": string (one short sentence),
  "cooking_method": string (optional),
  "cuisine_type": string (optional),
  "confidence": "high" | "medium" | "low",
  "alternatives": [string] (optional, other plausible names)
}
All numeric fields are non-negative integers for the described portion.`

// suggestSystemPrompt drives the search/typeahead path.
const suggestSystemPrompt = `You are a food search engine. Given a partial food name, respond with ONLY a
JSON array of up to %d suggestions, each shaped as:
{"name": string, "calories": integer, "portion_size": string}
Calories are per typical portion. No prose.`

// BuildAnalysisPrompt assembles the user prompt from the meal-type
// hint, free text, and voice transcript. With only an image present it
// falls back to a generic instruction.
func BuildAnalysisPrompt(mealType, text, transcript string, hasImage bool) string {
	var parts []string
	if mealType != "" {
		parts = append(parts, fmt.Sprintf("Meal type: %s.", mealType))
	}
	if text != "" {
		parts = append(parts, fmt.Sprintf("Meal description: %s", text))
	}
	if transcript != "" {
		parts = append(parts, fmt.Sprintf("Voice note transcript: %s", transcript))
	}
	if len(parts) == 0 && hasImage {
		parts = append(parts, "Analyze the meal shown in this image.")
	}
	if hasImage {
		parts = append(parts, "A photo of the meal is attached.")
	}
	return strings.Join(parts, "\n")
}

// BuildSuggestPrompt assembles the suggestion-path prompts.
func BuildSuggestPrompt(partial string, limit int) (system, user string) {
	return fmt.Sprintf(suggestSystemPrompt, limit),
		fmt.Sprintf("Partial food name: %q", partial)
}
