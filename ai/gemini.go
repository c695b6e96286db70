// Package ai narrates forecast handoffs with Gemini.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"multihorizon/models"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash-lite"

// GeminiNarrator asks Gemini for a short reading of a forecast.
type GeminiNarrator struct {
	client *genai.Client
	model  string
}

// NewGeminiNarrator connects to Gemini with apiKey.
func NewGeminiNarrator(ctx context.Context, apiKey, model string) (*GeminiNarrator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &GeminiNarrator{client: client, model: model}, nil
}

// Close releases the underlying client.
func (g *GeminiNarrator) Close() error {
	return g.client.Close()
}

// Narrate implements insights.Narrator.
func (g *GeminiNarrator) Narrate(ctx context.Context, h models.InsightsHandoff) (string, error) {
	model := g.client.GenerativeModel(g.model)
	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(h)))
	if err != nil {
		return "", fmt.Errorf("generate narrative: %w", err)
	}
	return responseText(resp)
}

// buildPrompt lays out the history and the three quantile series day by day.
func buildPrompt(h models.InsightsHandoff) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a retail demand planner. Explain this %d-day sales forecast for %s at %s in at most four sentences for a store manager.\n\n",
		len(h.Result.P50), h.ItemName, h.StoreName)

	if len(h.History) == 0 {
		b.WriteString("No sales history is available.\n")
	} else {
		recent := h.History
		if len(recent) > 28 {
			recent = recent[len(recent)-28:]
		}
		b.WriteString("Daily units sold, most recent last: ")
		for i, v := range recent {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%.0f", v)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nForecast (day: p10 / p50 / p90):\n")
	for i := range h.Result.P50 {
		fmt.Fprintf(&b, "Day %d: %.1f / %.1f / %.1f\n", i+1, h.Result.P10[i], h.Result.P50[i], h.Result.P90[i])
	}

	if len(h.Suggestions) > 0 {
		b.WriteString("\nService suggestions:\n")
		for _, s := range h.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s.Message)
		}
	}
	b.WriteString("\nAnswer in plain text without markdown.")
	return b.String()
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content received from AI")
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text += string(txt)
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("no text content received from AI")
	}
	return text, nil
}
